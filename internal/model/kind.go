package model

import (
	"fmt"
	"strings"
)

// StatKind is the closed set of actions a stat event can record.
type StatKind uint8

const (
	KindUnknown StatKind = iota
	KindFGMade
	KindFGMissed
	KindThreePtMade
	KindThreePtMissed
	KindFTMade
	KindFTMissed
	KindRebound
	KindAssist
	KindSteal
	KindBlock
	KindFoul

	numKinds
)

var kindNames = [numKinds]string{
	KindUnknown:       "unknown",
	KindFGMade:        "fg_made",
	KindFGMissed:      "fg_missed",
	KindThreePtMade:   "three_pt_made",
	KindThreePtMissed: "three_pt_missed",
	KindFTMade:        "ft_made",
	KindFTMissed:      "ft_missed",
	KindRebound:       "rebound",
	KindAssist:        "assist",
	KindSteal:         "steal",
	KindBlock:         "block",
	KindFoul:          "foul",
}

// AllStatKinds lists every valid kind in declaration order.
func AllStatKinds() []StatKind {
	out := make([]StatKind, 0, numKinds-1)
	for k := KindUnknown + 1; k < numKinds; k++ {
		out = append(out, k)
	}
	return out
}

// Valid reports whether k is one of the declared kinds.
func (k StatKind) Valid() bool { return k > KindUnknown && k < numKinds }

func (k StatKind) String() string {
	if k >= numKinds {
		return fmt.Sprintf("StatKind(%d)", uint8(k))
	}
	return kindNames[k]
}

// IsShot reports whether k is a made or missed shot attempt.
func (k StatKind) IsShot() bool {
	switch k {
	case KindFGMade, KindFGMissed, KindThreePtMade, KindThreePtMissed, KindFTMade, KindFTMissed:
		return true
	default:
		return false
	}
}

// IsMade reports whether k is a successful shot.
func (k StatKind) IsMade() bool {
	return k == KindFGMade || k == KindThreePtMade || k == KindFTMade
}

// ParseStatKind accepts the canonical snake_case names, case-insensitively.
func ParseStatKind(s string) (StatKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k := KindUnknown + 1; k < numKinds; k++ {
		if kindNames[k] == name {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown stat kind %q", s)
}

func (k StatKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid stat kind %d", uint8(k))
	}
	return []byte(kindNames[k]), nil
}

func (k *StatKind) UnmarshalText(b []byte) error {
	parsed, err := ParseStatKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
