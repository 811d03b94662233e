package service

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/maxviazov/youth-hoops-tracker/internal/model"
)

const (
	maxRecordedByLen = 100
	maxNoteLen       = 500
)

var seasonRe = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

// ValidateStatEventInput checks the preconditions every writer shares, the tracker included.
// Amount 0 is legal; negative amounts are not.
func ValidateStatEventInput(in model.StatEventInput) error {
	ferrs := validateScope(in.PlayerID, in.GameID)
	if !in.Kind.Valid() {
		ferrs = append(ferrs, FieldError{Field: "kind", Message: "must be one of " + kindList()})
	}
	if in.Amount < 0 {
		ferrs = append(ferrs, FieldError{Field: "amount", Message: "must be >= 0"})
	}
	recordedBy := strings.TrimSpace(in.RecordedBy)
	if recordedBy == "" {
		ferrs = append(ferrs, FieldError{Field: "recorded_by", Message: "must not be empty"})
	} else if utf8.RuneCountInString(recordedBy) > maxRecordedByLen {
		ferrs = append(ferrs, FieldError{Field: "recorded_by", Message: "length must be <= 100"})
	}
	if in.Context.Quarter != nil && *in.Context.Quarter < 1 {
		ferrs = append(ferrs, FieldError{Field: "context.quarter", Message: "must be >= 1"})
	}
	if in.Context.Note != nil && utf8.RuneCountInString(*in.Context.Note) > maxNoteLen {
		ferrs = append(ferrs, FieldError{Field: "context.note", Message: "length must be <= 500"})
	}
	return NewInvalidInputError(ferrs)
}

// ValidateScope checks a (player, game) pair.
func ValidateScope(playerID, gameID int64) error {
	return NewInvalidInputError(validateScope(playerID, gameID))
}

func validateScope(playerID, gameID int64) []FieldError {
	var ferrs []FieldError
	if playerID <= 0 {
		ferrs = append(ferrs, FieldError{Field: "player_id", Message: "must be > 0"})
	}
	if gameID <= 0 {
		ferrs = append(ferrs, FieldError{Field: "game_id", Message: "must be > 0"})
	}
	return ferrs
}

// IsValidSeason accepts "YYYY-YY" where the second year follows the first, e.g. "2025-26".
func IsValidSeason(s string) bool {
	m := seasonRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return false
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	return (start+1)%100 == end
}

func kindList() string {
	kinds := model.AllStatKinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, ", ")
}
