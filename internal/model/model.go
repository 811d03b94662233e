// Package model contains domain entities and DTOs used across layers.
// I keep it lean and focused on data shapes; the only behavior lives on StatKind.
package model

import (
	"strings"
	"time"
)

// ProvisionalIDPrefix marks identifiers minted locally before the remote store confirms an event.
const ProvisionalIDPrefix = "local-"

// IsProvisionalID reports whether id was generated locally and is still awaiting confirmation.
func IsProvisionalID(id string) bool { return strings.HasPrefix(id, ProvisionalIDPrefix) }

// Player represents an athlete belonging to a team.
// Players are owned by the hosted backend; I only read them for existence checks.
type Player struct {
	ID        int64     `json:"id"`
	TeamID    int64     `json:"team_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Position  string    `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Game represents a scheduled or finished match.
type Game struct {
	ID         int64     `json:"id"`
	Season     string    `json:"season"`
	Date       time.Time `json:"date"`
	HomeTeamID int64     `json:"home_team_id"`
	AwayTeamID int64     `json:"away_team_id"`
	Status     string    `json:"status"` // scheduled, in_progress, finished
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// StatContext carries optional situational data. Nothing in the aggregation path reads it.
type StatContext struct {
	Quarter *int     `json:"quarter,omitempty"`
	Clock   *string  `json:"clock,omitempty"`
	CourtX  *float64 `json:"court_x,omitempty"`
	CourtY  *float64 `json:"court_y,omitempty"`
	Note    *string  `json:"note,omitempty"`
}

// StatEvent is one recorded action of a player in a game.
// Once created it never changes, except for the provisional -> confirmed id promotion.
// ClientRef echoes the idempotency key the event was inserted with, if any.
type StatEvent struct {
	ID         string      `json:"id"`
	ClientRef  string      `json:"client_ref,omitempty"`
	PlayerID   int64       `json:"player_id"`
	GameID     int64       `json:"game_id"`
	Kind       StatKind    `json:"kind"`
	Amount     int         `json:"amount"`
	RecordedAt time.Time   `json:"recorded_at"`
	RecordedBy string      `json:"recorded_by"`
	Context    StatContext `json:"context"`
}

// StatEventInput is the insert payload accepted by event stores.
// ClientRef is an optional idempotency key: inserting the same ClientRef twice yields one row.
type StatEventInput struct {
	ClientRef  string      `json:"client_ref,omitempty"`
	PlayerID   int64       `json:"player_id"`
	GameID     int64       `json:"game_id"`
	Kind       StatKind    `json:"kind"`
	Amount     int         `json:"amount"`
	RecordedAt time.Time   `json:"recorded_at"`
	RecordedBy string      `json:"recorded_by"`
	Context    StatContext `json:"context"`
}

// Input returns the insert payload that would recreate e.
func (e StatEvent) Input() StatEventInput {
	return StatEventInput{
		PlayerID:   e.PlayerID,
		GameID:     e.GameID,
		Kind:       e.Kind,
		Amount:     e.Amount,
		RecordedAt: e.RecordedAt,
		RecordedBy: e.RecordedBy,
		Context:    e.Context,
	}
}

// Totals is the derived aggregate over a set of stat events. It is recomputed on demand and never stored.
type Totals struct {
	Events int `json:"events"`

	FGMade        int `json:"fg_made"`
	FGMissed      int `json:"fg_missed"`
	ThreePtMade   int `json:"three_pt_made"`
	ThreePtMissed int `json:"three_pt_missed"`
	FTMade        int `json:"ft_made"`
	FTMissed      int `json:"ft_missed"`
	Rebounds      int `json:"rebounds"`
	Assists       int `json:"assists"`
	Steals        int `json:"steals"`
	Blocks        int `json:"blocks"`
	Fouls         int `json:"fouls"`

	FGPercentage      float64 `json:"fg_percentage"`
	ThreePtPercentage float64 `json:"three_pt_percentage"`
	FTPercentage      float64 `json:"ft_percentage"`

	Points int `json:"points"`
}

// PlayerTotals is one box score row.
type PlayerTotals struct {
	PlayerID int64  `json:"player_id"`
	Totals   Totals `json:"totals"`
}

// GameTotals summarizes a whole game: the combined line plus one row per player who has events.
type GameTotals struct {
	GameID  int64          `json:"game_id"`
	Overall Totals         `json:"overall"`
	Players []PlayerTotals `json:"players"`
}

// SeasonSummary holds a player's totals and per-game averages across a season, or a career when Season is empty.
// This model is designed for read-only query results and is not persisted directly.
type SeasonSummary struct {
	PlayerID    int64   `json:"player_id"`
	Season      string  `json:"season,omitempty"`
	GamesPlayed int     `json:"games_played"`
	Totals      Totals  `json:"totals"`
	AvgPoints   float64 `json:"avg_points"`
	AvgRebounds float64 `json:"avg_rebounds"`
	AvgAssists  float64 `json:"avg_assists"`
	AvgSteals   float64 `json:"avg_steals"`
	AvgBlocks   float64 `json:"avg_blocks"`
}
