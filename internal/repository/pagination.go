package repository

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

// Page is a limit/offset window over a game's event log.
type Page struct {
	Limit  int
	Offset int
}

// Sanitize clamps the window: a non-positive limit becomes DefaultPageLimit, large ones MaxPageLimit.
func (p Page) Sanitize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// PageResult carries a slice of items and the total count matching the query,
// so clients can page without an extra round trip.
type PageResult[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}
