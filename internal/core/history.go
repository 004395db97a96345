package core

import "context"

// Paging bounds for history listings.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// ImportHistoryStore persists import snapshots.
//
// Latest returns (nil, nil) when nothing has been imported yet. List returns
// snapshots newest first.
type ImportHistoryStore interface {
	Latest(ctx context.Context) (*ImportSnapshot, error)
	Save(ctx context.Context, snapshot ImportSnapshot) error
	List(ctx context.Context, limit, offset int) ([]ImportSnapshot, error)
}

// NormalizePage clamps a limit/offset pair to the supported range.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
