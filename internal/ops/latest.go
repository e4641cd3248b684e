package ops

import (
	"database/sql"

	"github.com/hpungsan/hdcview/internal/db"
	"github.com/hpungsan/hdcview/internal/snapshot"
	"github.com/hpungsan/hdcview/internal/view"
)

// LatestInput contains parameters for the Latest operation.
type LatestInput struct {
	Serial         string // optional, blank means any device
	IncludeViews   *bool  // default: false (summary only)
	IncludeDeleted bool
}

// LatestOutput contains the result of the Latest operation.
type LatestOutput struct {
	Item *LatestItem `json:"item"` // nil if nothing was captured yet
}

// LatestItem is the latest snapshot with its views when requested.
type LatestItem struct {
	snapshot.Summary
	Views view.Tree `json:"views,omitempty"`
}

// Latest retrieves the most recent snapshot.
func Latest(database *sql.DB, input LatestInput) (*LatestOutput, error) {
	serial := optionalSerial(input.Serial)

	if input.IncludeViews != nil && *input.IncludeViews {
		s, err := db.GetLatestFull(database, serial, input.IncludeDeleted)
		if err != nil {
			return nil, err
		}
		if s == nil {
			return &LatestOutput{Item: nil}, nil
		}
		return &LatestOutput{
			Item: &LatestItem{Summary: s.ToSummary(), Views: s.Views},
		}, nil
	}

	s, err := db.GetLatestSummary(database, serial, input.IncludeDeleted)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return &LatestOutput{Item: nil}, nil
	}
	return &LatestOutput{Item: &LatestItem{Summary: *s}}, nil
}
