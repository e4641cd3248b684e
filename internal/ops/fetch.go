package ops

import (
	"database/sql"
	"strings"

	"github.com/hpungsan/hdcview/internal/db"
	"github.com/hpungsan/hdcview/internal/errors"
	"github.com/hpungsan/hdcview/internal/snapshot"
	"github.com/hpungsan/hdcview/internal/view"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	ID             string
	IncludeDeleted bool
	IncludeViews   *bool // default: true (nil means default)
}

// FetchOutput contains the result of the Fetch operation.
type FetchOutput struct {
	snapshot.Summary
	Views view.Tree `json:"views,omitempty"`
}

// Fetch retrieves a snapshot by ID.
func Fetch(database *sql.DB, input FetchInput) (*FetchOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	s, err := db.GetByID(database, id, input.IncludeDeleted)
	if err != nil {
		return nil, err
	}

	output := &FetchOutput{Summary: s.ToSummary()}
	if input.IncludeViews == nil || *input.IncludeViews {
		output.Views = s.Views
	}
	return output, nil
}
