package ops

import (
	"database/sql"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/hdcview/internal/db"
	"github.com/hpungsan/hdcview/internal/errors"
	"github.com/hpungsan/hdcview/internal/geometry"
	"github.com/hpungsan/hdcview/internal/snapshot"
	"github.com/hpungsan/hdcview/internal/view"
)

// Search limits
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
	MaxQueryLength     = 200
)

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	ID             string // optional, blank means the latest snapshot
	Serial         string // optional, picks the latest snapshot of this device
	Query          string // matched against text, content description and id
	Class          string // optional exact class match, case-insensitive
	ClickableOnly  bool
	Limit          int // default: 20, max: 100
	IncludeDeleted bool
}

// SearchItem is one matching view.
type SearchItem struct {
	TempID    int             `json:"temp_id"`
	Label     string          `json:"label"`
	Bounds    *geometry.Rect  `json:"bounds,omitempty"`
	Center    *geometry.Point `json:"center,omitempty"`
	Clickable bool            `json:"clickable"`
}

// SearchOutput contains the result of the Search operation.
type SearchOutput struct {
	SnapshotID string       `json:"snapshot_id"`
	Items      []SearchItem `json:"items"`
	Total      int          `json:"total"`
	HasMore    bool         `json:"has_more"`
}

// Search finds views in one snapshot, in temp_id order.
func Search(database *sql.DB, input SearchInput) (*SearchOutput, error) {
	query := strings.TrimSpace(input.Query)
	class := strings.TrimSpace(input.Class)
	if query == "" && class == "" && !input.ClickableOnly {
		return nil, errors.NewInvalidRequest("query, class or clickable_only is required")
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return nil, errors.NewInvalidRequest("query exceeds maximum length")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	s, err := searchTarget(database, input)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	output := &SearchOutput{SnapshotID: s.ID, Items: []SearchItem{}}
	for i := range s.Views {
		v := &s.Views[i]
		if !matches(v, needle, class, input.ClickableOnly) {
			continue
		}
		output.Total++
		if len(output.Items) < limit {
			output.Items = append(output.Items, searchItem(v))
		}
	}
	output.HasMore = output.Total > len(output.Items)
	return output, nil
}

// searchTarget loads the snapshot by ID, or the latest one.
func searchTarget(database *sql.DB, input SearchInput) (*snapshot.Snapshot, error) {
	if id := strings.TrimSpace(input.ID); id != "" {
		return db.GetByID(database, id, input.IncludeDeleted)
	}
	s, err := db.GetLatestFull(database, optionalSerial(input.Serial), input.IncludeDeleted)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errors.NewNotFound("latest snapshot")
	}
	return s, nil
}

func matches(v *view.View, needle, class string, clickableOnly bool) bool {
	if clickableOnly && !v.Clickable {
		return false
	}
	if class != "" && !strings.EqualFold(v.ClassName(), class) {
		return false
	}
	if needle == "" {
		return true
	}
	for _, field := range []string{v.Attr("text"), v.Description(), v.Attr("id")} {
		if field != "" && strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func searchItem(v *view.View) SearchItem {
	item := SearchItem{
		TempID:    v.TempID,
		Label:     v.Label(),
		Bounds:    v.Bounds,
		Clickable: v.Clickable,
	}
	if v.Bounds != nil {
		c := v.Bounds.Center()
		item.Center = &c
	}
	return item
}
