package snapshot

import (
	"github.com/hpungsan/hdcview/internal/display"
	"github.com/hpungsan/hdcview/internal/errors"
	"github.com/hpungsan/hdcview/internal/view"
)

// ExportRecord is one line of a JSONL export. The first line of a file is a
// header carrying only HdcviewExport, SchemaVersion and ExportedAt.
type ExportRecord struct {
	// Header fields
	HdcviewExport bool   `json:"_hdcview_export,omitempty"`
	SchemaVersion string `json:"schema_version,omitempty"`
	ExportedAt    int64  `json:"exported_at,omitempty"`

	// Snapshot fields
	ID        string       `json:"id"`
	Serial    string       `json:"serial"`
	Source    string       `json:"source"`
	Label     *string      `json:"label"`
	Display   display.Info `json:"display"`
	Views     view.Tree    `json:"views"`
	ViewCount int          `json:"view_count"` // IGNORED on import, recomputed
	CreatedAt int64        `json:"created_at"`
	DeletedAt *int64       `json:"deleted_at"`
}

// ToSnapshot converts a record back to a Snapshot. Derived fields are
// recomputed and the tree's parent links are verified.
func (r *ExportRecord) ToSnapshot() (*Snapshot, error) {
	if len(r.Views) == 0 {
		return nil, errors.NewInvalidRequest("snapshot has no views")
	}
	if err := view.LinkChildren(r.Views); err != nil {
		return nil, err
	}
	return &Snapshot{
		ID:        r.ID,
		Serial:    NormalizeSerial(r.Serial),
		Source:    r.Source,
		Label:     r.Label,
		Package:   RootPackage(r.Views),
		Display:   r.Display,
		Views:     r.Views,
		ViewCount: len(r.Views),
		CreatedAt: r.CreatedAt,
		DeletedAt: r.DeletedAt,
	}, nil
}

// ToExportRecord converts a Snapshot for export.
func (s *Snapshot) ToExportRecord() *ExportRecord {
	return &ExportRecord{
		ID:        s.ID,
		Serial:    s.Serial,
		Source:    s.Source,
		Label:     s.Label,
		Display:   s.Display,
		Views:     s.Views,
		ViewCount: s.ViewCount,
		CreatedAt: s.CreatedAt,
		DeletedAt: s.DeletedAt,
	}
}
