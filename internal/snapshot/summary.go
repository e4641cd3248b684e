package snapshot

import "github.com/hpungsan/hdcview/internal/display"

// Summary is a snapshot without its view tree.
// Used for browse operations (list, latest) to keep responses small.
type Summary struct {
	ID        string       `json:"id"`
	Serial    string       `json:"serial"`
	Source    string       `json:"source"`
	Label     *string      `json:"label,omitempty"`
	Package   *string      `json:"package,omitempty"`
	Display   display.Info `json:"display"`
	ViewCount int          `json:"view_count"`
	CreatedAt int64        `json:"created_at"`
	DeletedAt *int64       `json:"deleted_at,omitempty"`
}

// ToSummary strips the view tree.
func (s *Snapshot) ToSummary() Summary {
	return Summary{
		ID:        s.ID,
		Serial:    s.Serial,
		Source:    s.Source,
		Label:     s.Label,
		Package:   s.Package,
		Display:   s.Display,
		ViewCount: s.ViewCount,
		CreatedAt: s.CreatedAt,
		DeletedAt: s.DeletedAt,
	}
}
