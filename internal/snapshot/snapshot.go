// Package snapshot defines a stored view-tree capture and its derived forms.
package snapshot

import (
	"strings"

	"github.com/hpungsan/hdcview/internal/display"
	"github.com/hpungsan/hdcview/internal/view"
)

// Sources a snapshot can come from.
const (
	SourceDevice = "device"
	SourceFile   = "file"
)

// DefaultSerial groups snapshots taken without a pinned device serial.
const DefaultSerial = "default"

// Snapshot is one captured view tree together with the display geometry
// observed when it was taken.
type Snapshot struct {
	// ID is a ULID that uniquely identifies this snapshot
	ID string

	// Serial is the device the tree was captured from, or DefaultSerial
	Serial string

	// Source is SourceDevice or SourceFile
	Source string

	// Label is an optional caller-supplied note
	Label *string

	// Package is the bundle name of the root view, if any
	Package *string

	// Display is the geometry reported at capture time
	Display display.Info

	// Views is the flattened tree, index == temp_id
	Views view.Tree

	// ViewCount is len(Views), stored for listing without decoding the tree
	ViewCount int

	// CreatedAt is the Unix timestamp when the snapshot was stored
	CreatedAt int64

	// DeletedAt is the Unix timestamp for soft delete (nullable)
	DeletedAt *int64
}

// NormalizeSerial trims a serial and maps the empty serial to DefaultSerial.
func NormalizeSerial(serial string) string {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return DefaultSerial
	}
	return serial
}

// RootPackage returns the bundle name of the tree's root view.
func RootPackage(tree view.Tree) *string {
	if len(tree) == 0 || tree[0].Package == nil {
		return nil
	}
	pkg := *tree[0].Package
	return &pkg
}
