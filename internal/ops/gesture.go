package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/hdcview/internal/db"
	"github.com/hpungsan/hdcview/internal/device"
	"github.com/hpungsan/hdcview/internal/display"
	"github.com/hpungsan/hdcview/internal/errors"
	"github.com/hpungsan/hdcview/internal/geometry"
)

// DefaultDragDurationMs is used when a drag does not set its duration.
const DefaultDragDurationMs = 300

// Target addresses a point either directly or as the center of a view in a
// stored snapshot. Exactly one form must be given.
type Target struct {
	X, Y *int

	SnapshotID string
	TempID     *int
}

// TouchInput contains parameters for the Touch and LongTouch operations.
type TouchInput struct {
	Target

	// Orientation the coordinates were authored in. Nil means the snapshot's
	// orientation for a view target and the live orientation otherwise.
	Orientation *int
}

// TouchOutput contains the result of a touch.
type TouchOutput struct {
	Requested geometry.Point `json:"requested"`
	Sent      geometry.Point `json:"sent"`
}

// DragInput contains parameters for the Drag operation.
type DragInput struct {
	From        Target
	To          Target
	DurationMs  int  // default: 300
	Orientation *int // see TouchInput.Orientation
}

// DragOutput contains the result of a drag.
type DragOutput struct {
	From       geometry.Point `json:"from"`
	To         geometry.Point `json:"to"`
	SentFrom   geometry.Point `json:"sent_from"`
	SentTo     geometry.Point `json:"sent_to"`
	DurationMs int            `json:"duration_ms"`
}

// PressInput contains parameters for the Press operation.
type PressInput struct {
	Key string
}

// PressOutput contains the result of the Press operation.
type PressOutput struct {
	Key string `json:"key"`
}

// Touch taps the target.
func Touch(ctx context.Context, database *sql.DB, dev *device.Device, input TouchInput) (*TouchOutput, error) {
	return touch(ctx, database, dev, input, dev.Touch)
}

// LongTouch long-presses the target.
func LongTouch(ctx context.Context, database *sql.DB, dev *device.Device, input TouchInput) (*TouchOutput, error) {
	return touch(ctx, database, dev, input, dev.LongTouch)
}

type tapFunc func(context.Context, geometry.Point, int) (geometry.Point, error)

func touch(ctx context.Context, database *sql.DB, dev *device.Device, input TouchInput, tap tapFunc) (*TouchOutput, error) {
	if dev == nil {
		return nil, errors.NewInvalidRequest("no device configured")
	}
	orientation, err := orientationOrUnspecified(input.Orientation)
	if err != nil {
		return nil, err
	}

	p, authored, err := resolveTarget(database, input.Target)
	if err != nil {
		return nil, err
	}
	if input.Orientation == nil {
		orientation = authored
	}

	sent, err := tap(ctx, p, orientation)
	if err != nil {
		return nil, err
	}
	return &TouchOutput{Requested: p, Sent: sent}, nil
}

// Drag swipes between two targets. An explicit orientation applies to both
// endpoints; otherwise each endpoint keeps the orientation its target was
// authored in, so a raw point stays in the live frame.
func Drag(ctx context.Context, database *sql.DB, dev *device.Device, input DragInput) (*DragOutput, error) {
	if dev == nil {
		return nil, errors.NewInvalidRequest("no device configured")
	}
	orientation, err := orientationOrUnspecified(input.Orientation)
	if err != nil {
		return nil, err
	}
	if input.DurationMs < 0 {
		return nil, errors.NewInvalidRequest("duration_ms must not be negative")
	}
	duration := input.DurationMs
	if duration == 0 {
		duration = DefaultDragDurationMs
	}

	from, fromOrientation, err := resolveTarget(database, input.From)
	if err != nil {
		return nil, err
	}
	to, toOrientation, err := resolveTarget(database, input.To)
	if err != nil {
		return nil, err
	}
	if input.Orientation != nil {
		fromOrientation, toOrientation = orientation, orientation
	}

	start, end, err := dev.Drag(ctx, from, to, fromOrientation, toOrientation, duration)
	if err != nil {
		return nil, err
	}
	return &DragOutput{
		From:       from,
		To:         to,
		SentFrom:   start,
		SentTo:     end,
		DurationMs: duration,
	}, nil
}

// Press sends a key event.
func Press(ctx context.Context, dev *device.Device, input PressInput) (*PressOutput, error) {
	if dev == nil {
		return nil, errors.NewInvalidRequest("no device configured")
	}
	key := strings.TrimSpace(input.Key)
	if key == "" {
		return nil, errors.NewInvalidRequest("key is required")
	}
	if err := dev.Press(ctx, key); err != nil {
		return nil, err
	}
	return &PressOutput{Key: key}, nil
}

// TypeInput contains parameters for the Type operation.
type TypeInput struct {
	Text string

	// Target, when given, is clicked and receives the text. Otherwise the
	// text goes to the focused field.
	Target *Target

	Orientation *int // see TouchInput.Orientation
}

// TypeOutput contains the result of the Type operation.
type TypeOutput struct {
	Text string          `json:"text"`
	Sent *geometry.Point `json:"sent,omitempty"`
}

// Type enters text on the device.
func Type(ctx context.Context, database *sql.DB, dev *device.Device, input TypeInput) (*TypeOutput, error) {
	if dev == nil {
		return nil, errors.NewInvalidRequest("no device configured")
	}
	if input.Text == "" {
		return nil, errors.NewInvalidRequest("text is required")
	}
	orientation, err := orientationOrUnspecified(input.Orientation)
	if err != nil {
		return nil, err
	}

	if input.Target == nil {
		if err := dev.Type(ctx, input.Text); err != nil {
			return nil, err
		}
		return &TypeOutput{Text: input.Text}, nil
	}

	p, authored, err := resolveTarget(database, *input.Target)
	if err != nil {
		return nil, err
	}
	if input.Orientation == nil {
		orientation = authored
	}
	sent, err := dev.TypeAt(ctx, p, orientation, input.Text)
	if err != nil {
		return nil, err
	}
	return &TypeOutput{Text: input.Text, Sent: &sent}, nil
}

// UnlockOutput contains the result of the Unlock operation.
type UnlockOutput struct {
	Keys []string `json:"keys"`
}

// Unlock dismisses the lock screen.
func Unlock(ctx context.Context, dev *device.Device) (*UnlockOutput, error) {
	if dev == nil {
		return nil, errors.NewInvalidRequest("no device configured")
	}
	if err := dev.Unlock(ctx); err != nil {
		return nil, err
	}
	return &UnlockOutput{Keys: []string{"Home", "Back"}}, nil
}

// resolveTarget returns the point a target names and the orientation it was
// authored in, OrientationUnspecified for raw coordinates.
func resolveTarget(database *sql.DB, t Target) (geometry.Point, int, error) {
	byPoint := t.X != nil || t.Y != nil
	byView := strings.TrimSpace(t.SnapshotID) != "" || t.TempID != nil

	switch {
	case byPoint && byView:
		return geometry.Point{}, 0, errors.NewInvalidRequest("give either x and y or snapshot_id and temp_id, not both")
	case byPoint:
		if t.X == nil || t.Y == nil {
			return geometry.Point{}, 0, errors.NewInvalidRequest("x and y are required together")
		}
		if *t.X < 0 || *t.Y < 0 {
			return geometry.Point{}, 0, errors.NewInvalidRequest("x and y must not be negative")
		}
		return geometry.Point{X: *t.X, Y: *t.Y}, display.OrientationUnspecified, nil
	case byView:
		return viewCenter(database, strings.TrimSpace(t.SnapshotID), t.TempID)
	default:
		return geometry.Point{}, 0, errors.NewInvalidRequest("x and y or snapshot_id and temp_id are required")
	}
}

func viewCenter(database *sql.DB, snapshotID string, tempID *int) (geometry.Point, int, error) {
	if snapshotID == "" || tempID == nil {
		return geometry.Point{}, 0, errors.NewInvalidRequest("snapshot_id and temp_id are required together")
	}
	if database == nil {
		return geometry.Point{}, 0, errors.NewInvalidRequest("view targets need the snapshot store")
	}

	s, err := db.GetByID(database, snapshotID, false)
	if err != nil {
		return geometry.Point{}, 0, err
	}
	v, ok := s.Views.Find(*tempID)
	if !ok {
		return geometry.Point{}, 0, errors.NewViewNotFound(snapshotID, *tempID)
	}
	if v.Bounds == nil {
		return geometry.Point{}, 0, errors.NewInvalidRequest("view has no bounds")
	}

	return v.Bounds.Center(), s.Display.OrientationOr(display.OrientationUnspecified), nil
}
