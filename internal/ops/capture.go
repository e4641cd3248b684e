package ops

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hpungsan/hdcview/internal/config"
	"github.com/hpungsan/hdcview/internal/db"
	"github.com/hpungsan/hdcview/internal/device"
	"github.com/hpungsan/hdcview/internal/display"
	"github.com/hpungsan/hdcview/internal/errors"
	"github.com/hpungsan/hdcview/internal/snapshot"
	"github.com/hpungsan/hdcview/internal/view"
)

// CaptureInput contains parameters for the Capture operation.
type CaptureInput struct {
	Path   string  // optional local layout dump; empty captures from the device
	Serial string  // serial recorded for a Path capture, default "default"
	Label  *string // optional
}

// CaptureOutput contains the result of the Capture operation.
type CaptureOutput struct {
	ID        string       `json:"id"`
	Serial    string       `json:"serial"`
	Source    string       `json:"source"`
	Package   *string      `json:"package,omitempty"`
	ViewCount int          `json:"view_count"`
	Display   display.Info `json:"display"`
	Missing   []string     `json:"missing,omitempty"`
}

// Capture builds a view tree, from the device or from a dump file, and
// stores it as a new snapshot. Any malformed bounds value fails the whole
// capture and nothing is stored.
func Capture(ctx context.Context, database *sql.DB, cfg *config.Config, dev *device.Device, input CaptureInput) (*CaptureOutput, error) {
	label := cleanLabel(input.Label)

	var (
		s   *snapshot.Snapshot
		err error
	)
	if input.Path != "" {
		s, err = captureFile(cfg, input.Path, input.Serial)
	} else {
		s, err = captureDevice(ctx, dev)
	}
	if err != nil {
		return nil, err
	}

	id, err := newULID()
	if err != nil {
		return nil, err
	}
	s.ID = id
	s.Label = label
	s.Package = snapshot.RootPackage(s.Views)
	s.ViewCount = len(s.Views)
	s.CreatedAt = time.Now().Unix()

	if ctx.Err() != nil {
		return nil, errors.NewCancelled("capture")
	}
	if err := db.Insert(database, s); err != nil {
		return nil, err
	}

	return &CaptureOutput{
		ID:        s.ID,
		Serial:    s.Serial,
		Source:    s.Source,
		Package:   s.Package,
		ViewCount: s.ViewCount,
		Display:   s.Display,
		Missing:   s.Display.Missing(),
	}, nil
}

func captureDevice(ctx context.Context, dev *device.Device) (*snapshot.Snapshot, error) {
	if dev == nil {
		return nil, errors.NewInvalidRequest("no device configured; pass a dump file path instead")
	}

	dir, err := os.MkdirTemp("", "hdcview-dump-")
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create dump directory: %w", err))
	}
	defer os.RemoveAll(dir)

	tree, err := dev.Views(ctx, dir)
	if err != nil {
		return nil, err
	}
	info, err := dev.DisplayInfo(ctx)
	if err != nil {
		return nil, err
	}

	return &snapshot.Snapshot{
		Serial:  snapshot.NormalizeSerial(dev.Serial()),
		Source:  snapshot.SourceDevice,
		Display: info,
		Views:   tree,
	}, nil
}

func captureFile(cfg *config.Config, path, serial string) (*snapshot.Snapshot, error) {
	if err := ValidatePath(path, PathCheckDump, cfg); err != nil {
		return nil, err
	}

	f, err := openFileNoFollowRead(path)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open layout dump: %w", err))
	}
	defer f.Close()

	raw, err := view.Decode(f)
	if err != nil {
		return nil, err
	}
	tree, err := view.Build(raw)
	if err != nil {
		return nil, err
	}

	return &snapshot.Snapshot{
		Serial: snapshot.NormalizeSerial(serial),
		Source: snapshot.SourceFile,
		Views:  tree,
	}, nil
}

// cleanLabel trims a label; blank means no label.
func cleanLabel(label *string) *string {
	if label == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*label)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
