package ops

import (
	"context"

	"github.com/hpungsan/hdcview/internal/device"
	"github.com/hpungsan/hdcview/internal/display"
	"github.com/hpungsan/hdcview/internal/errors"
)

// DisplayOutput contains the result of the Display operation.
type DisplayOutput struct {
	Serial string       `json:"serial,omitempty"`
	Info   display.Info `json:"display"`

	// Missing lists fields no source reported
	Missing []string `json:"missing"`

	// ResolvedBy names, in order, the sources that contributed a value
	ResolvedBy []string `json:"resolved_by"`
}

// Display queries the device for its current geometry.
func Display(ctx context.Context, dev *device.Device) (*DisplayOutput, error) {
	if dev == nil {
		return nil, errors.NewInvalidRequest("no device configured")
	}

	src, err := dev.Sources(ctx)
	if err != nil {
		return nil, err
	}
	info, used := display.ExtractTrace(src)

	missing := info.Missing()
	if missing == nil {
		missing = []string{}
	}
	if used == nil {
		used = []string{}
	}

	return &DisplayOutput{
		Serial:     dev.Serial(),
		Info:       info,
		Missing:    missing,
		ResolvedBy: used,
	}, nil
}
