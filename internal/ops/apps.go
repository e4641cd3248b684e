package ops

import (
	"context"

	"github.com/hpungsan/hdcview/internal/device"
	"github.com/hpungsan/hdcview/internal/errors"
)

// AppsOutput contains the result of the Apps operation.
type AppsOutput struct {
	Serial string   `json:"serial,omitempty"`
	Apps   []string `json:"apps"`
	Total  int      `json:"total"`
}

// Apps lists the bundles installed on the device.
func Apps(ctx context.Context, dev *device.Device) (*AppsOutput, error) {
	if dev == nil {
		return nil, errors.NewInvalidRequest("no device configured")
	}
	apps, err := dev.InstalledApps(ctx)
	if err != nil {
		return nil, err
	}
	return &AppsOutput{Serial: dev.Serial(), Apps: apps, Total: len(apps)}, nil
}
