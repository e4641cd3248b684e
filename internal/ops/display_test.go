package ops

import (
	"context"
	"strings"
	"testing"

	"github.com/hpungsan/hdcview/internal/device/devicetest"
	"github.com/hpungsan/hdcview/internal/errors"
)

func TestDisplay(t *testing.T) {
	out, err := Display(context.Background(), newDevice(scriptedDevice(1), "SER1"))
	if err != nil {
		t.Fatalf("Display failed: %v", err)
	}

	if out.Serial != "SER1" {
		t.Errorf("Serial = %q", out.Serial)
	}
	if out.Info.Orientation == nil || *out.Info.Orientation != 1 {
		t.Errorf("Orientation = %v, want 1", out.Info.Orientation)
	}
	if out.Info.Density == nil || *out.Info.Density != 480 {
		t.Errorf("Density = %v, want 480", out.Info.Density)
	}
	if len(out.Missing) != 0 {
		t.Errorf("Missing = %v", out.Missing)
	}
	if got := strings.Join(out.ResolvedBy, ","); got != "display viewport,density property" {
		t.Errorf("ResolvedBy = %q", got)
	}
}

func TestDisplay_PartialSources(t *testing.T) {
	fake := devicetest.New().
		On("shell wm size", "Physical size: 720x1280").
		On("shell getprop ro.sf.lcd_density", "").
		On("shell getprop qemu.sf.lcd_density", "")
	dev, logs := logsTo(fake)

	out, err := Display(context.Background(), dev)
	if err != nil {
		t.Fatalf("Display failed: %v", err)
	}
	if out.Info.Width == nil || *out.Info.Width != 720 {
		t.Errorf("Width = %v, want 720", out.Info.Width)
	}
	if got := strings.Join(out.Missing, ","); got != "orientation,density" {
		t.Errorf("Missing = %q", got)
	}
	if got := strings.Join(out.ResolvedBy, ","); got != "wm size" {
		t.Errorf("ResolvedBy = %q", got)
	}
	if !strings.Contains(logs.String(), "unavailable") {
		t.Errorf("failed sources should be logged, got %q", logs.String())
	}
}

func TestDisplay_NoDevice(t *testing.T) {
	if _, err := Display(context.Background(), nil); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST, got %v", err)
	}
}
