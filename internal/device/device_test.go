package device

import (
	"bytes"
	"context"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/hpungsan/hdcview/internal/config"
	"github.com/hpungsan/hdcview/internal/device/devicetest"
	"github.com/hpungsan/hdcview/internal/display"
	"github.com/hpungsan/hdcview/internal/errors"
	"github.com/hpungsan/hdcview/internal/geometry"
)

const viewportLine = "  DisplayViewport{valid=true, type=INTERNAL, orientation=%s, logicalFrame=Rect(0, 0 - 1000, 2000), deviceWidth=1000, deviceHeight=2000, isActive=true}"

// landscape scripts a device whose live orientation is 1 and whose density
// comes from the emulator property.
func landscape() *devicetest.Fake {
	return devicetest.New().
		On("shell dumpsys display", strings.Replace(viewportLine, "%s", "1", 1)).
		On("shell wm size", "Physical size: 1000x2000").
		On("shell dumpsys window", "").
		On("shell dumpsys input", "").
		On("shell getprop ro.sf.lcd_density", "").
		On("shell getprop qemu.sf.lcd_density", "320").
		On("shell wm density", "Physical density: 480")
}

func newTestDevice(exec Executor) (*Device, *bytes.Buffer) {
	var logs bytes.Buffer
	return New(exec, Options{Logger: log.New(&logs, "", 0)}), &logs
}

func TestShell_Quoting(t *testing.T) {
	fake := devicetest.New().On("shell echo 'hello world' '' 'it'\"'\"'s'", "ok")
	d, _ := newTestDevice(fake)

	out, err := d.Shell(context.Background(), "echo", "hello world", "", "it's")
	if err != nil {
		t.Fatalf("Shell() error = %v", err)
	}
	if out != "ok" {
		t.Errorf("Shell() = %q", out)
	}
}

func TestProperty(t *testing.T) {
	fake := devicetest.New().On("shell getprop const.product.model", "NOH-AN00")
	d, _ := newTestDevice(fake)

	got, err := d.Property(context.Background(), "const.product.model")
	if err != nil {
		t.Fatalf("Property() error = %v", err)
	}
	if got != "NOH-AN00" {
		t.Errorf("Property() = %q", got)
	}
}

func TestDisplayInfo(t *testing.T) {
	d, logs := newTestDevice(landscape())

	info, err := d.DisplayInfo(context.Background())
	if err != nil {
		t.Fatalf("DisplayInfo() error = %v", err)
	}
	if info.Width == nil || *info.Width != 1000 || info.Height == nil || *info.Height != 2000 {
		t.Errorf("size = %v x %v", info.Width, info.Height)
	}
	if info.Orientation == nil || *info.Orientation != 1 {
		t.Errorf("orientation = %v", info.Orientation)
	}
	if info.Density == nil || *info.Density != 320 {
		t.Errorf("density = %v, want 320 from emulator property", info.Density)
	}
	if logs.Len() != 0 {
		t.Errorf("unexpected logs: %s", logs.String())
	}
}

func TestDisplayInfo_ToleratesFailedSources(t *testing.T) {
	fake := devicetest.New().
		Fail("shell dumpsys display").
		On("shell wm size", "Physical size: 1080x2340").
		Fail("shell dumpsys window").
		Fail("shell dumpsys input").
		On("shell getprop ro.sf.lcd_density", "480").
		Fail("shell getprop qemu.sf.lcd_density").
		Fail("shell wm density")
	d, logs := newTestDevice(fake)

	info, err := d.DisplayInfo(context.Background())
	if err != nil {
		t.Fatalf("DisplayInfo() error = %v", err)
	}
	if *info.Width != 1080 || *info.Height != 2340 || *info.Density != 480 {
		t.Errorf("info = %+v", info)
	}
	if info.Orientation != nil {
		t.Errorf("orientation = %d, want absent", *info.Orientation)
	}
	if !strings.Contains(logs.String(), `display source "dumpsys display" unavailable`) {
		t.Errorf("failed source not logged: %s", logs.String())
	}
	if !strings.Contains(logs.String(), "missing orientation") {
		t.Errorf("missing field not logged: %s", logs.String())
	}
}

func TestDisplayInfo_CustomDensityProperties(t *testing.T) {
	fake := landscape().On("shell getprop persist.sys.dpi", "560")
	d := New(fake, Options{DensityProperties: []string{"persist.sys.dpi"}, Logger: log.New(&bytes.Buffer{}, "", 0)})

	density, err := d.Density(context.Background())
	if err != nil {
		t.Fatalf("Density() error = %v", err)
	}
	if density != 560 {
		t.Errorf("Density() = %v, want 560", density)
	}
	for _, call := range fake.Calls() {
		if strings.Contains(call, "lcd_density") {
			t.Errorf("default property queried: %q", call)
		}
	}
}

func TestDisplayInfo_Cancelled(t *testing.T) {
	d, _ := newTestDevice(landscape())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.DisplayInfo(ctx)
	if !errors.Is(err, errors.ErrCancelled) {
		t.Errorf("error = %v, want CANCELLED", err)
	}
}

func TestOrientationAndDensity_Unknown(t *testing.T) {
	fake := devicetest.New()
	d, _ := newTestDevice(fake)

	o, err := d.Orientation(context.Background())
	if err != nil {
		t.Fatalf("Orientation() error = %v", err)
	}
	if o != -1 {
		t.Errorf("Orientation() = %d, want -1", o)
	}

	density, err := d.Density(context.Background())
	if err != nil {
		t.Fatalf("Density() error = %v", err)
	}
	if density != -1.0 {
		t.Errorf("Density() = %v, want -1.0", density)
	}
}

func TestDumpLayout(t *testing.T) {
	dir := t.TempDir()
	fake := devicetest.New().Layout(`{"attributes": {}, "children": []}`)
	d, _ := newTestDevice(fake)

	local, err := d.DumpLayout(context.Background(), dir)
	if err != nil {
		t.Fatalf("DumpLayout() error = %v", err)
	}
	if local != filepath.Join(dir, "layout_1700000000.json") {
		t.Errorf("local = %q", local)
	}
	if _, err := os.Stat(local); err != nil {
		t.Errorf("dump not copied: %v", err)
	}

	calls := fake.Calls()
	want := "file recv /data/local/tmp/layout_1700000000.json " + local
	if len(calls) != 2 || calls[1] != want {
		t.Errorf("calls = %v", calls)
	}
}

func TestDumpLayout_RecvFail(t *testing.T) {
	fake := devicetest.New().On("shell uitest dumpLayout", "DumpLayout saves to:/data/local/tmp/missing.json")
	d, _ := newTestDevice(fake)

	_, err := d.DumpLayout(context.Background(), t.TempDir())
	if !errors.Is(err, errors.ErrCommandFailed) {
		t.Errorf("error = %v, want COMMAND_FAILED", err)
	}
}

func TestDumpLayout_NoPath(t *testing.T) {
	fake := devicetest.New().On("shell uitest dumpLayout", "uitest: permission denied")
	d, _ := newTestDevice(fake)

	_, err := d.DumpLayout(context.Background(), t.TempDir())
	if !errors.Is(err, errors.ErrCommandFailed) {
		t.Errorf("error = %v, want COMMAND_FAILED", err)
	}
}

func TestViews(t *testing.T) {
	fake := devicetest.New().Layout(`{
		"attributes": {"type": "root", "bundleName": "com.example.app", "bounds": "[0,0][1000,2000]"},
		"children": [{"attributes": {"type": "Button", "bounds": "[0,0][100,100]", "clickable": "true"}, "children": []}]
	}`)
	d, _ := newTestDevice(fake)

	tree, err := d.Views(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Views() error = %v", err)
	}
	if len(tree) != 2 {
		t.Fatalf("len(tree) = %d, want 2", len(tree))
	}
	if !tree[1].Clickable || tree[1].Package == nil || *tree[1].Package != "com.example.app" {
		t.Errorf("tree[1] = %+v", tree[1])
	}
}

func TestViews_MalformedBounds(t *testing.T) {
	fake := devicetest.New().Layout(`{"attributes": {"bounds": "[0,0][1000]"}, "children": []}`)
	d, _ := newTestDevice(fake)

	tree, err := d.Views(context.Background(), t.TempDir())
	if !errors.Is(err, errors.ErrMalformedBounds) {
		t.Fatalf("error = %v, want MALFORMED_BOUNDS", err)
	}
	if tree != nil {
		t.Errorf("tree = %v, want nil", tree)
	}
}

func TestViews_DumpCommandFails(t *testing.T) {
	fake := devicetest.New().Fail("shell uitest dumpLayout")
	d, _ := newTestDevice(fake)

	_, err := d.Views(context.Background(), t.TempDir())
	if !errors.Is(err, errors.ErrCommandFailed) {
		t.Errorf("error = %v, want COMMAND_FAILED", err)
	}
}

func TestViews_OneImportAtATime(t *testing.T) {
	fake := devicetest.New().Layout(`{"attributes": {}, "children": []}`)
	d, _ := newTestDevice(fake)

	if err := d.imports.Acquire(context.Background(), 1); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := d.Views(ctx, t.TempDir())
	if !errors.Is(err, errors.ErrCancelled) {
		t.Errorf("error = %v, want CANCELLED while another import holds the device", err)
	}
	if len(fake.Calls()) != 0 {
		t.Errorf("device was queried while busy: %v", fake.Calls())
	}

	d.imports.Release(1)
	if _, err := d.Views(context.Background(), t.TempDir()); err != nil {
		t.Errorf("Views() after release error = %v", err)
	}
}

func lastCall(fake *devicetest.Fake) string {
	calls := fake.Calls()
	if len(calls) == 0 {
		return ""
	}
	return calls[len(calls)-1]
}

func TestTouch(t *testing.T) {
	tests := []struct {
		name        string
		orientation int
		wantCall    string
		want        geometry.Point
	}{
		{"unspecified uses live frame", -1, "shell uitest uiInput click 10 20", geometry.Point{X: 10, Y: 20}},
		{"authored in live frame", 1, "shell uitest uiInput click 10 20", geometry.Point{X: 10, Y: 20}},
		{"portrait point on landscape device", 0, "shell uitest uiInput click 980 10", geometry.Point{X: 980, Y: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := landscape().
				On("shell uitest uiInput click 10 20", "No Error").
				On("shell uitest uiInput click 980 10", "No Error")
			d, _ := newTestDevice(fake)

			got, err := d.Touch(context.Background(), geometry.Point{X: 10, Y: 20}, tt.orientation)
			if err != nil {
				t.Fatalf("Touch() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Touch() = %+v, want %+v", got, tt.want)
			}
			if lastCall(fake) != tt.wantCall {
				t.Errorf("dispatched %q, want %q", lastCall(fake), tt.wantCall)
			}
		})
	}
}

func TestLongTouch(t *testing.T) {
	fake := landscape().On("shell uitest uiInput longClick 20 1990", "No Error")
	fake.On("shell dumpsys display", strings.Replace(viewportLine, "%s", "3", 1))
	d, _ := newTestDevice(fake)

	got, err := d.LongTouch(context.Background(), geometry.Point{X: 10, Y: 20}, 0)
	if err != nil {
		t.Fatalf("LongTouch() error = %v", err)
	}
	if got != (geometry.Point{X: 20, Y: 1990}) {
		t.Errorf("LongTouch() = %+v", got)
	}
}

func TestTouch_DisplayUnavailable(t *testing.T) {
	fake := devicetest.New().
		On("shell dumpsys input", "    SurfaceOrientation: 1")
	d, _ := newTestDevice(fake)

	_, err := d.Touch(context.Background(), geometry.Point{X: 10, Y: 20}, 0)
	if !errors.Is(err, errors.ErrDisplayUnavailable) {
		t.Errorf("error = %v, want DISPLAY_UNAVAILABLE", err)
	}
	for _, call := range fake.Calls() {
		if strings.Contains(call, "uiInput") {
			t.Errorf("gesture dispatched without display size: %q", call)
		}
	}
}

func TestDrag(t *testing.T) {
	fake := landscape().On("shell uitest uiInput swipe 980 10 900 100 300", "No Error")
	d, _ := newTestDevice(fake)

	start, end, err := d.Drag(context.Background(), geometry.Point{X: 10, Y: 20}, geometry.Point{X: 100, Y: 100}, 0, 0, 300)
	if err != nil {
		t.Fatalf("Drag() error = %v", err)
	}
	if start != (geometry.Point{X: 980, Y: 10}) || end != (geometry.Point{X: 900, Y: 100}) {
		t.Errorf("Drag() = %+v -> %+v", start, end)
	}
}

func TestDrag_EndpointsKeepTheirOrientation(t *testing.T) {
	fake := landscape().On("shell uitest uiInput swipe 980 10 100 100 300", "No Error")
	d, _ := newTestDevice(fake)

	start, end, err := d.Drag(context.Background(), geometry.Point{X: 10, Y: 20}, geometry.Point{X: 100, Y: 100},
		0, display.OrientationUnspecified, 300)
	if err != nil {
		t.Fatalf("Drag() error = %v", err)
	}
	if start != (geometry.Point{X: 980, Y: 10}) || end != (geometry.Point{X: 100, Y: 100}) {
		t.Errorf("Drag() = %+v -> %+v", start, end)
	}
}

func TestPress(t *testing.T) {
	fake := devicetest.New().On("shell uitest uiInput keyEvent Home", "No Error")
	d, _ := newTestDevice(fake)

	if err := d.Press(context.Background(), "Home"); err != nil {
		t.Fatalf("Press() error = %v", err)
	}
	if err := d.Press(context.Background(), "Back"); !errors.Is(err, errors.ErrCommandFailed) {
		t.Errorf("Press(Back) error = %v, want COMMAND_FAILED", err)
	}
}

func TestUnlock(t *testing.T) {
	fake := devicetest.New().
		On("shell uitest uiInput keyEvent Home", "No Error").
		On("shell uitest uiInput keyEvent Back", "No Error")
	d, _ := newTestDevice(fake)

	if err := d.Unlock(context.Background()); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	calls := fake.Calls()
	if len(calls) != 2 || calls[0] != "shell uitest uiInput keyEvent Home" || calls[1] != "shell uitest uiInput keyEvent Back" {
		t.Errorf("calls = %q", calls)
	}
}

func TestType(t *testing.T) {
	tests := []struct {
		text    string
		command string
	}{
		{"hello", "shell input text hello"},
		{"hello world", "shell input text hello%sworld"},
		{"50%s off", `shell input text '50\%s%soff'`},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			fake := devicetest.New().On(tt.command, "")
			d, _ := newTestDevice(fake)
			if err := d.Type(context.Background(), tt.text); err != nil {
				t.Fatalf("Type(%q) error = %v; calls = %q", tt.text, err, fake.Calls())
			}
		})
	}
}

func TestTypeAt(t *testing.T) {
	fake := landscape().On("shell uitest uiInput inputText 980 10 'hi there'", "No Error")
	d, _ := newTestDevice(fake)

	at, err := d.TypeAt(context.Background(), geometry.Point{X: 10, Y: 20}, 0, "hi there")
	if err != nil {
		t.Fatalf("TypeAt() error = %v", err)
	}
	if at != (geometry.Point{X: 980, Y: 10}) {
		t.Errorf("TypeAt() = %+v", at)
	}
}

func TestInstalledApps(t *testing.T) {
	fake := devicetest.New().On("shell bm dump -a", "com.example.app\n  com.huawei.hmos.settings  \n\n")
	d, _ := newTestDevice(fake)

	apps, err := d.InstalledApps(context.Background())
	if err != nil {
		t.Fatalf("InstalledApps() error = %v", err)
	}
	if len(apps) != 2 || apps[0] != "com.example.app" || apps[1] != "com.huawei.hmos.settings" {
		t.Errorf("InstalledApps() = %q", apps)
	}

	d, _ = newTestDevice(devicetest.New())
	if _, err := d.InstalledApps(context.Background()); !errors.Is(err, errors.ErrCommandFailed) {
		t.Errorf("error = %v, want COMMAND_FAILED", err)
	}
}

func TestNewHDC(t *testing.T) {
	h := NewHDC(&config.Config{HDCPath: "/opt/hdc", DeviceSerial: "FMR0223", CommandTimeoutSeconds: 5})
	if h.Path != "/opt/hdc" || h.Serial != "FMR0223" || h.Timeout != 5*time.Second {
		t.Errorf("NewHDC() = %+v", h)
	}

	h = NewHDC(nil)
	if h.Path != "hdc" || h.Timeout != 0 {
		t.Errorf("NewHDC(nil) = %+v", h)
	}
}

func TestHDC_Run(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses unix utilities")
	}

	t.Run("success with serial", func(t *testing.T) {
		h := &HDC{Path: "echo", Serial: "FMR0223"}
		out, err := h.Run(context.Background(), "shell", "wm", "size")
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if out != "-t FMR0223 shell wm size" {
			t.Errorf("Run() = %q", out)
		}
	})

	t.Run("non-zero exit", func(t *testing.T) {
		h := &HDC{Path: "false"}
		_, err := h.Run(context.Background(), "list", "targets")
		if !errors.Is(err, errors.ErrCommandFailed) {
			t.Errorf("error = %v, want COMMAND_FAILED", err)
		}
	})

	t.Run("missing binary", func(t *testing.T) {
		h := &HDC{Path: filepath.Join(t.TempDir(), "hdc")}
		_, err := h.Run(context.Background(), "list", "targets")
		if !errors.Is(err, errors.ErrCommandFailed) {
			t.Errorf("error = %v, want COMMAND_FAILED", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		h := &HDC{Path: "sleep", Timeout: 50 * time.Millisecond}
		_, err := h.Run(context.Background(), "5")
		hErr, ok := errors.As(err)
		if !ok || hErr.Code != errors.ErrCommandFailed {
			t.Fatalf("error = %v, want COMMAND_FAILED", err)
		}
		if !strings.Contains(hErr.Message, "timed out") {
			t.Errorf("Message = %q", hErr.Message)
		}
	})

	t.Run("caller cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		h := &HDC{Path: "sleep"}
		_, err := h.Run(ctx, "5")
		if !errors.Is(err, errors.ErrCancelled) {
			t.Errorf("error = %v, want CANCELLED", err)
		}
	})
}
