package device

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/semaphore"

	"github.com/hpungsan/hdcview/internal/display"
	"github.com/hpungsan/hdcview/internal/errors"
	"github.com/hpungsan/hdcview/internal/geometry"
	"github.com/hpungsan/hdcview/internal/view"
)

// DefaultDensityProperties are tried in order before "wm density".
var DefaultDensityProperties = []string{"ro.sf.lcd_density", "qemu.sf.lcd_density"}

// Options configures a Device.
type Options struct {
	Serial            string
	DensityProperties []string
	Logger            *log.Logger // defaults to log.Default()
}

// Device is one connected device reached through an Executor.
type Device struct {
	exec         Executor
	serial       string
	densityProps []string
	logger       *log.Logger

	// imports admits one layout import at a time.
	imports *semaphore.Weighted
}

// New returns a Device that runs commands through exec.
func New(exec Executor, opts Options) *Device {
	props := opts.DensityProperties
	if len(props) == 0 {
		props = DefaultDensityProperties
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Device{
		exec:         exec,
		serial:       opts.Serial,
		densityProps: props,
		logger:       logger,
		imports:      semaphore.NewWeighted(1),
	}
}

// Serial returns the configured device serial, which may be empty.
func (d *Device) Serial() string {
	return d.serial
}

// Shell runs a command in the device shell.
func (d *Device) Shell(ctx context.Context, args ...string) (string, error) {
	full := make([]string, 0, len(args)+1)
	full = append(full, "shell")
	for _, a := range args {
		full = append(full, quote(a))
	}
	return d.exec.Run(ctx, full...)
}

// Property reads a system property. Unknown properties read as "".
func (d *Device) Property(ctx context.Context, name string) (string, error) {
	return d.Shell(ctx, "getprop", name)
}

// Sources collects the raw introspection output the display extractor reads.
// A command that fails leaves its source empty; only cancellation is an error.
func (d *Device) Sources(ctx context.Context) (display.Sources, error) {
	var src display.Sources

	shell := func(args ...string) string {
		out, err := d.Shell(ctx, args...)
		if err != nil {
			d.logger.Printf("display source %q unavailable: %v", strings.Join(args, " "), err)
			return ""
		}
		return out
	}

	src.DisplayDump = shell("dumpsys", "display")
	src.WMSize = shell("wm", "size")
	src.WindowDump = shell("dumpsys", "window")
	src.InputDump = shell("dumpsys", "input")
	for _, prop := range d.densityProps {
		src.DensityProps = append(src.DensityProps, shell("getprop", prop))
	}
	src.WMDensity = shell("wm", "density")

	if ctx.Err() != nil {
		return display.Sources{}, errors.NewCancelled("display query")
	}
	return src, nil
}

// DisplayInfo queries the device and extracts its display geometry.
// Fields no source reported are logged and left nil.
func (d *Device) DisplayInfo(ctx context.Context) (display.Info, error) {
	src, err := d.Sources(ctx)
	if err != nil {
		return display.Info{}, err
	}

	info := display.Extract(src)
	if missing := info.Missing(); len(missing) > 0 {
		d.logger.Printf("display info incomplete, missing %s", strings.Join(missing, ", "))
	}
	return info, nil
}

// Orientation returns the live orientation, or -1 when unknown.
func (d *Device) Orientation(ctx context.Context) (int, error) {
	info, err := d.DisplayInfo(ctx)
	if err != nil {
		return 0, err
	}
	return info.OrientationOr(display.OrientationUnspecified), nil
}

// Density returns the display density, or -1.0 when unknown.
func (d *Device) Density(ctx context.Context) (float64, error) {
	info, err := d.DisplayInfo(ctx)
	if err != nil {
		return 0, err
	}
	return info.DensityOr(-1.0), nil
}

// DumpLayout asks the device for a layout dump and copies it into dir.
// It returns the local file path.
func (d *Device) DumpLayout(ctx context.Context, dir string) (string, error) {
	out, err := d.Shell(ctx, "uitest", "dumpLayout")
	if err != nil {
		return "", err
	}

	// "DumpLayout saves to:/data/local/tmp/layout_1700000000.json"
	remote := strings.TrimSpace(out[strings.LastIndex(out, ":")+1:])
	if remote == "" || !strings.HasPrefix(remote, "/") {
		return "", errors.NewCommandFailed([]string{"shell", "uitest", "dumpLayout"}, out, fmt.Errorf("no layout path in output"))
	}

	local := filepath.Join(dir, path.Base(remote))
	args := []string{"file", "recv", remote, local}
	recv, err := d.exec.Run(ctx, args...)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(recv, "[Fail]") {
		return "", errors.NewCommandFailed(args, recv, nil)
	}

	return local, nil
}

// Views dumps the current layout and builds its view tree. Only one import
// runs at a time per device; later callers wait or give up with ctx.
func (d *Device) Views(ctx context.Context, dir string) (view.Tree, error) {
	if err := d.imports.Acquire(ctx, 1); err != nil {
		return nil, errors.NewCancelled("layout import")
	}
	defer d.imports.Release(1)

	local, err := d.DumpLayout(ctx, dir)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(local)
	if err != nil {
		return nil, errors.NewCommandFailed([]string{"file", "recv"}, "", err)
	}
	defer f.Close()

	raw, err := view.Decode(f)
	if err != nil {
		return nil, err
	}
	return view.Build(raw)
}

// resolve maps p from orientation into the live frame. An unspecified
// orientation means p is already in the live frame.
func resolve(p geometry.Point, orientation int, info display.Info) (geometry.Point, error) {
	live := info.OrientationOr(display.OrientationUnspecified)
	if orientation == display.OrientationUnspecified {
		orientation = live
	}
	return display.Transform(p, orientation, live, info)
}

// Touch taps p, authored in the given orientation.
func (d *Device) Touch(ctx context.Context, p geometry.Point, orientation int) (geometry.Point, error) {
	return d.tap(ctx, "click", p, orientation)
}

// LongTouch long-presses p, authored in the given orientation.
func (d *Device) LongTouch(ctx context.Context, p geometry.Point, orientation int) (geometry.Point, error) {
	return d.tap(ctx, "longClick", p, orientation)
}

func (d *Device) tap(ctx context.Context, action string, p geometry.Point, orientation int) (geometry.Point, error) {
	info, err := d.DisplayInfo(ctx)
	if err != nil {
		return geometry.Point{}, err
	}
	at, err := resolve(p, orientation, info)
	if err != nil {
		return geometry.Point{}, err
	}
	if _, err := d.Shell(ctx, "uitest", "uiInput", action, strconv.Itoa(at.X), strconv.Itoa(at.Y)); err != nil {
		return geometry.Point{}, err
	}
	return at, nil
}

// Drag swipes from one point to another over durationMs milliseconds. Each
// endpoint is resolved from its own authored orientation. It returns the
// dispatched endpoints.
func (d *Device) Drag(ctx context.Context, from, to geometry.Point, fromOrientation, toOrientation, durationMs int) (geometry.Point, geometry.Point, error) {
	info, err := d.DisplayInfo(ctx)
	if err != nil {
		return geometry.Point{}, geometry.Point{}, err
	}
	start, err := resolve(from, fromOrientation, info)
	if err != nil {
		return geometry.Point{}, geometry.Point{}, err
	}
	end, err := resolve(to, toOrientation, info)
	if err != nil {
		return geometry.Point{}, geometry.Point{}, err
	}

	_, err = d.Shell(ctx, "uitest", "uiInput", "swipe",
		strconv.Itoa(start.X), strconv.Itoa(start.Y),
		strconv.Itoa(end.X), strconv.Itoa(end.Y),
		strconv.Itoa(durationMs))
	if err != nil {
		return geometry.Point{}, geometry.Point{}, err
	}
	return start, end, nil
}

// Press sends a key event such as "Home" or "Back".
func (d *Device) Press(ctx context.Context, key string) error {
	_, err := d.Shell(ctx, "uitest", "uiInput", "keyEvent", key)
	return err
}

// Unlock wakes the screen and dismisses the lock screen with Home then Back.
func (d *Device) Unlock(ctx context.Context) error {
	if err := d.Press(ctx, "Home"); err != nil {
		return err
	}
	return d.Press(ctx, "Back")
}

// Type enters text into the focused field. Spaces travel as "%s", so a
// literal "%s" in text is escaped first.
func (d *Device) Type(ctx context.Context, text string) error {
	encoded := strings.ReplaceAll(text, "%s", `\%s`)
	encoded = strings.ReplaceAll(encoded, " ", "%s")
	_, err := d.Shell(ctx, "input", "text", encoded)
	return err
}

// TypeAt clicks the field at p, authored in the given orientation, and
// enters text into it. It returns the dispatched point.
func (d *Device) TypeAt(ctx context.Context, p geometry.Point, orientation int, text string) (geometry.Point, error) {
	info, err := d.DisplayInfo(ctx)
	if err != nil {
		return geometry.Point{}, err
	}
	at, err := resolve(p, orientation, info)
	if err != nil {
		return geometry.Point{}, err
	}
	if _, err := d.Shell(ctx, "uitest", "uiInput", "inputText", strconv.Itoa(at.X), strconv.Itoa(at.Y), text); err != nil {
		return geometry.Point{}, err
	}
	return at, nil
}

// InstalledApps lists the bundle names reported by "bm dump -a".
func (d *Device) InstalledApps(ctx context.Context) ([]string, error) {
	out, err := d.Shell(ctx, "bm", "dump", "-a")
	if err != nil {
		return nil, err
	}
	apps := []string{}
	for _, line := range strings.Split(out, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			apps = append(apps, name)
		}
	}
	return apps, nil
}
