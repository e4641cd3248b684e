package ops

import (
	"bytes"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/hdcview/internal/config"
	"github.com/hpungsan/hdcview/internal/db"
	"github.com/hpungsan/hdcview/internal/device"
	"github.com/hpungsan/hdcview/internal/device/devicetest"
	"github.com/hpungsan/hdcview/internal/errors"
	"github.com/hpungsan/hdcview/internal/snapshot"
	"github.com/hpungsan/hdcview/internal/view"
)

// sampleDump is a layout with BFS order root(0), Column(1), Button(2),
// Text(3). The button's center is (200,300).
const sampleDump = `{
  "attributes": {"bundleName": "com.example.app", "type": "root", "bounds": "[0,0][1080,2340]"},
  "children": [{
    "attributes": {"type": "Column", "bounds": "[0,100][1080,2000]"},
    "children": [
      {"attributes": {"type": "Button", "text": "OK", "clickable": "true", "bounds": "[100,200][300,400]"}, "children": []},
      {"attributes": {"type": "Text", "text": "Hello", "bounds": "[100,500][600,560]"}, "children": []}
    ]
  }]
}`

const viewportLine = "  DisplayViewport{valid=true, type=INTERNAL, orientation=%d, logicalFrame=Rect(0, 0 - 1080, 2340), deviceWidth=1080, deviceHeight=2340, isActive=true}"

// newTestEnv returns a database and a config whose allowed_paths contains
// the returned directory.
func newTestEnv(t *testing.T) (*sql.DB, *config.Config, string) {
	t.Helper()
	tmpDir := t.TempDir()
	database, err := db.Init(filepath.Join(tmpDir, ".hdcview"))
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{tmpDir}
	return database, cfg, tmpDir
}

// scriptedDevice scripts display sources for a 1080x2340 device in the
// given orientation, plus a layout dump of sampleDump.
func scriptedDevice(orientation int) *devicetest.Fake {
	return devicetest.New().
		On("shell dumpsys display", fmt.Sprintf(viewportLine, orientation)).
		On("shell wm size", "Physical size: 1080x2340").
		On("shell dumpsys window", "").
		On("shell dumpsys input", "").
		On("shell getprop ro.sf.lcd_density", "480").
		On("shell getprop qemu.sf.lcd_density", "").
		On("shell wm density", "Physical density: 480").
		Layout(sampleDump)
}

func newDevice(fake *devicetest.Fake, serial string) *device.Device {
	return device.New(fake, device.Options{Serial: serial, Logger: log.New(io.Discard, "", 0)})
}

func sampleTree(t *testing.T) view.Tree {
	t.Helper()
	raw, err := view.Decode(strings.NewReader(sampleDump))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	tree, err := view.Build(raw)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return tree
}

// insertSnapshot stores a snapshot of sampleDump with the given display
// orientation, or none when orientation is negative.
func insertSnapshot(t *testing.T, database *sql.DB, id, serial string, createdAt int64, orientation int) *snapshot.Snapshot {
	t.Helper()
	tree := sampleTree(t)
	s := &snapshot.Snapshot{
		ID:        id,
		Serial:    serial,
		Source:    snapshot.SourceFile,
		Package:   snapshot.RootPackage(tree),
		Views:     tree,
		ViewCount: len(tree),
		CreatedAt: createdAt,
	}
	if orientation >= 0 {
		w, h := 1080, 2340
		s.Display.Width, s.Display.Height, s.Display.Orientation = &w, &h, &orientation
	}
	if err := db.Insert(database, s); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	return s
}

func writeDump(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write dump: %v", err)
	}
	return path
}

func stringPtr(s string) *string { return &s }
func intPtr(v int) *int          { return &v }
func boolPtr(b bool) *bool       { return &b }

func TestOptionalSerial(t *testing.T) {
	if optionalSerial("") != nil || optionalSerial("   ") != nil {
		t.Error("blank serial should mean every device")
	}
	if got := optionalSerial(" SER1 "); got == nil || *got != "SER1" {
		t.Errorf("optionalSerial = %v, want SER1", got)
	}
}

func TestNewULID_Monotonic(t *testing.T) {
	prev := ""
	for i := 0; i < 100; i++ {
		id, err := newULID()
		if err != nil {
			t.Fatalf("newULID failed: %v", err)
		}
		if len(id) != 26 {
			t.Fatalf("len(id) = %d, want 26", len(id))
		}
		if id <= prev {
			t.Fatalf("id %s not after %s", id, prev)
		}
		prev = id
	}
}

func TestOrientationOrUnspecified(t *testing.T) {
	if o, err := orientationOrUnspecified(nil); err != nil || o != -1 {
		t.Errorf("nil = %d, %v; want -1", o, err)
	}
	if o, err := orientationOrUnspecified(intPtr(3)); err != nil || o != 3 {
		t.Errorf("3 = %d, %v; want 3", o, err)
	}
	for _, bad := range []int{-1, 4} {
		if _, err := orientationOrUnspecified(intPtr(bad)); !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("%d: expected INVALID_REQUEST, got %v", bad, err)
		}
	}
}

// logsTo returns a device whose log output is captured.
func logsTo(fake *devicetest.Fake) (*device.Device, *bytes.Buffer) {
	var buf bytes.Buffer
	return device.New(fake, device.Options{Logger: log.New(&buf, "", 0)}), &buf
}
