package ops

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestLatest_Empty(t *testing.T) {
	database, _, _ := newTestEnv(t)

	out, err := Latest(database, LatestInput{})
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if out.Item != nil {
		t.Errorf("Item = %+v, want nil", out.Item)
	}
	data, _ := json.Marshal(out)
	if string(data) != `{"item":null}` {
		t.Errorf("json = %s", data)
	}
}

func TestLatest_SummaryByDefault(t *testing.T) {
	database, _, _ := newTestEnv(t)
	insertSnapshot(t, database, "01A", "SER1", 1000, 0)
	insertSnapshot(t, database, "01B", "SER1", 2000, 0)

	out, err := Latest(database, LatestInput{Serial: "SER1"})
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if out.Item == nil || out.Item.ID != "01B" {
		t.Fatalf("Item = %+v, want 01B", out.Item)
	}
	if out.Item.Views != nil {
		t.Error("Views should be omitted by default")
	}
	data, _ := json.Marshal(out)
	if strings.Contains(string(data), `"views"`) {
		t.Errorf("views key present: %s", data)
	}
}

func TestLatest_IncludeViews(t *testing.T) {
	database, _, _ := newTestEnv(t)
	insertSnapshot(t, database, "01A", "SER1", 1000, 0)

	out, err := Latest(database, LatestInput{IncludeViews: boolPtr(true)})
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if out.Item == nil || len(out.Item.Views) != 4 {
		t.Fatalf("Item = %+v, want 4 views", out.Item)
	}
}

func TestLatest_PerSerial(t *testing.T) {
	database, _, _ := newTestEnv(t)
	insertSnapshot(t, database, "01A", "SER1", 1000, 0)
	insertSnapshot(t, database, "01B", "SER2", 2000, 0)

	out, _ := Latest(database, LatestInput{Serial: "SER1"})
	if out.Item == nil || out.Item.ID != "01A" {
		t.Errorf("SER1 latest = %+v, want 01A", out.Item)
	}
	out, _ = Latest(database, LatestInput{})
	if out.Item == nil || out.Item.ID != "01B" {
		t.Errorf("any latest = %+v, want 01B", out.Item)
	}
}
