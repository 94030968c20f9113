package serialmux

import (
	"testing"

	"github.com/banshee-data/panel.preview/internal/db"
	"github.com/banshee-data/panel.preview/internal/layout"
)

type recordingSink struct {
	panelIDs []string
	raws     []string
}

func (r *recordingSink) PublishRaw(panelID, raw string) {
	r.panelIDs = append(r.panelIDs, panelID)
	r.raws = append(r.raws, raw)
}

func TestHandleEventRoutesSensorPayloads(t *testing.T) {
	sink := &recordingSink{}
	raw := `{"sensors":{"temp":{"data":[{"Value":21,"Unit":"C"}]}}}`

	HandleEvent(nil, sink, "panel-1", raw)

	if len(sink.raws) != 1 {
		t.Fatalf("sink received %d payloads, want 1", len(sink.raws))
	}
	if sink.panelIDs[0] != "panel-1" || sink.raws[0] != raw {
		t.Errorf("sink got (%q, %q)", sink.panelIDs[0], sink.raws[0])
	}
}

func TestHandleEventStripsFrameBeforeClassifying(t *testing.T) {
	sink := &recordingSink{}
	body := `{"sensors":{"temp":{"data":[{"Value":21}]}}}`
	raw := frame(body)

	HandleEvent(nil, sink, "panel-1", raw)

	if len(sink.raws) != 1 {
		t.Fatalf("sink received %d payloads, want 1", len(sink.raws))
	}
	// The sink gets the raw frame; the decode path strips again.
	if sink.raws[0] != raw {
		t.Errorf("sink raw = %q, want the untouched frame", sink.raws[0])
	}
}

func TestHandleEventIgnoresUnknownAndStatus(t *testing.T) {
	sink := &recordingSink{}

	HandleEvent(nil, sink, "panel-1", `{"type":"status","uptime":42}`)
	HandleEvent(nil, sink, "panel-1", "garbage that is not json")
	HandleEvent(nil, sink, "panel-1", "")

	if len(sink.raws) != 0 {
		t.Errorf("sink received %d payloads, want 0", len(sink.raws))
	}
}

func TestHandleConfigPayloadUpdatesRegistry(t *testing.T) {
	database := db.NewTestDB(t)
	panel := &db.Panel{Name: "bench", Width: 800, Height: 480, LayoutType: "grid", Rows: 2, Columns: 2}
	if err := database.CreatePanel(panel); err != nil {
		t.Fatalf("CreatePanel failed: %v", err)
	}

	body := `{"type":"config","layout_type":"quad","lvgl_grid":{"rows":3,"columns":4,"top_margin":12}}`
	HandleEvent(database, nil, panel.ID, body)

	got, err := database.GetPanel(panel.ID)
	if err != nil || got == nil {
		t.Fatalf("GetPanel failed: %v", err)
	}
	if got.LayoutType != "quad" || got.Rows != 3 || got.Columns != 4 || got.TopMargin != 12 {
		t.Errorf("registry row not updated: %+v", got)
	}

	row, err := database.LatestScreenConfig(panel.ID)
	if err != nil || row == nil {
		t.Fatalf("LatestScreenConfig failed: %v", err)
	}
	if row.Raw != body {
		t.Errorf("recorded raw = %q, want original body", row.Raw)
	}

	sc := CurrentScreenConfig(panel.ID)
	if sc == nil || sc.Kind != layout.Quad || sc.Grid.Rows != 3 {
		t.Errorf("CurrentScreenConfig = %+v", sc)
	}
}

func TestHandleConfigPayloadMalformed(t *testing.T) {
	if err := HandleConfigPayload(nil, "panel-x", `{"layout_type": [`); err == nil {
		t.Error("expected parse error for malformed config payload")
	}
}

func TestCurrentScreenConfigUnknownPanel(t *testing.T) {
	if sc := CurrentScreenConfig("never-seen"); sc != nil {
		t.Errorf("got %+v, want nil for a panel that never announced", sc)
	}
}
