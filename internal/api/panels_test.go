package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/banshee-data/panel.preview/internal/db"
	"github.com/banshee-data/panel.preview/internal/layout"
	"github.com/banshee-data/panel.preview/internal/testutil"
)

func createTestPanel(t *testing.T, srv *Server, mux *http.ServeMux) db.Panel {
	t.Helper()
	rec := doJSON(t, mux, http.MethodPost, "/api/panels", PanelRequest{
		Name:  "bench",
		Model: "tft-800",
	})
	testutil.AssertStatusCode(t, rec.Code, http.StatusCreated)
	return decodeBody[db.Panel](t, rec)
}

func TestPanelCRUD(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := srv.ServeMux()

	panel := createTestPanel(t, srv, mux)
	if panel.ID == "" {
		t.Fatal("created panel should have an ID")
	}
	// Model defaults fill unset dimensions and layout.
	if panel.Width != 800 || panel.Height != 480 || panel.LayoutType != "grid" {
		t.Errorf("model defaults not applied: %+v", panel)
	}
	if panel.Rows != 2 || panel.Columns != 2 {
		t.Errorf("default grid = %dx%d, want 2x2", panel.Rows, panel.Columns)
	}

	rec := doJSON(t, mux, http.MethodGet, "/api/panels/"+panel.ID, nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	rec = doJSON(t, mux, http.MethodGet, "/api/panels", nil)
	panels := decodeBody[[]db.Panel](t, rec)
	if len(panels) != 1 {
		t.Errorf("got %d panels, want 1", len(panels))
	}

	rec = doJSON(t, mux, http.MethodPut, "/api/panels/"+panel.ID, PanelRequest{
		Name:       "bench",
		LayoutType: "quad",
		Grid:       &layout.GridSpec{Rows: 1, Columns: 4},
	})
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	updated := decodeBody[db.Panel](t, rec)
	if updated.LayoutType != "quad" || updated.Columns != 4 {
		t.Errorf("update not applied: %+v", updated)
	}

	rec = doJSON(t, mux, http.MethodDelete, "/api/panels/"+panel.ID, nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusNoContent)

	rec = doJSON(t, mux, http.MethodGet, "/api/panels/"+panel.ID, nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
}

func TestCreatePanelValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := srv.ServeMux()

	rec := doJSON(t, mux, http.MethodPost, "/api/panels", PanelRequest{})
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)

	rec = doJSON(t, mux, http.MethodPost, "/api/panels", PanelRequest{Name: "x", Model: "unknown-model"})
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)

	// Duplicate names conflict.
	createTestPanel(t, srv, mux)
	rec = doJSON(t, mux, http.MethodPost, "/api/panels", PanelRequest{Name: "bench"})
	testutil.AssertStatusCode(t, rec.Code, http.StatusConflict)
}

func TestPushSensorPayload(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := srv.ServeMux()
	panel := createTestPanel(t, srv, mux)

	raw := `{"sensors":{"temp":{"data":[{"Value":21.5,"Unit":"C"}]},"hum":{"data":[{"Value":48,"Unit":"%"}]}}}`
	req := httptest.NewRequest(http.MethodPost, "/api/panels/"+panel.ID+"/payload", strings.NewReader(raw))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	resp := decodeBody[PreviewResponse](t, rec)
	if resp.Condition != "ok" || len(resp.Readings) != 2 {
		t.Fatalf("preview = %+v", resp)
	}
	// Numeric readings land in the history store.
	if tags := srv.hist.Tags(panel.ID); len(tags) != 2 {
		t.Errorf("history tags = %v, want temp and hum", tags)
	}
	samples := srv.hist.Samples(panel.ID, "temp")
	if len(samples) != 1 || samples[0].Value != 21.5 {
		t.Errorf("temp samples = %+v", samples)
	}
}

func TestPushConfigPayload(t *testing.T) {
	srv, database := newTestServer(t)
	mux := srv.ServeMux()
	panel := createTestPanel(t, srv, mux)

	raw := `{"type":"config","layout_type":"matrix","lvgl_grid":{"rows":4,"columns":1}}`
	req := httptest.NewRequest(http.MethodPost, "/api/panels/"+panel.ID+"/payload", strings.NewReader(raw))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	fresh, err := database.GetPanel(panel.ID)
	if err != nil || fresh == nil {
		t.Fatalf("GetPanel failed: %v", err)
	}
	if fresh.LayoutType != "matrix" || fresh.Rows != 4 {
		t.Errorf("config push not folded into registry: %+v", fresh)
	}

	// The response previews the new geometry: matrix always has 4 lines.
	resp := decodeBody[PreviewResponse](t, rec)
	if resp.Layout != "matrix" || len(resp.Cells) != 4 {
		t.Errorf("preview after config push = layout %q cells %d", resp.Layout, len(resp.Cells))
	}

	// The announcement is recorded in the config history.
	rec = doJSON(t, mux, http.MethodGet, "/api/panels/"+panel.ID+"/screen-config", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	row := decodeBody[db.ScreenConfigRow](t, rec)
	if row.LayoutType != "matrix" {
		t.Errorf("recorded layout = %q, want matrix", row.LayoutType)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := srv.ServeMux()
	panel := createTestPanel(t, srv, mux)

	for _, raw := range []string{
		`{"sensors":{"temp":{"data":[{"Value":20,"Unit":"C"}]}}}`,
		`{"sensors":{"temp":{"data":[{"Value":22,"Unit":"C"}]}}}`,
		`{"sensors":{"temp":{"data":[{"Value":24,"Unit":"C"}]}}}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/panels/"+panel.ID+"/payload", strings.NewReader(raw))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	}

	rec := doJSON(t, mux, http.MethodGet, "/api/panels/"+panel.ID+"/history?tag=temp", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	hist := decodeBody[HistoryResponse](t, rec)
	if len(hist.Samples["temp"]) != 3 {
		t.Errorf("got %d samples, want 3", len(hist.Samples["temp"]))
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/panels/"+panel.ID+"/history/stats", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	stats := decodeBody[HistoryStatsResponse](t, rec)
	tempStats, ok := stats.Stats["temp"]
	if !ok {
		t.Fatal("stats missing temp tag")
	}
	if tempStats.Min != 20 || tempStats.Max != 24 || tempStats.Mean != 22 {
		t.Errorf("stats = %+v", tempStats.Stats)
	}
	if tempStats.RangeLo >= 20 || tempStats.RangeHi <= 24 {
		t.Errorf("suggested range [%v, %v] should pad beyond the data", tempStats.RangeLo, tempStats.RangeHi)
	}
}

func TestPreviewPreference(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := srv.ServeMux()
	panel := createTestPanel(t, srv, mux)

	rec := doJSON(t, mux, http.MethodGet, "/api/panels/"+panel.ID+"/preview-preference", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	pref := decodeBody[map[string]bool](t, rec)
	if !pref["show_preview"] {
		t.Error("new panels default to preview on")
	}

	rec = doJSON(t, mux, http.MethodPut, "/api/panels/"+panel.ID+"/preview-preference",
		map[string]bool{"show_preview": false})
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	rec = doJSON(t, mux, http.MethodGet, "/api/panels/"+panel.ID+"/preview-preference", nil)
	pref = decodeBody[map[string]bool](t, rec)
	if pref["show_preview"] {
		t.Error("preference should persist off")
	}

	// Empty body is rejected.
	rec = doJSON(t, mux, http.MethodPut, "/api/panels/"+panel.ID+"/preview-preference", map[string]string{})
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
}

func TestScreenConfigNotAnnounced(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := srv.ServeMux()
	panel := createTestPanel(t, srv, mux)

	rec := doJSON(t, mux, http.MethodGet, "/api/panels/"+panel.ID+"/screen-config", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
}

func TestPublishRawSkipsHiddenPanels(t *testing.T) {
	srv, database := newTestServer(t)
	mux := srv.ServeMux()
	panel := createTestPanel(t, srv, mux)

	if err := database.SetShowPreview(panel.ID, false); err != nil {
		t.Fatalf("SetShowPreview failed: %v", err)
	}

	srv.PublishRaw(panel.ID, `{"sensors":{"temp":{"data":[{"Value":21}]}}}`)
	if tags := srv.hist.Tags(panel.ID); len(tags) != 0 {
		t.Errorf("hidden panel should not record history, got tags %v", tags)
	}

	if err := database.SetShowPreview(panel.ID, true); err != nil {
		t.Fatal(err)
	}
	srv.PublishRaw(panel.ID, `{"sensors":{"temp":{"data":[{"Value":21}]}}}`)
	if tags := srv.hist.Tags(panel.ID); len(tags) != 1 {
		t.Errorf("visible panel should record history, got tags %v", tags)
	}
}
