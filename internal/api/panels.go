package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/banshee-data/panel.preview/internal/db"
	"github.com/banshee-data/panel.preview/internal/history"
	"github.com/banshee-data/panel.preview/internal/layout"
	"github.com/banshee-data/panel.preview/internal/payload"
	"github.com/banshee-data/panel.preview/internal/serialmux"
)

// PanelRequest represents the request body for creating/updating panels
type PanelRequest struct {
	Name        string           `json:"name"`
	Model       string           `json:"model"`
	Width       int              `json:"width"`
	Height      int              `json:"height"`
	LayoutType  string           `json:"layout_type"`
	Grid        *layout.GridSpec `json:"grid,omitempty"`
	ShowPreview *bool            `json:"show_preview,omitempty"`
}

func (req *PanelRequest) validate() error {
	if req.Name == "" {
		return fmt.Errorf("name is required")
	}
	if req.Model != "" {
		if _, ok := GetPanelModel(req.Model); !ok {
			return fmt.Errorf("unsupported panel model: %s", req.Model)
		}
	}
	if req.Width < 0 || req.Height < 0 {
		return fmt.Errorf("dimensions must be non-negative")
	}
	return nil
}

// panel builds a registry row from the request, filling model defaults for
// anything the request leaves zero.
func (req *PanelRequest) panel() *db.Panel {
	p := &db.Panel{
		Name:       req.Name,
		Model:      req.Model,
		Width:      req.Width,
		Height:     req.Height,
		LayoutType: layout.ParseKind(req.LayoutType).String(),
	}

	if model, ok := GetPanelModel(req.Model); ok {
		if p.Width == 0 {
			p.Width = model.Width
		}
		if p.Height == 0 {
			p.Height = model.Height
		}
		if req.LayoutType == "" {
			p.LayoutType = model.DefaultLayout
		}
	}

	grid := layout.DefaultGridSpec()
	if req.Grid != nil {
		grid = *req.Grid
	}
	p.Rows = grid.Rows
	p.Columns = grid.Columns
	p.TopMargin = grid.TopMargin
	p.BottomMargin = grid.BottomMargin
	p.LeftMargin = grid.LeftMargin
	p.RightMargin = grid.RightMargin
	p.OuterPadding = grid.OuterPadding
	p.InnerPadding = grid.InnerPadding

	p.ShowPreview = true
	if req.ShowPreview != nil {
		p.ShowPreview = *req.ShowPreview
	}
	return p
}

// panelFromPath resolves the {id} path value to a registry row, writing the
// error response itself when the panel cannot be found.
func (s *Server) panelFromPath(w http.ResponseWriter, r *http.Request) *db.Panel {
	id := r.PathValue("id")
	if id == "" {
		s.writeJSONError(w, http.StatusBadRequest, "Missing panel ID")
		return nil
	}
	panel, err := s.db.GetPanel(id)
	if err != nil {
		log.Printf("[api] failed to fetch panel %s: %v", id, err)
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to fetch panel")
		return nil
	}
	if panel == nil {
		s.writeJSONError(w, http.StatusNotFound, "Panel not found")
		return nil
	}
	return panel
}

func (s *Server) listPanels(w http.ResponseWriter, r *http.Request) {
	panels, err := s.db.ListPanels()
	if err != nil {
		log.Printf("[api] failed to list panels: %v", err)
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to list panels")
		return
	}
	if panels == nil {
		panels = []db.Panel{}
	}
	s.writeJSON(w, http.StatusOK, panels)
}

func (s *Server) createPanel(w http.ResponseWriter, r *http.Request) {
	var req PanelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	panel := req.panel()
	if err := s.db.CreatePanel(panel); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			s.writeJSONError(w, http.StatusConflict, "Panel with this name already exists")
			return
		}
		log.Printf("[api] failed to create panel: %v", err)
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to create panel")
		return
	}
	s.writeJSON(w, http.StatusCreated, panel)
}

func (s *Server) getPanel(w http.ResponseWriter, r *http.Request) {
	panel := s.panelFromPath(w, r)
	if panel == nil {
		return
	}
	s.writeJSON(w, http.StatusOK, panel)
}

func (s *Server) updatePanel(w http.ResponseWriter, r *http.Request) {
	panel := s.panelFromPath(w, r)
	if panel == nil {
		return
	}

	var req PanelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated := req.panel()
	updated.ID = panel.ID
	if err := s.db.UpdatePanel(updated); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			s.writeJSONError(w, http.StatusConflict, "Panel with this name already exists")
			return
		}
		log.Printf("[api] failed to update panel %s: %v", panel.ID, err)
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to update panel")
		return
	}

	fresh, err := s.db.GetPanel(panel.ID)
	if err != nil || fresh == nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Panel updated but failed to fetch")
		return
	}
	s.writeJSON(w, http.StatusOK, fresh)
}

func (s *Server) deletePanel(w http.ResponseWriter, r *http.Request) {
	panel := s.panelFromPath(w, r)
	if panel == nil {
		return
	}
	if err := s.db.DeletePanel(panel.ID); err != nil {
		log.Printf("[api] failed to delete panel %s: %v", panel.ID, err)
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to delete panel")
		return
	}
	s.hist.Reset(panel.ID)
	w.WriteHeader(http.StatusNoContent)
}

// pushPayload handles POST /api/panels/{id}/payload: one raw payload body,
// exactly as it came off the wire or the HTTP collector. The response is the
// computed preview for the panel's current geometry.
func (s *Server) pushPayload(w http.ResponseWriter, r *http.Request) {
	panel := s.panelFromPath(w, r)
	if panel == nil {
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Failed to read body")
		return
	}

	body, _ := payload.Strip(string(raw))
	if payload.Classify(body) == payload.EventTypeConfig {
		if err := serialmux.HandleConfigPayload(s.db, panel.ID, body); err != nil {
			s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid config payload: %v", err))
			return
		}
		// Re-read the panel so the preview reflects the pushed geometry.
		panel, err = s.db.GetPanel(panel.ID)
		if err != nil || panel == nil {
			s.writeJSONError(w, http.StatusInternalServerError, "Failed to reload panel")
			return
		}
		s.writeJSON(w, http.StatusOK, s.previewForPanel(panel, ""))
		return
	}

	resp := s.previewForPanel(panel, string(raw))
	s.hist.RecordReadings(panel.ID, resp.Readings)
	s.hub.broadcast(panel.ID, resp)
	s.writeJSON(w, http.StatusOK, resp)
}

// previewForPanel computes a preview frame using the panel's stored geometry.
func (s *Server) previewForPanel(panel *db.Panel, raw string) PreviewResponse {
	canvas := layout.Size{
		Width:  s.cfg.GetReferenceWidth(),
		Height: s.cfg.GetReferenceHeight(),
	}
	req := PreviewRequest{
		Raw:        raw,
		LayoutType: panel.LayoutType,
		Canvas:     &canvas,
		Grid:       ptrGrid(panel.GridSpec()),
	}
	if panel.Width > 0 && panel.Height > 0 {
		device := panel.CanvasSize()
		req.Device = &device
	}
	return s.buildPreview(req)
}

func ptrGrid(g layout.GridSpec) *layout.GridSpec { return &g }

// PublishRaw implements serialmux.PreviewSink: decode a raw frame from the
// tether, record its readings and push the preview to websocket watchers.
func (s *Server) PublishRaw(panelID, raw string) {
	panel, err := s.db.GetPanel(panelID)
	if err != nil {
		log.Printf("[api] publish: failed to fetch panel %s: %v", panelID, err)
		return
	}
	if panel == nil {
		log.Printf("[api] publish: unknown panel %s", panelID)
		return
	}
	if !panel.ShowPreview {
		return
	}

	resp := s.previewForPanel(panel, raw)
	s.hist.RecordReadings(panelID, resp.Readings)
	s.hub.broadcast(panelID, resp)
}

// HistoryResponse is the per-tag sample trace for one panel.
type HistoryResponse struct {
	PanelID string                      `json:"panel_id"`
	Tags    []string                    `json:"tags"`
	Samples map[string][]history.Sample `json:"samples"`
}

func (s *Server) showHistory(w http.ResponseWriter, r *http.Request) {
	panel := s.panelFromPath(w, r)
	if panel == nil {
		return
	}

	tags := s.hist.Tags(panel.ID)
	if t := r.URL.Query().Get("tag"); t != "" {
		tags = []string{t}
	}

	resp := HistoryResponse{PanelID: panel.ID, Tags: tags, Samples: make(map[string][]history.Sample)}
	for _, tag := range tags {
		resp.Samples[tag] = s.hist.Samples(panel.ID, tag)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// HistoryStatsResponse summarizes each tag's trace with a suggested axis range.
type HistoryStatsResponse struct {
	PanelID string                   `json:"panel_id"`
	Stats   map[string]TagStats      `json:"stats"`
}

type TagStats struct {
	history.Stats
	RangeLo float64 `json:"range_lo"`
	RangeHi float64 `json:"range_hi"`
}

func (s *Server) showHistoryStats(w http.ResponseWriter, r *http.Request) {
	panel := s.panelFromPath(w, r)
	if panel == nil {
		return
	}

	resp := HistoryStatsResponse{PanelID: panel.ID, Stats: make(map[string]TagStats)}
	for _, tag := range s.hist.Tags(panel.ID) {
		st := s.hist.Stats(panel.ID, tag)
		lo, hi := history.SuggestRange(st)
		resp.Stats[tag] = TagStats{Stats: st, RangeLo: lo, RangeHi: hi}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) showPreviewPreference(w http.ResponseWriter, r *http.Request) {
	panel := s.panelFromPath(w, r)
	if panel == nil {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"show_preview": panel.ShowPreview})
}

func (s *Server) setPreviewPreference(w http.ResponseWriter, r *http.Request) {
	panel := s.panelFromPath(w, r)
	if panel == nil {
		return
	}

	var req struct {
		ShowPreview *bool `json:"show_preview"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ShowPreview == nil {
		s.writeJSONError(w, http.StatusBadRequest, "Body must carry show_preview")
		return
	}

	if err := s.db.SetShowPreview(panel.ID, *req.ShowPreview); err != nil {
		log.Printf("[api] failed to set preview preference for %s: %v", panel.ID, err)
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to update preference")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"show_preview": *req.ShowPreview})
}

// showScreenConfig returns the panel's latest announced screen config and,
// with ?history=N, the most recent N announcements.
func (s *Server) showScreenConfig(w http.ResponseWriter, r *http.Request) {
	panel := s.panelFromPath(w, r)
	if panel == nil {
		return
	}

	if h := r.URL.Query().Get("history"); h != "" {
		limit, err := strconv.Atoi(h)
		if err != nil || limit < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'history' parameter")
			return
		}
		rows, err := s.db.ScreenConfigHistory(panel.ID, limit)
		if err != nil {
			log.Printf("[api] failed to fetch screen config history for %s: %v", panel.ID, err)
			s.writeJSONError(w, http.StatusInternalServerError, "Failed to fetch screen config history")
			return
		}
		s.writeJSON(w, http.StatusOK, rows)
		return
	}

	row, err := s.db.LatestScreenConfig(panel.ID)
	if err != nil {
		log.Printf("[api] failed to fetch screen config for %s: %v", panel.ID, err)
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to fetch screen config")
		return
	}
	if row == nil {
		s.writeJSONError(w, http.StatusNotFound, "Panel has not announced a screen config")
		return
	}
	s.writeJSON(w, http.StatusOK, row)
}
