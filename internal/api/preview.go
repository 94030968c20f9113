package api

import (
	"encoding/json"
	"net/http"

	"github.com/banshee-data/panel.preview/internal/layout"
	"github.com/banshee-data/panel.preview/internal/payload"
)

// PreviewRequest is a stateless preview computation: a raw payload plus the
// geometry to place it on. Absent geometry falls back to the server's
// reference canvas and default grid.
type PreviewRequest struct {
	Raw        string           `json:"raw"`
	LayoutType string           `json:"layout_type,omitempty"`
	Canvas     *layout.Size     `json:"canvas,omitempty"`
	Grid       *layout.GridSpec `json:"grid,omitempty"`
	Slots      *int             `json:"slots,omitempty"`

	// Device, when present, additionally computes the transform that fits
	// the reference canvas onto the device's real resolution.
	Device *layout.Size `json:"device,omitempty"`
}

// PreviewResponse carries everything a client needs to draw one frame.
type PreviewResponse struct {
	Frame     string             `json:"frame"`
	Condition string             `json:"condition"`
	Readings  []payload.Reading  `json:"readings"`
	Cells     []layout.Cell      `json:"cells"`
	Canvas    layout.Size        `json:"canvas"`
	Layout    string             `json:"layout"`
	Transform *layout.Transform  `json:"transform,omitempty"`
}

// buildPreview runs the decode-place-scale pipeline for one raw payload.
func (s *Server) buildPreview(req PreviewRequest) PreviewResponse {
	result := payload.DecodeRaw(req.Raw)

	kind := layout.ParseKind(req.LayoutType)

	canvas := layout.Size{
		Width:  s.cfg.GetReferenceWidth(),
		Height: s.cfg.GetReferenceHeight(),
	}
	if req.Canvas != nil {
		canvas = *req.Canvas
	}

	grid := layout.GridSpec{
		Rows:    s.cfg.GetDefaultRows(),
		Columns: s.cfg.GetDefaultColumns(),
	}
	if req.Grid != nil {
		grid = *req.Grid
	}

	slots := s.cfg.GetDefaultSlots()
	if req.Slots != nil {
		slots = *req.Slots
	}

	resp := PreviewResponse{
		Frame:     result.Frame.String(),
		Condition: result.Condition.String(),
		Readings:  result.Readings,
		Cells:     layout.Compute(kind, result.Readings, slots, grid, canvas),
		Canvas:    canvas,
		Layout:    kind.String(),
	}

	if req.Device != nil {
		t := layout.Fit(*req.Device, canvas)
		resp.Transform = &t
	}
	return resp
}

// handlePreview handles POST /api/preview
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.writeJSON(w, http.StatusOK, s.buildPreview(req))
}
