package api

import (
	"bufio"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/panel.preview/internal/config"
	"github.com/banshee-data/panel.preview/internal/db"
	"github.com/banshee-data/panel.preview/internal/history"
	"github.com/banshee-data/panel.preview/internal/httputil"
	"github.com/banshee-data/panel.preview/internal/serialmux"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	db     *db.DB
	hist   *history.Store
	cfg    *config.PreviewConfig
	serial serialmux.SerialMuxInterface
	hub    *previewHub
}

func NewServer(database *db.DB, hist *history.Store, cfg *config.PreviewConfig, serial serialmux.SerialMuxInterface) *Server {
	if cfg == nil {
		cfg = config.DefaultPreviewConfig()
	}
	if hist == nil {
		hist = history.NewStore(cfg.GetHistoryPoints(), nil)
	}
	return &Server{
		db:     database,
		hist:   hist,
		cfg:    cfg,
		serial: serial,
		hub:    newPreviewHub(),
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack is needed so the websocket upgrade works through the middleware.
func (lrw *loggingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hj, ok := lrw.ResponseWriter.(http.Hijacker); ok {
		return hj.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400 && statusCode < 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/preview", s.handlePreview)
	mux.HandleFunc("GET /api/config", s.showConfig)

	mux.HandleFunc("GET /api/panels", s.listPanels)
	mux.HandleFunc("POST /api/panels", s.createPanel)
	mux.HandleFunc("GET /api/panels/{id}", s.getPanel)
	mux.HandleFunc("PUT /api/panels/{id}", s.updatePanel)
	mux.HandleFunc("DELETE /api/panels/{id}", s.deletePanel)
	mux.HandleFunc("POST /api/panels/{id}/payload", s.pushPayload)
	mux.HandleFunc("GET /api/panels/{id}/history", s.showHistory)
	mux.HandleFunc("GET /api/panels/{id}/history/stats", s.showHistoryStats)
	mux.HandleFunc("GET /api/panels/{id}/preview-preference", s.showPreviewPreference)
	mux.HandleFunc("PUT /api/panels/{id}/preview-preference", s.setPreviewPreference)
	mux.HandleFunc("GET /api/panels/{id}/screen-config", s.showScreenConfig)

	mux.HandleFunc("GET /api/panel-models", s.handlePanelModels)

	mux.HandleFunc("GET /api/serial/configs", s.handleSerialConfigs)
	mux.HandleFunc("POST /api/serial/configs", s.handleCreateSerialConfig)
	mux.HandleFunc("GET /api/serial/configs/{id}", s.handleGetSerialConfigByID)
	mux.HandleFunc("PUT /api/serial/configs/{id}", s.handleUpdateSerialConfigByID)
	mux.HandleFunc("DELETE /api/serial/configs/{id}", s.handleDeleteSerialConfigByID)
	mux.HandleFunc("POST /api/serial/test", s.handleSerialTest)
	mux.HandleFunc("GET /api/serial/devices", s.handleSerialDevices)
	mux.HandleFunc("POST /api/serial/reload", s.handleSerialReload)

	mux.HandleFunc("POST /api/command", s.sendCommandHandler)

	mux.HandleFunc("GET /ws/panels/{id}/preview", s.handlePreviewSocket)
	mux.HandleFunc("GET /debug/charts/history", s.handleHistoryChart)

	return mux
}

func (s *Server) sendCommandHandler(w http.ResponseWriter, r *http.Request) {
	command := r.FormValue("command")
	if command == "" {
		http.Error(w, "Missing command", http.StatusBadRequest)
		return
	}

	if s.serial == nil {
		http.Error(w, "No panel tethered", http.StatusServiceUnavailable)
		return
	}
	if err := s.serial.SendCommand(command); err != nil {
		http.Error(w, "Failed to send command", http.StatusInternalServerError)
		return
	}
	io.WriteString(w, "Command sent successfully")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	httputil.WriteJSON(w, status, v)
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	httputil.WriteJSONError(w, status, msg)
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	config := map[string]interface{}{
		"reference_width":  s.cfg.GetReferenceWidth(),
		"reference_height": s.cfg.GetReferenceHeight(),
		"default_rows":     s.cfg.GetDefaultRows(),
		"default_columns":  s.cfg.GetDefaultColumns(),
		"default_slots":    s.cfg.GetDefaultSlots(),
		"history_points":   s.cfg.GetHistoryPoints(),
		"show_preview":     s.cfg.GetShowPreview(),
		"stream_interval":  s.cfg.GetStreamInterval().String(),
	}
	s.writeJSON(w, http.StatusOK, config)
}

func (s *Server) handlePanelModels(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, GetAllPanelModels())
}
