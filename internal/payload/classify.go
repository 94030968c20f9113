package payload

import (
	"encoding/json"
	"strings"
)

// Event type tokens for payloads arriving over the panel tether. The tether
// carries both telemetry pushes and screen-config announcements on the same
// line, so the mux needs a cheap way to route before a full decode.
const (
	EventTypeSensor = "sensor"
	EventTypeConfig = "config"
	EventTypeStatus = "status"

	EventTypeUnknown = "unknown"
)

// Classify inspects a stripped payload body and returns its event type. An
// explicit envelope "type" field wins; otherwise shape heuristics apply.
// Classification is intentionally conservative: anything ambiguous is
// EventTypeUnknown rather than a guess.
func Classify(body string) string {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err == nil {
		switch envelope.Type {
		case "sensor":
			return EventTypeSensor
		case "config":
			return EventTypeConfig
		case "status":
			return EventTypeStatus
		}
	}

	if strings.Contains(body, `"sensors"`) {
		return EventTypeSensor
	}
	if strings.Contains(body, `"layout_type"`) || strings.Contains(body, `"lvgl_grid"`) {
		return EventTypeConfig
	}
	return EventTypeUnknown
}
