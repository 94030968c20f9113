package serialmux

import (
	"log"
	"sync"

	"github.com/banshee-data/panel.preview/internal/db"
	"github.com/banshee-data/panel.preview/internal/layout"
	"github.com/banshee-data/panel.preview/internal/payload"
)

// PreviewSink receives raw sensor payloads for decode, history capture and
// live preview fan-out. The API server implements it; keeping it an
// interface here avoids a dependency from the serial layer on the HTTP
// layer.
type PreviewSink interface {
	PublishRaw(panelID, raw string)
}

// currentScreenConfigs holds the most recent screen config frame seen per
// panel this process lifetime, so the preview can reflect a config push
// before it lands in the registry.
var (
	currentScreenConfigs   = make(map[string]*layout.ScreenConfig)
	currentScreenConfigsMu sync.Mutex
)

// CurrentScreenConfig returns the last screen config announced by the given
// panel over serial, or nil if it has not announced one.
func CurrentScreenConfig(panelID string) *layout.ScreenConfig {
	currentScreenConfigsMu.Lock()
	defer currentScreenConfigsMu.Unlock()
	return currentScreenConfigs[panelID]
}

// HandleEvent routes one raw frame from a tethered panel. Sensor payloads go
// to the preview sink; config payloads update the registry; status and
// unknown payloads are logged and dropped.
func HandleEvent(d *db.DB, sink PreviewSink, panelID, raw string) {
	body, _ := payload.Strip(raw)

	switch payload.Classify(body) {
	case payload.EventTypeSensor:
		if sink != nil {
			sink.PublishRaw(panelID, raw)
		}

	case payload.EventTypeConfig:
		if err := HandleConfigPayload(d, panelID, body); err != nil {
			log.Printf("[serialmux] failed to handle config payload from panel %s: %v", panelID, err)
		}

	case payload.EventTypeStatus:
		log.Printf("[serialmux] panel %s status: %s", panelID, body)

	default:
		log.Printf("[serialmux] unrecognized payload from panel %s: %q", panelID, truncate(body, 120))
	}
}

// HandleConfigPayload parses a screen config announcement, records it in the
// config history and folds the grid geometry into the panel registry row.
func HandleConfigPayload(d *db.DB, panelID, body string) error {
	sc, err := layout.ParseScreenConfig(body)
	if err != nil {
		return err
	}

	currentScreenConfigsMu.Lock()
	currentScreenConfigs[panelID] = &sc
	currentScreenConfigsMu.Unlock()

	if d == nil {
		return nil
	}
	if err := d.RecordScreenConfig(panelID, sc.Kind.String(), body); err != nil {
		return err
	}
	return d.UpdatePanelGrid(panelID, sc.Kind.String(), sc.Grid)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
