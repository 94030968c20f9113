package api

import (
	"net/http"
	"testing"

	"github.com/banshee-data/panel.preview/internal/db"
	"github.com/banshee-data/panel.preview/internal/testutil"
)

func TestSerialConfigEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := srv.ServeMux()

	rec := doJSON(t, mux, http.MethodPost, "/api/serial/configs", SerialConfigRequest{
		Name:       "workbench",
		PortPath:   "/dev/ttyACM0",
		Enabled:    true,
		PanelModel: "tft-800",
	})
	testutil.AssertStatusCode(t, rec.Code, http.StatusCreated)
	created := decodeBody[db.SerialConfig](t, rec)
	// Unset connection parameters take panel-console defaults.
	if created.BaudRate != 115200 || created.DataBits != 8 || created.StopBits != 1 || created.Parity != "N" {
		t.Errorf("defaults not applied: %+v", created)
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/serial/configs", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	configs := decodeBody[[]db.SerialConfig](t, rec)
	if len(configs) != 1 {
		t.Errorf("got %d configs, want 1", len(configs))
	}

	idPath := "/api/serial/configs/1"
	rec = doJSON(t, mux, http.MethodGet, idPath, nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	rec = doJSON(t, mux, http.MethodPut, idPath, SerialConfigRequest{
		Name:     "workbench",
		PortPath: "/dev/ttyUSB1",
		BaudRate: 57600,
	})
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	updated := decodeBody[db.SerialConfig](t, rec)
	if updated.PortPath != "/dev/ttyUSB1" || updated.BaudRate != 57600 {
		t.Errorf("update not applied: %+v", updated)
	}

	rec = doJSON(t, mux, http.MethodDelete, idPath, nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusNoContent)

	rec = doJSON(t, mux, http.MethodGet, idPath, nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
}

func TestSerialConfigValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := srv.ServeMux()

	tests := []struct {
		name string
		req  SerialConfigRequest
	}{
		{"missing name", SerialConfigRequest{PortPath: "/dev/ttyACM0"}},
		{"missing port", SerialConfigRequest{Name: "x"}},
		{"bad port path", SerialConfigRequest{Name: "x", PortPath: "/tmp/fake"}},
		{"unknown model", SerialConfigRequest{Name: "x", PortPath: "/dev/ttyACM0", PanelModel: "ops243-a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, mux, http.MethodPost, "/api/serial/configs", tt.req)
			testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
		})
	}

	rec := doJSON(t, mux, http.MethodGet, "/api/serial/configs/not-a-number", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
}

func TestIsValidPortPath(t *testing.T) {
	for path, want := range map[string]bool{
		"/dev/ttyACM0":        true,
		"/dev/ttyUSB3":        true,
		"/dev/serial/by-id/x": true,
		"/tmp/pty":            false,
		"ttyACM0":             false,
		"":                    false,
	} {
		if got := isValidPortPath(path); got != want {
			t.Errorf("isValidPortPath(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestGetFriendlyName(t *testing.T) {
	for path, want := range map[string]string{
		"/dev/ttyUSB0": "USB Serial Adapter (ttyUSB0)",
		"/dev/ttyACM1": "USB CDC Device (ttyACM1)",
		"/dev/ttyAMA0": "Raspberry Pi Serial (ttyAMA0)",
		"/dev/rfcomm0": "rfcomm0",
	} {
		if got := getFriendlyName(path); got != want {
			t.Errorf("getFriendlyName(%q) = %q, want %q", path, got, want)
		}
	}
}
