package db

import "testing"

func TestSerialConfigCRUD(t *testing.T) {
	database := NewTestDB(t)

	config := &SerialConfig{
		Name:       "workbench",
		PortPath:   "/dev/ttyACM0",
		BaudRate:   115200,
		DataBits:   8,
		StopBits:   1,
		Parity:     "N",
		Enabled:    true,
		PanelModel: "tft-800",
	}
	id, err := database.CreateSerialConfig(config)
	if err != nil {
		t.Fatalf("CreateSerialConfig failed: %v", err)
	}

	got, err := database.GetSerialConfig(int(id))
	if err != nil {
		t.Fatalf("GetSerialConfig failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetSerialConfig returned nil")
	}
	if got.Name != "workbench" || got.BaudRate != 115200 || !got.Enabled {
		t.Errorf("got %+v, want created values", got)
	}
	if got.CreatedAt == 0 {
		t.Error("created_at should be set by the schema default")
	}

	got.Enabled = false
	got.Description = "bench panel moved"
	if err := database.UpdateSerialConfig(got); err != nil {
		t.Fatalf("UpdateSerialConfig failed: %v", err)
	}
	updated, _ := database.GetSerialConfig(got.ID)
	if updated.Enabled || updated.Description != "bench panel moved" {
		t.Errorf("update not persisted: %+v", updated)
	}

	if err := database.DeleteSerialConfig(got.ID); err != nil {
		t.Fatalf("DeleteSerialConfig failed: %v", err)
	}
	gone, _ := database.GetSerialConfig(got.ID)
	if gone != nil {
		t.Error("config should be gone after delete")
	}
}

func TestGetEnabledSerialConfigs(t *testing.T) {
	database := NewTestDB(t)

	for _, c := range []*SerialConfig{
		{Name: "on", PortPath: "/dev/ttyACM0", BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: "N", Enabled: true},
		{Name: "off", PortPath: "/dev/ttyACM1", BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: "N", Enabled: false},
	} {
		if _, err := database.CreateSerialConfig(c); err != nil {
			t.Fatalf("CreateSerialConfig(%s) failed: %v", c.Name, err)
		}
	}

	enabled, err := database.GetEnabledSerialConfigs()
	if err != nil {
		t.Fatalf("GetEnabledSerialConfigs failed: %v", err)
	}
	if len(enabled) != 1 || enabled[0].Name != "on" {
		t.Errorf("enabled = %+v, want just the enabled config", enabled)
	}
}

func TestSerialConfigMissing(t *testing.T) {
	database := NewTestDB(t)

	got, err := database.GetSerialConfig(42)
	if err != nil {
		t.Fatalf("GetSerialConfig failed: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil for missing config", got)
	}
	if err := database.UpdateSerialConfig(&SerialConfig{ID: 42, Name: "x", PortPath: "/dev/ttyUSB0"}); err == nil {
		t.Error("UpdateSerialConfig for missing ID should fail")
	}
	if err := database.DeleteSerialConfig(42); err == nil {
		t.Error("DeleteSerialConfig for missing ID should fail")
	}
}
