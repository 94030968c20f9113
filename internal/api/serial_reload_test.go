package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/banshee-data/panel.preview/internal/db"
	"github.com/banshee-data/panel.preview/internal/serialmux"
)

func enabledConfig(t *testing.T, database *db.DB, name, port string) {
	t.Helper()
	_, err := database.CreateSerialConfig(&db.SerialConfig{
		Name:     name,
		PortPath: port,
		BaudRate: 115200,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Enabled:  true,
	})
	if err != nil {
		t.Fatalf("CreateSerialConfig failed: %v", err)
	}
}

func testFactory(opened *[]string) SerialMuxFactory {
	return func(path string, opts serialmux.PortOptions) (serialmux.SerialMuxInterface, error) {
		*opened = append(*opened, path)
		return serialmux.NewSerialMux(serialmux.NewTestableSerialPort()), nil
	}
}

func TestReloadConfigSwapsMux(t *testing.T) {
	database := db.NewTestDB(t)
	enabledConfig(t, database, "bench", "/dev/ttyACM0")

	var opened []string
	mgr := NewSerialPortManager(database, serialmux.NewDisabledSerialMux(), SerialConfigSnapshot{}, testFactory(&opened))
	defer mgr.Close()

	result, err := mgr.ReloadConfig(context.Background())
	if err != nil {
		t.Fatalf("ReloadConfig failed: %v", err)
	}
	if !result.Success || result.Config == nil {
		t.Fatalf("result = %+v", result)
	}
	if result.Config.PortPath != "/dev/ttyACM0" {
		t.Errorf("snapshot port = %q", result.Config.PortPath)
	}
	if len(opened) != 1 {
		t.Errorf("factory opened %d ports, want 1", len(opened))
	}

	// Second reload with the same active config is a no-op.
	result, err = mgr.ReloadConfig(context.Background())
	if err != nil {
		t.Fatalf("second ReloadConfig failed: %v", err)
	}
	if len(opened) != 1 {
		t.Errorf("no-op reload should not reopen the port, opened %d times", len(opened))
	}
	if result.Message == "" {
		t.Error("no-op reload should explain itself")
	}
}

func TestReloadConfigNoEnabledConfigs(t *testing.T) {
	database := db.NewTestDB(t)
	var opened []string
	mgr := NewSerialPortManager(database, serialmux.NewDisabledSerialMux(), SerialConfigSnapshot{}, testFactory(&opened))
	defer mgr.Close()

	if _, err := mgr.ReloadConfig(context.Background()); err == nil {
		t.Error("expected error with no enabled configs")
	}
}

func TestReloadConfigFactoryError(t *testing.T) {
	database := db.NewTestDB(t)
	enabledConfig(t, database, "bench", "/dev/ttyACM0")

	mgr := NewSerialPortManager(database, serialmux.NewDisabledSerialMux(), SerialConfigSnapshot{},
		func(path string, opts serialmux.PortOptions) (serialmux.SerialMuxInterface, error) {
			return nil, errors.New("port vanished")
		})
	defer mgr.Close()

	if _, err := mgr.ReloadConfig(context.Background()); err == nil {
		t.Error("expected factory error to propagate")
	}
}

func TestManagerDelegation(t *testing.T) {
	inner := serialmux.NewSerialMux(serialmux.NewTestableSerialPort())
	mgr := NewSerialPortManager(nil, inner, SerialConfigSnapshot{}, nil)

	if err := mgr.SendCommand("ping"); err != nil {
		t.Errorf("SendCommand should delegate, got %v", err)
	}
	if err := mgr.Initialize(); err != nil {
		t.Errorf("Initialize should delegate, got %v", err)
	}

	if err := mgr.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := mgr.SendCommand("ping"); err == nil {
		t.Error("SendCommand after Close should fail")
	}
	if err := mgr.Initialize(); err == nil {
		t.Error("Initialize after Close should fail")
	}
	if id, ch := mgr.Subscribe(); id != "" {
		t.Error("Subscribe after Close should return empty ID")
	} else if _, ok := <-ch; ok {
		t.Error("Subscribe after Close should return a closed channel")
	}
}

func TestManagerFanoutSurvivesReload(t *testing.T) {
	database := db.NewTestDB(t)
	enabledConfig(t, database, "bench", "/dev/ttyACM0")

	ports := make([]*serialmux.TestableSerialPort, 0, 2)
	factory := func(path string, opts serialmux.PortOptions) (serialmux.SerialMuxInterface, error) {
		port := serialmux.NewTestableSerialPort()
		port.BlockReads = true
		ports = append(ports, port)
		return serialmux.NewSerialMux(port), nil
	}

	mgr := NewSerialPortManager(database, serialmux.NewDisabledSerialMux(), SerialConfigSnapshot{}, factory)
	defer mgr.Close()

	_, frames := mgr.Subscribe()

	if _, err := mgr.ReloadConfig(context.Background()); err != nil {
		t.Fatalf("ReloadConfig failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mgr.Monitor(ctx)

	// Give the fanout and monitor loops time to attach to the new mux.
	time.Sleep(100 * time.Millisecond)
	ports[0].AddReadData([]byte("{\"sensors\":{\"a\":1}}\n"))

	select {
	case frame := <-frames:
		if frame != `{"sensors":{"a":1}}` {
			t.Errorf("frame = %q", frame)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("fanout subscriber did not receive frame after reload")
	}
}
