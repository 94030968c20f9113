package serialmux

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	mux := NewSerialMux(NewTestableSerialPort())

	id1, ch1 := mux.Subscribe()
	id2, ch2 := mux.Subscribe()
	if id1 == id2 {
		t.Errorf("subscriber IDs should be unique, both %q", id1)
	}
	if len(mux.subscribers) != 2 {
		t.Errorf("got %d subscribers, want 2", len(mux.subscribers))
	}

	mux.Unsubscribe(id1)
	if _, ok := <-ch1; ok {
		t.Error("channel should be closed after Unsubscribe")
	}
	if len(mux.subscribers) != 1 {
		t.Errorf("got %d subscribers after unsubscribe, want 1", len(mux.subscribers))
	}

	// Unsubscribing an unknown ID is a no-op.
	mux.Unsubscribe("does-not-exist")

	mux.Unsubscribe(id2)
	if _, ok := <-ch2; ok {
		t.Error("second channel should be closed after Unsubscribe")
	}
}

func TestSendCommandAppendsNewline(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)

	if err := mux.SendCommand(`{"type":"status_request"}`); err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}
	got := string(port.GetWrittenData())
	if got != `{"type":"status_request"}`+"\n" {
		t.Errorf("written = %q, want newline appended", got)
	}

	port.Reset()
	if err := mux.SendCommand("already\n"); err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}
	if got := string(port.GetWrittenData()); got != "already\n" {
		t.Errorf("written = %q, want no doubled newline", got)
	}
}

func TestSendCommandWriteError(t *testing.T) {
	port := NewTestableSerialPort()
	port.WriteError = errors.New("bus fault")
	mux := NewSerialMux(port)

	if err := mux.SendCommand("x"); err == nil {
		t.Error("expected write error to propagate")
	}
}

func TestInitializeHandshake(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)

	if err := mux.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	written := string(port.GetWrittenData())
	lines := strings.Split(strings.TrimSpace(written), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d handshake commands, want 3: %q", len(lines), written)
	}
	if !strings.HasPrefix(lines[0], `{"type":"clock_sync","unix":`) {
		t.Errorf("first command = %q, want clock_sync", lines[0])
	}
	if lines[1] != `{"type":"config_request"}` {
		t.Errorf("second command = %q, want config_request", lines[1])
	}
	if lines[2] != `{"type":"status_request"}` {
		t.Errorf("third command = %q, want status_request", lines[2])
	}
}

func TestMonitorDeliversFrames(t *testing.T) {
	port := NewTestableSerialPort()
	port.BlockReads = true
	mux := NewSerialMux(port)

	_, ch := mux.Subscribe()
	received := make(chan string, 1)
	go func() {
		received <- <-ch
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	monitorDone := make(chan error, 1)
	go func() {
		monitorDone <- mux.Monitor(ctx)
	}()

	// Give the receiver time to block on the channel before emitting.
	time.Sleep(10 * time.Millisecond)
	port.AddReadData([]byte("{\"sensors\":{\"a\":1}}\n"))

	select {
	case got := <-received:
		if got != `{"sensors":{"a":1}}` {
			t.Errorf("frame = %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame delivery")
	}

	cancel()
	select {
	case err := <-monitorDone:
		if err != context.Canceled {
			t.Errorf("Monitor returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not exit after cancel")
	}
}

func TestMonitorLengthPrefixedFrame(t *testing.T) {
	port := NewTestableSerialPort()
	port.BlockReads = true
	mux := NewSerialMux(port)

	_, ch := mux.Subscribe()
	received := make(chan string, 1)
	go func() {
		received <- <-ch
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mux.Monitor(ctx)

	time.Sleep(10 * time.Millisecond)
	body := "{\"sensors\":\n{\"a\":1}}"
	port.AddReadData([]byte(frame(body) + "\n"))

	select {
	case got := <-received:
		if got != frame(body) {
			t.Errorf("frame = %q, want %q", got, frame(body))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame delivery")
	}
}

func TestCloseClosesSubscribers(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)
	_, ch := mux.Subscribe()

	if err := mux.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, ok := <-ch; ok {
		t.Error("subscriber channel should be closed")
	}
	if !port.Closed {
		t.Error("port should be closed")
	}
}

func TestDisabledSerialMux(t *testing.T) {
	mux := NewDisabledSerialMux()

	if err := mux.Initialize(); err != nil {
		t.Errorf("Initialize = %v, want nil", err)
	}
	if err := mux.SendCommand("anything"); err != nil {
		t.Errorf("SendCommand = %v, want nil", err)
	}

	id, ch := mux.Subscribe()
	mux.Unsubscribe(id)
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Unsubscribe")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mux.Monitor(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Monitor = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Monitor did not return after cancel")
	}

	if err := mux.Close(); err != nil {
		t.Errorf("Close = %v, want nil", err)
	}
	// Subscribing after close yields an already-closed channel.
	_, ch = mux.Subscribe()
	if _, ok := <-ch; ok {
		t.Error("post-close Subscribe should return a closed channel")
	}
}

func TestMockSerialPortFactory(t *testing.T) {
	port := NewTestableSerialPort()
	factory := NewMockSerialPortFactory(port)

	got, err := factory.Open("/dev/ttyACM0", DefaultSerialPortMode())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if got != SerialPorter(port) {
		t.Error("Open should return the configured port")
	}
	call := factory.LastCall()
	if call == nil || call.Path != "/dev/ttyACM0" {
		t.Errorf("LastCall = %+v", call)
	}
	if call.Mode.BaudRate != 115200 {
		t.Errorf("default baud = %d, want 115200", call.Mode.BaudRate)
	}
}
