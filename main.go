// Command panel-preview runs the dashboard-side decoder and layout preview
// service: it ingests telemetry payloads from tethered panels or HTTP pushes,
// previews the display geometry, and serves the preview API and websocket
// stream.
package main

import (
	"context"
	"embed"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/panel.preview/internal/api"
	"github.com/banshee-data/panel.preview/internal/config"
	"github.com/banshee-data/panel.preview/internal/db"
	"github.com/banshee-data/panel.preview/internal/history"
	"github.com/banshee-data/panel.preview/internal/serialmux"
	"github.com/banshee-data/panel.preview/internal/timeutil"
)

//go:embed static/*
var staticFiles embed.FS

var (
	devMode       = flag.Bool("dev", false, "Run in dev mode with a mock tethered panel")
	listen        = flag.String("listen", envOr("PANEL_PREVIEW_LISTEN", ":8080"), "Listen address")
	dbPath        = flag.String("db", envOr("PANEL_PREVIEW_DB", "panel_preview.db"), "SQLite database path")
	serialPort    = flag.String("serial", os.Getenv("PANEL_PREVIEW_SERIAL"), "Serial port of a tethered panel (empty disables the tether)")
	serialPanel   = flag.String("serial-panel", envOr("PANEL_PREVIEW_SERIAL_PANEL", "tethered"), "Registry panel name that tethered frames belong to")
	inventoryPath = flag.String("inventory", os.Getenv("PANEL_PREVIEW_INVENTORY"), "Panel inventory YAML to sync into the registry at boot")
	configPath    = flag.String("config", os.Getenv("PANEL_PREVIEW_CONFIG"), "Preview defaults JSON (built-in defaults when empty)")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// .env is optional; flags read their defaults from the environment, so
	// load it before flag.Parse.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[main] failed to load .env: %v", err)
	}
	flag.Parse()

	if *showVersion {
		printVersion()
		return
	}

	// Subcommands run and exit before any server wiring.
	if args := flag.Args(); len(args) > 0 {
		runCommand(args, *dbPath)
		return
	}

	if *listen == "" {
		log.Fatal("[main] listen address is required")
	}

	cfg, err := loadPreviewConfig(*configPath)
	if err != nil {
		log.Fatalf("[main] failed to load preview config: %v", err)
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("[main] failed to open database: %v", err)
	}
	defer database.Close()

	if *inventoryPath != "" {
		if err := syncInventory(database, *inventoryPath); err != nil {
			log.Fatalf("[main] inventory sync failed: %v", err)
		}
	}

	panelMux := newPanelMux(database)
	defer panelMux.Close()

	if err := panelMux.Initialize(); err != nil {
		log.Fatalf("[main] failed to initialize tethered panel: %v", err)
	}

	hist := history.NewStore(cfg.GetHistoryPoints(), timeutil.RealClock{})
	server := api.NewServer(database, hist, cfg, panelMux)

	// Tethered frames are attributed to the panel named by -serial-panel.
	// Resolve the name once so HandleEvent works in registry IDs.
	tetherPanelID := *serialPanel
	if p, err := database.GetPanelByName(*serialPanel); err == nil && p != nil {
		tetherPanelID = p.ID
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the monitor routine to manage IO on the serial port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := panelMux.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("[main] failed to monitor serial port: %v", err)
		}
		log.Print("[main] monitor routine terminated")
	}()

	// subscribe to tethered panel frames and pass them to the payload handler
	wg.Add(1)
	go func() {
		defer wg.Done()
		id, frames := panelMux.Subscribe()
		defer panelMux.Unsubscribe(id)
		for {
			select {
			case frame := <-frames:
				serialmux.HandleEvent(database, server, tetherPanelID, frame)
			case <-ctx.Done():
				log.Print("[main] subscribe routine terminated")
				return
			}
		}
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := server.ServeMux()

		// mount the admin debugging routes (accessible only in dev mode or
		// over Tailscale)
		panelMux.AttachAdminRoutes(mux)
		database.AttachAdminRoutes(mux)

		// read static files from the embedded filesystem in production or
		// from the local ./static in dev for easier iteration without
		// restarting the server
		var staticHandler http.Handler
		if *devMode {
			staticHandler = http.FileServer(http.Dir("./static"))
		} else {
			staticFS, err := fs.Sub(staticFiles, "static")
			if err != nil {
				log.Fatalf("[main] bad embedded static tree: %v", err)
			}
			staticHandler = http.FileServer(http.FS(staticFS))
		}
		mux.Handle("/static/", http.StripPrefix("/static", staticHandler))
		mux.Handle("/{$}", http.RedirectHandler("/static/", http.StatusFound))

		httpServer := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("[main] listening on %s", *listen)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("[main] failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Print("[main] shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[main] HTTP server shutdown error: %v", err)
			if err := httpServer.Close(); err != nil {
				log.Printf("[main] HTTP server force close error: %v", err)
			}
		}
		log.Print("[main] HTTP server routine stopped")
	}()

	wg.Wait()
	log.Print("[main] graceful shutdown complete")
}

// loadPreviewConfig falls back to built-in defaults when no path is given.
func loadPreviewConfig(path string) (*config.PreviewConfig, error) {
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigPath); err == nil {
			path = config.DefaultConfigPath
		} else {
			return config.DefaultPreviewConfig(), nil
		}
	}
	cfg, err := config.LoadPreviewConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return cfg, nil
}

// newPanelMux picks the serial transport for the run mode: a canned mock in
// dev, a hot-reloadable real port when -serial is set, otherwise disabled
// (HTTP pushes only).
func newPanelMux(database *db.DB) serialmux.SerialMuxInterface {
	if *devMode {
		log.Print("[main] dev mode: mock tethered panel")
		return serialmux.NewMockSerialMux(serialmux.MockSensorFrame)
	}
	if *serialPort == "" {
		log.Print("[main] no serial port configured; accepting HTTP payload pushes only")
		return serialmux.NewDisabledSerialMux()
	}

	opts, err := serialmux.PortOptions{}.Normalize()
	if err != nil {
		log.Fatalf("[main] bad default port options: %v", err)
	}
	initial, err := serialmux.NewRealSerialMux(*serialPort, opts)
	if err != nil {
		log.Fatalf("[main] failed to open serial port %s: %v", *serialPort, err)
	}
	snapshot := api.SerialConfigSnapshot{
		PortPath: *serialPort,
		Source:   "flag",
		Options:  opts,
	}
	factory := func(path string, o serialmux.PortOptions) (serialmux.SerialMuxInterface, error) {
		return serialmux.NewRealSerialMux(path, o)
	}
	return api.NewSerialPortManager(database, initial, snapshot, factory)
}
