package main

import (
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/panel.preview/internal/db"
	"github.com/banshee-data/panel.preview/internal/inventory"
	"github.com/banshee-data/panel.preview/internal/version"
)

// runCommand dispatches the non-server subcommands and exits the process when
// one fails.
func runCommand(args []string, dbPath string) {
	switch args[0] {
	case "migrate":
		db.RunMigrateCommand(args[1:], dbPath)
	case "inventory":
		runInventoryCommand(args[1:], dbPath)
	case "version":
		printVersion()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func runInventoryCommand(args []string, dbPath string) {
	if len(args) == 0 || args[0] != "sync" {
		fmt.Fprintln(os.Stderr, "usage: panel-preview inventory sync -inventory <file.yaml>")
		os.Exit(2)
	}
	if *inventoryPath == "" {
		fmt.Fprintln(os.Stderr, "inventory sync requires -inventory <file.yaml>")
		os.Exit(2)
	}

	database, err := db.NewDB(dbPath)
	if err != nil {
		log.Fatalf("[main] failed to open database: %v", err)
	}
	defer database.Close()

	if err := syncInventory(database, *inventoryPath); err != nil {
		log.Fatalf("[main] inventory sync failed: %v", err)
	}
}

// syncInventory loads the declarative panel fleet file and upserts it into
// the registry.
func syncInventory(database *db.DB, path string) error {
	inv, err := inventory.Load(path)
	if err != nil {
		return err
	}
	n, err := inventory.Sync(database, inv)
	if err != nil {
		return err
	}
	log.Printf("[main] inventory sync: %d panel(s) from %s", n, path)
	return nil
}

func printVersion() {
	fmt.Printf("panel-preview %s\n", version.String())
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: panel-preview [flags] [command]

commands:
  migrate <up|down|status|to|force>   manage database schema migrations
  inventory sync                      sync the panel inventory into the registry
  version                             print version information

Run with no command to start the preview server.`)
}
