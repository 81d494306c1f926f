// ABOUTME: Migration utility for moving leadpipe data between storage backends.
// ABOUTME: Provides dry-run and backup capabilities for safe backend switches.

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/harperreed/leadpipe/app"
	"github.com/harperreed/leadpipe/config"
	"github.com/harperreed/leadpipe/logging"
	"github.com/harperreed/leadpipe/store"
)

func main() {
	fromBackend := flag.String("from", config.BackendSQLite, "Source backend (sqlite, badger, charm)")
	fromPath := flag.String("from-path", "", "Source database path (default: backend default)")
	toBackend := flag.String("to", "", "Destination backend (required)")
	toPath := flag.String("to-path", "", "Destination database path (default: backend default)")
	dryRun := flag.Bool("dry-run", false, "Show what would happen without making changes")
	backup := flag.Bool("backup", true, "Back up a sqlite destination before writing")
	force := flag.Bool("force", false, "Overwrite data already present in the destination")
	flag.Parse()

	if *toBackend == "" {
		log.Fatal("Error: -to flag is required")
	}

	src, err := backendConfig(*fromBackend, *fromPath)
	if err != nil {
		log.Fatalf("Invalid source: %v", err)
	}
	dst, err := backendConfig(*toBackend, *toPath)
	if err != nil {
		log.Fatalf("Invalid destination: %v", err)
	}
	if src.Backend == dst.Backend && src.DBPath == dst.DBPath {
		log.Fatal("Error: source and destination are the same")
	}

	if err := migrate(src, dst, *dryRun, *backup, *force); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Migration completed successfully")
}

func backendConfig(backend, path string) (*config.Config, error) {
	if backend == config.BackendMemory {
		return nil, fmt.Errorf("the memory backend holds no data to migrate")
	}
	cfg := config.Default()
	cfg.Backend = backend
	switch {
	case path != "":
		cfg.DBPath = path
	case backend == config.BackendBadger:
		cfg.DBPath = filepath.Join(cfg.DataDir, "badger")
	}
	return cfg, cfg.Validate()
}

func migrate(srcCfg, dstCfg *config.Config, dryRun, createBackup, force bool) error {
	if createBackup && !dryRun && dstCfg.Backend == config.BackendSQLite {
		if _, err := os.Stat(dstCfg.DBPath); err == nil {
			backupPath := fmt.Sprintf("%s.backup.%s", dstCfg.DBPath, time.Now().Format("20060102-150405"))
			log.Printf("Creating backup: %s", backupPath)

			input, err := os.ReadFile(dstCfg.DBPath)
			if err != nil {
				return fmt.Errorf("failed to read database: %w", err)
			}
			if err := os.WriteFile(backupPath, input, 0644); err != nil {
				return fmt.Errorf("failed to create backup: %w", err)
			}
			log.Printf("Backup created successfully")
		}
	}

	logger := logging.Discard()

	srcKV, srcCloser, _, err := app.OpenKV(srcCfg)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer func() { _ = srcCloser.Close() }()

	dstKV, dstCloser, _, err := app.OpenKV(dstCfg)
	if err != nil {
		return fmt.Errorf("failed to open destination: %w", err)
	}
	defer func() { _ = dstCloser.Close() }()

	log.Printf("Copying %s (%s) → %s (%s)", srcCfg.Backend, srcCfg.DBPath, dstCfg.Backend, dstCfg.DBPath)
	if dryRun {
		log.Println("DRY RUN - no changes will be made")
	}

	res, err := store.Copy(store.New(srcKV, logger), store.New(dstKV, logger), force, dryRun)
	for _, k := range res.Copied {
		log.Printf("  copied   %s", k)
	}
	for _, k := range res.Skipped {
		log.Printf("  skipped  %s (exists in destination, use -force to overwrite)", k)
	}
	for _, k := range res.Missing {
		log.Printf("  missing  %s (not in source)", k)
	}
	return err
}
