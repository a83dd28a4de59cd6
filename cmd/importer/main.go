package main

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	natsadapter "github.com/samirrijal/bizibide/internal/adapters/nats"
	"github.com/samirrijal/bizibide/internal/adapters/postgres"
	"github.com/samirrijal/bizibide/internal/core/ports"
	"github.com/samirrijal/bizibide/internal/core/usecases"
	"github.com/samirrijal/bizibide/internal/pkg/config"
)

// Bulk importer: walks the given files and directories, parses every GPX
// document (raw or zipped) and stores each as a ride.
//
//	importer ./exports            # import every .gpx/.zip under ./exports
//	importer a.gpx b.zip          # import specific files
func main() {
	cfg, err := config.Load("bizibide-importer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Publishing import events is best effort here, the importer is usually
	// run against a fresh database before the API is up. Keep the interface
	// nil on failure so the service's publisher guard holds.
	var events ports.EventPublisher
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Printf("nats unavailable, events disabled: %v", err)
	} else {
		defer publisher.Close()
		events = publisher
	}

	rides := usecases.NewRideService(postgres.NewRideRepo(db), nil, events)

	args := os.Args[1:]
	if len(args) == 0 {
		args = []string{"."}
	}

	files := collectTrackFiles(args)
	if len(files) == 0 {
		log.Fatal("no .gpx or .zip files found")
	}
	log.Printf("BiziBide importer: %d track files", len(files))

	importTimeout := time.Duration(cfg.Server.ImportTimeout) * time.Second

	var wg sync.WaitGroup
	sem := make(chan struct{}, 4) // max 4 concurrent imports
	var imported, failed atomic.Int64

	for _, path := range files {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := importFile(ctx, rides, path, importTimeout); err != nil {
				log.Printf("ERROR [%s]: %v", filepath.Base(path), err)
				failed.Add(1)
				return
			}
			imported.Add(1)
		}(path)
	}

	wg.Wait()
	log.Printf("import complete: %d ok, %d failed", imported.Load(), failed.Load())
}

func importFile(ctx context.Context, rides *usecases.RideService, path string, timeout time.Duration) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ride, err := rides.Import(ctx, f)
	if err != nil {
		return err
	}

	log.Printf("[%s] ride %s: %.1f km, %d points, %d segments",
		filepath.Base(path), ride.ID, ride.DistanceM/1000, ride.PointCount, ride.SegmentCount)
	return nil
}

// collectTrackFiles expands the given paths into a flat list of importable
// files. Directories are walked recursively.
func collectTrackFiles(args []string) []string {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			log.Printf("skip %s: %v", arg, err)
			continue
		}

		if !info.IsDir() {
			if isTrackFile(arg) {
				files = append(files, arg)
			}
			continue
		}

		_ = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			if isTrackFile(path) {
				files = append(files, path)
			}
			return nil
		})
	}
	return files
}

func isTrackFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gpx", ".zip":
		return true
	}
	return false
}
