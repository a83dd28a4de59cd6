// Command notifier consumes imported-ride events from JetStream and fans
// them out to WebSocket clients via the broadcast subject. It also pushes
// a periodic aggregate snapshot so freshly connected clients see totals
// without waiting for the next import.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	natsadapter "github.com/samirrijal/bizibide/internal/adapters/nats"
	"github.com/samirrijal/bizibide/internal/adapters/postgres"
	"github.com/samirrijal/bizibide/internal/core/usecases"
	"github.com/samirrijal/bizibide/internal/pkg/config"
)

func main() {
	cfg, err := config.Load("bizibide-notifier")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	db := &postgres.DB{Pool: pool}

	// Publisher owns the stream, subscriber consumes it
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer publisher.Close()

	subscriber, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer subscriber.Close()

	notify := usecases.NewNotifyService(postgres.NewRideRepo(db), publisher)

	if err := subscriber.SubscribeRideImported(ctx, notify.HandleRideImported); err != nil {
		log.Fatalf("subscribe ride imported: %v", err)
	}

	statsInterval := 60 * time.Second
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	log.Printf("BiziBide Notifier running, stats snapshot every %s", statsInterval)

	// Signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Push one snapshot immediately
	broadcastStats(ctx, pool, publisher)

	for {
		select {
		case <-ticker.C:
			broadcastStats(ctx, pool, publisher)
		case <-ctx.Done():
			return
		case sig := <-quit:
			log.Printf("received signal %v, shutting down notifier", sig)
			cancel()
			// Give in-flight handlers time to finish
			time.Sleep(2 * time.Second)
			return
		}
	}
}

// broadcastStats publishes the current ride totals on the broadcast subject.
func broadcastStats(ctx context.Context, pool *pgxpool.Pool, publisher *natsadapter.Publisher) {
	var rides, points int
	var distance float64
	var lastImport *time.Time

	row := pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM rides),
			(SELECT count(*) FROM ride_points),
			(SELECT coalesce(sum(distance_m), 0) FROM rides),
			(SELECT max(created_at) FROM rides)
	`)
	if err := row.Scan(&rides, &points, &distance, &lastImport); err != nil {
		log.Printf("stats query: %v", err)
		return
	}

	snapshot := map[string]any{
		"type":             "stats",
		"rides":            rides,
		"points":           points,
		"total_distance_m": distance,
		"time":             time.Now().UTC(),
	}
	if lastImport != nil {
		snapshot["last_import"] = lastImport.UTC()
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		log.Printf("marshal stats: %v", err)
		return
	}
	if err := publisher.PublishBroadcast(ctx, data); err != nil {
		log.Printf("publish stats: %v", err)
	}
}
