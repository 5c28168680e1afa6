// Command camwatch runs the collision-report daemon: it polls traffic camera
// streams for collisions, queues detections for operator review, and serves
// the HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/banshee-data/collision.report/internal/alerting"
	"github.com/banshee-data/collision.report/internal/api"
	"github.com/banshee-data/collision.report/internal/config"
	"github.com/banshee-data/collision.report/internal/db"
	"github.com/banshee-data/collision.report/internal/events"
	"github.com/banshee-data/collision.report/internal/monitoring"
	"github.com/banshee-data/collision.report/internal/scheduler"
	"github.com/banshee-data/collision.report/internal/timeutil"
	"github.com/banshee-data/collision.report/internal/version"
	"github.com/banshee-data/collision.report/internal/vision"
)

var (
	listen      = flag.String("listen", "", "HTTP listen address (overrides CAMWATCH_HTTP_ADDR)")
	dbPath      = flag.String("db", "", "Path to the SQLite database file (overrides CAMWATCH_DB_PATH)")
	tuningPath  = flag.String("tuning", "", "Path to a detection tuning JSON file (overrides CAMWATCH_TUNING)")
	debug       = flag.Bool("debug", false, "Enable debug logging")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	envCfg, err := config.LoadEnv()
	if err != nil {
		log.Fatalf("Failed to load environment config: %v", err)
	}
	if *listen == "" {
		*listen = envCfg.HTTPAddr
	}
	if *dbPath == "" {
		*dbPath = envCfg.DBPath
	}
	if *tuningPath == "" {
		*tuningPath = envCfg.TuningPath
	}
	monitoring.SetDebug(*debug || envCfg.Debug)

	// `camwatch migrate <action>` manages the schema and exits.
	if flag.Arg(0) == "migrate" {
		db.RunMigrateCommand(flag.Args()[1:], *dbPath)
		return
	}

	tuning := config.EmptyTuningConfig()
	if *tuningPath != "" {
		tuning, err = config.LoadTuningConfig(*tuningPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
		log.Printf("loaded detection tuning from %s", *tuningPath)
	}

	database, err := db.OpenDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// A fresh database is brought straight to the latest schema; an existing
	// one with outstanding migrations refuses to start so upgrades stay
	// deliberate.
	migrationsFS, err := db.MigrationsFS()
	if err != nil {
		log.Fatalf("Failed to load migrations: %v", err)
	}
	schemaVersion, _, err := database.MigrateVersion(migrationsFS)
	if err != nil {
		log.Fatalf("Failed to read schema version: %v", err)
	}
	if schemaVersion == 0 {
		log.Printf("fresh database at %s, applying schema migrations", *dbPath)
		if err := database.MigrateUp(migrationsFS); err != nil {
			log.Fatalf("Failed to initialise database schema: %v", err)
		}
	} else if _, err := database.CheckAndPromptMigrations(migrationsFS); err != nil {
		log.Fatalf("%v", err)
	}

	bus := events.NewBus(timeutil.RealClock{})

	machine := alerting.NewMachine(database, bus)
	pipeline := vision.PipelineFromTuning(tuning)
	sched := scheduler.NewScheduler(database, pipeline, machine, bus, tuning.GetScanInterval())

	// Reattach monitoring loops for streams flagged before the last shutdown.
	if err := sched.Resume(); err != nil {
		log.Fatalf("Failed to resume monitoring: %v", err)
	}

	log.Printf("%s listening on %s (db %s, scan interval %s)",
		version.String(), *listen, *dbPath, tuning.GetScanInterval())

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(database, bus, sched, machine).ServeMux()

		// admin debugging routes (accessible only in dev mode or over Tailscale)
		if envCfg.AdminRoutes {
			database.AttachAdminRoutes(mux)
		}

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	sched.StopAll()
	bus.Close()
	log.Printf("Graceful shutdown complete")
}
