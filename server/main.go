package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"zombie-server/collision"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	configPath := flag.String("config", "", "Path to YAML config (default: built-in settings)")
	dbPath := flag.String("db", "", "SQLite database path, overrides the config; \"-\" disables persistence")
	clientDir := flag.String("client", "", "Path to static client files (optional)")
	flag.Parse()

	cfg := DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = LoadConfig(*configPath); err != nil {
			log.Fatalf("config: %v", err)
		}
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if cfg.Debug {
		collision.SetLogger(log.New(os.Stderr, "collision: ", log.LstdFlags|log.Lmicroseconds))
	}

	var db *DB
	if cfg.Database.Path != "-" && cfg.Database.Path != "" {
		var err error
		if db, err = OpenDB(cfg.Database.Path); err != nil {
			log.Fatalf("open database %s: %v", cfg.Database.Path, err)
		}
		defer db.Close()
	}

	hub := NewHub(cfg, db)
	go hub.Run()

	mux := SetupRoutes(hub, *clientDir)

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		log.Printf("Server starting on %s", *addr)
		if db != nil {
			log.Printf("Recording stats to %s", cfg.Database.Path)
		}
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down...")
	server.Close()
	hub.Close()
}
