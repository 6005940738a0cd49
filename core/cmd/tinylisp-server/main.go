package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	tinylisp "github.com/komamitsu/tinylisp/core"
	"github.com/komamitsu/tinylisp/core/journal"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	sockPath := envOr("TINYLISP_SOCK", "/tmp/tinylisp.sock")
	journalPath := os.Getenv("TINYLISP_JOURNAL")

	cfg := tinylisp.DefaultConfig()
	if s := os.Getenv("TINYLISP_MAX_DEPTH"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			log.Fatalf("invalid TINYLISP_MAX_DEPTH %q", s)
		}
		cfg.MaxDepth = n
	}

	session := tinylisp.NewSession(cfg)

	// A nil *journal.Journal must not reach NewServer as a non-nil interface.
	var jrnl tinylisp.Journal
	if journalPath != "" {
		j, err := journal.Open(journalPath)
		if err != nil {
			log.Fatalf("failed to open journal: %v", err)
		}
		defer j.Close()

		lines, err := j.Sources(context.Background())
		if err != nil {
			log.Fatalf("failed to read journal: %v", err)
		}
		failed := session.Replay(lines)
		log.Printf("replayed %d journal entries (%d failed)", len(lines), failed)
		jrnl = j
	}

	srv := tinylisp.NewServer(session, jrnl)
	if err := srv.Listen(sockPath); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Println("shutting down...")
		srv.Shutdown()
	}()

	log.Printf("tinylisp server listening (socket: %s, max depth: %d)", sockPath, cfg.MaxDepth)
	srv.Run()
}
