package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"holocardserver/internal/cards"
	"holocardserver/internal/server"
)

func main() {
	var (
		addr      = flag.String("addr", ":8000", "HTTP listen address")
		cardsPath = flag.String("cards", "decks/card_definitions.json", "path to the card manifest")
		grace     = flag.Duration("grace", 30*time.Second, "reconnect grace before a disconnect forfeits")
		dev       = flag.Bool("dev", false, "human-readable logs")
	)
	flag.Parse()

	log, err := buildLogger(*dev)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	db, err := cards.Load(*cardsPath)
	if err != nil {
		log.Fatal("load card manifest", zap.Error(err))
	}
	log.Info("card manifest loaded", zap.String("path", *cardsPath), zap.Int("cards", db.Len()))

	srv := server.New(log, db, server.Config{DisconnectGrace: *grace}, prometheus.DefaultRegisterer)
	httpSrv := &http.Server{
		Addr:    *addr,
		Handler: srv.Router(),
	}

	go func() {
		log.Info("listening", zap.String("addr", *addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server", zap.Error(err))
		}
	}()

	// Wait for signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
}

func buildLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
