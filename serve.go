package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fabfab/pdfqa/api"
)

const shutdownTimeout = 10 * time.Second

func (a *app) newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and chat UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.HTTPAddr = addr
			}
			return a.serve()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	return cmd
}

func (a *app) serve() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := openBackend(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer store.close(context.Background())

	// Chunks left by a previous process are unreachable once it exits.
	if err := store.purge(ctx); err != nil {
		return fmt.Errorf("purge %s backend: %w", store.name, err)
	}

	coord, err := newCoordinator(a.cfg, store.factory, a.logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           api.New(a.cfg, coord, a.logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Printf("serving on %s (embeddings %s/%s, llm %s/%s, index %s)",
			a.cfg.HTTPAddr,
			strings.ToUpper(a.cfg.Embeddings.Provider), a.cfg.Embeddings.Model,
			strings.ToUpper(a.cfg.LLM.Provider), a.cfg.LLM.Model,
			store.name,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		a.logger.Println("shutting down")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Printf("http shutdown: %v", err)
	}
	if err := coord.Close(shutdownCtx); err != nil {
		a.logger.Printf("release index: %v", err)
	}
	return nil
}
