package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ent0n29/pomochat/internal/app"
	"github.com/ent0n29/pomochat/internal/chat"
	"github.com/ent0n29/pomochat/internal/config"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to chat and serve the status API",
		Long: `Connect to the configured chat transport, answer commands and serve the
status API, metrics and overlay page. Configuration comes from
POMOCHAT_CONFIG (TOML) and environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd)
		},
	}
}

func serve(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	res, err := app.Build(runCtx, cfg, app.Options{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()})
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			log.Printf("cleanup failed: %v", err)
		}
	}()

	ln, err := net.Listen("tcp", cfg.BindAddr)
	if err != nil {
		return fmt.Errorf("listen error: %w", err)
	}
	httpServer := &http.Server{
		Handler:           res.API.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	res.StartTimerWatch(runCtx, time.Second)
	res.Maintenance.Start(runCtx)
	if res.Dashboard != nil {
		go func() {
			if err := res.Dashboard.Run(runCtx); err != nil {
				log.Printf("dashboard stopped: %v", err)
				return
			}
			// The board owns the terminal in raw mode, so closing it is the
			// interactive way to stop the bot.
			if runCtx.Err() == nil {
				log.Printf("dashboard closed")
				runCancel()
			}
		}()
	}

	go func() {
		log.Printf("server listening on %s", ln.Addr())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server stopped: %v", err)
			runCancel()
		}
	}()

	chatDone := make(chan error, 1)
	go func() {
		chatDone <- res.Chat.Run(runCtx, res.HandleChat)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case <-sigCh:
		log.Printf("shutdown signal received")
	case err := <-chatDone:
		switch {
		case errors.Is(err, chat.ErrAuthFailed):
			runErr = err
		case err != nil:
			runErr = fmt.Errorf("chat transport %s stopped: %w", res.Chat.Name(), err)
		default:
			log.Printf("chat transport %s finished", res.Chat.Name())
		}
	case <-runCtx.Done():
	}

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
	return runErr
}
