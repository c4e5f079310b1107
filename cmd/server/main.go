package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	authmem "github.com/Wyydra/lyra/internal/adapter/driven/auth/memory"
	repo "github.com/Wyydra/lyra/internal/adapter/driven/persistence/memory"
	handler "github.com/Wyydra/lyra/internal/adapter/driving/http"
	"github.com/Wyydra/lyra/internal/adapter/driving/tcp"
	"github.com/Wyydra/lyra/internal/config"
	"github.com/Wyydra/lyra/internal/core/service"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	tcpAddr  string
	httpAddr string
)

func main() {
	root := &cobra.Command{
		Use:   "lyra-server",
		Short: "Call signaling relay for lyra peers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
	root.Flags().StringVar(&cfgFile, "config", "", "config file")
	root.Flags().StringVar(&tcpAddr, "tcp-addr", "", "signaling listen address")
	root.Flags().StringVar(&httpAddr, "http-addr", "", "websocket/health listen address")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	w := zerolog.ConsoleWriter{Out: os.Stdout}
	l := zerolog.New(w).With().Timestamp().Caller().Logger()
	zlog.Logger = l

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	// flags win over config file values
	if tcpAddr != "" {
		cfg.TCPAddr = tcpAddr
	}
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}

	users := repo.NewUserRepository()
	messages := repo.NewMessageRepository()
	files := repo.NewFileRepository()
	auth := authmem.NewAuthenticator(users)

	registry := service.NewSessionRegistry(cfg.IdleTimeout, cfg.SweepInterval)
	calls := service.NewCallCoordinator(cfg.CallGrace)
	router := service.NewRouter(registry, calls, auth, messages, files)

	go registry.Run()

	signaling := tcp.NewServer(cfg.TCPAddr, router)
	if err := signaling.Start(); err != nil {
		return err
	}

	h := handler.NewHandler(router)
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: h.NewRouter(),
	}

	go func() {
		l.Info().Str("addr", cfg.HTTPAddr).Msg("Starting http server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal().Err(err).Msg("Failed to start http server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	l.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		l.Error().Err(err).Msg("Http server forced to shutdown")
	}
	if err := signaling.Shutdown(ctx); err != nil {
		l.Error().Err(err).Msg("Signaling server forced to shutdown")
	}

	registry.Stop()
	calls.Stop()
	l.Info().Msg("Server exited")
	return nil
}
