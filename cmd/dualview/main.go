package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/elchatico/dualview/internal/adapters/capture"
	"github.com/elchatico/dualview/internal/adapters/clipboard"
	"github.com/elchatico/dualview/internal/adapters/console"
	"github.com/elchatico/dualview/internal/adapters/rtc"
	"github.com/elchatico/dualview/internal/app"
	"github.com/elchatico/dualview/internal/config"
	"github.com/elchatico/dualview/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	provider := capture.NewProvider(capture.Config{
		CameraAudioAddr: cfg.CameraAudioAddr,
		CameraVideoAddr: cfg.CameraVideoAddr,
		ScreenVideoAddr: cfg.ScreenVideoAddr,
	}, log.Logger)

	rtcCfg := rtc.Config{STUNServers: cfg.STUNServers}
	mgr, err := app.NewManager(app.Factory{
		Log: log.Logger,
		NewTransport: func() (core.Transport, error) {
			return rtc.New(rtcCfg, log.Logger)
		},
		Provider: provider,
		Config: app.SessionConfig{
			ChannelLabel:  cfg.ChannelLabel,
			GatherTimeout: cfg.GatherTimeout,
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start session")
	}

	ctl := console.NewController(mgr, clipboard.New(log.Logger))
	r := console.SetupRouter(ctx, cfg, ctl)

	srv := &http.Server{
		Addr:    cfg.ConsoleAddr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", cfg.ConsoleAddr).Msg("dualview console started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	mgr.Close()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Exited gracefully")
}
