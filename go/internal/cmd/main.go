package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jkram11/bombsquad/go/internal/gateway"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file loaded")
	}

	config, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(config.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.ConnectionConfig.WriteTimeout = config.writeTimeout()
	gatewayConfig.ConnectionConfig.ReadTimeout = config.readTimeout()
	gatewayConfig.ConnectionConfig.PingInterval = config.pingInterval()

	clock := clockwork.NewRealClock()
	gatewayService := gateway.NewService(gatewayConfig, clock, clock.Now().UnixNano())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go gatewayService.Start(ctx)

	server := setupServer(config, gatewayService)

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server running")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}
