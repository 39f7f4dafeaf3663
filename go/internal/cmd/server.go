package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/rs/cors"

	"github.com/jkram11/bombsquad/go/internal/gateway"
)

func setupServer(config *Config, gatewayService *gateway.Service) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	// Register WebSocket routes
	gatewayService.RegisterRoutes(mux)

	// Add health check endpoint
	setupHealthCheck(mux)

	// Serve the built client bundle when present
	setupStaticFiles(mux, config.Server.StaticDir)

	return &http.Server{
		Addr:    fmt.Sprintf(":%s", config.Server.Port),
		Handler: c.Handler(mux),
	}
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func setupStaticFiles(mux *http.ServeMux, dir string) {
	if _, err := os.Stat(dir); err != nil {
		return
	}
	mux.Handle("/", http.FileServer(http.Dir(dir)))
}
