// Package servicehost exposes a constructed presence Core over a small HTTP
// surface: a health probe plus a service-identity/status endpoint for
// discovery and ops tooling. Presence data itself never travels over this
// server; that is the fetchers' and publishers' job.
package servicehost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-presence/pkg/presence"
)

// Host serves the health and identity endpoints for one presence Core.
type Host struct {
	core       *presence.Core
	logger     zerolog.Logger
	httpPort   string
	httpServer *http.Server
	mux        *http.ServeMux
	actualAddr string
	mu         sync.RWMutex
}

// serviceStatus is the /servicez response body.
type serviceStatus struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Stats       presence.Stats `json:"stats"`
}

// NewHost creates and initializes a new Host for the given Core.
func NewHost(core *presence.Core, logger zerolog.Logger, httpPort string) *Host {
	h := &Host{
		core:     core,
		logger:   logger.With().Str("component", "ServiceHost").Logger(),
		httpPort: httpPort,
		mux:      http.NewServeMux(),
	}
	h.mux.HandleFunc("/healthz", HealthzHandler)
	h.mux.HandleFunc("/servicez", h.servicezHandler)
	h.httpServer = &http.Server{
		Addr:    httpPort,
		Handler: h.mux,
	}
	return h
}

// Start initiates the HTTP server in a background goroutine.
func (h *Host) Start() error {
	listener, err := net.Listen("tcp", h.httpPort)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", h.httpPort, err)
	}

	h.mu.Lock()
	h.actualAddr = listener.Addr().String()
	h.mu.Unlock()

	h.logger.Info().Str("address", h.actualAddr).Msg("HTTP server starting to listen")

	go func() {
		if err := h.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	return nil
}

// Shutdown gracefully stops the HTTP server, respecting the provided
// context's deadline.
func (h *Host) Shutdown(ctx context.Context) error {
	h.logger.Info().Msg("Shutting down HTTP server...")
	if err := h.httpServer.Shutdown(ctx); err != nil {
		h.logger.Error().Err(err).Msg("Error during HTTP server shutdown.")
		return err
	}
	h.logger.Info().Msg("HTTP server stopped.")
	return nil
}

// GetHTTPPort returns the actual port the server is listening on.
func (h *Host) GetHTTPPort() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, port, err := net.SplitHostPort(h.actualAddr)
	if err != nil {
		return h.httpPort
	}
	return ":" + port
}

// Mux returns the underlying ServeMux so hosts can attach more handlers.
func (h *Host) Mux() *http.ServeMux {
	return h.mux
}

// servicezHandler reports the core's identity and pool sizes.
func (h *Host) servicezHandler(w http.ResponseWriter, _ *http.Request) {
	status := serviceStatus{
		Name:        h.core.Name(),
		Description: h.core.Description(),
		Stats:       h.core.Stats(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode service status.")
	}
}

// HealthzHandler responds to health check probes.
func HealthzHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
