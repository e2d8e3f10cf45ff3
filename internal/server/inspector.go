// Package server exposes a read-only inspector over HTTP: a JSON snapshot of the crowd and
// a websocket stream of lifecycle events.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/zeusync/crowdsim/internal/core/events/bus"
	"github.com/zeusync/crowdsim/internal/core/observability/log"
	"github.com/zeusync/crowdsim/internal/sim"
)

// Viewer provides consistent snapshots of the simulation.
type Viewer interface {
	View() sim.View
}

type Inspector struct {
	addr   string
	viewer Viewer
	events bus.EventBus
	logger log.Log
	hub    *hub
	sub    bus.Subscription
	server *http.Server
}

// Snapshot is the body of GET /snapshot: the simulation view plus event bus counters.
type Snapshot struct {
	sim.View
	Events bus.EventBusMetrics `json:"events"`
}

// NewInspector subscribes to every event on events. Close releases the subscription.
func NewInspector(addr string, viewer Viewer, events bus.EventBus, logger log.Log) (*Inspector, error) {
	if viewer == nil {
		return nil, ErrNilViewer
	}
	if events == nil {
		return nil, ErrNilEventBus
	}
	logger = log.OrNop(logger).Named("inspector")
	i := &Inspector{addr: addr, viewer: viewer, events: events, logger: logger, hub: newHub(logger)}
	sub, err := events.Subscribe(bus.Wildcard, i.hub.broadcast)
	if err != nil {
		return nil, err
	}
	i.sub = sub
	return i, nil
}

func (i *Inspector) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /snapshot", i.handleSnapshot)
	mux.HandleFunc("GET /ws", i.handleWebSocket)
	return mux
}

// Clients returns the number of connected websocket clients.
func (i *Inspector) Clients() int { return i.hub.size() }

// Run serves until ctx is done, then shuts the server down gracefully.
func (i *Inspector) Run(ctx context.Context) error {
	if i.addr == "" {
		return ErrMissingAddr
	}
	ln, err := net.Listen("tcp", i.addr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrListenerFailed, err)
	}
	return i.Serve(ctx, ln)
}

func (i *Inspector) Serve(ctx context.Context, ln net.Listener) error {
	i.server = &http.Server{Handler: i.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- i.server.Serve(ln) }()
	i.logger.Info("inspector listening", log.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		i.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	i.Close()
	if err := i.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// Close stops the event subscription and disconnects every client.
func (i *Inspector) Close() {
	if err := i.events.Unsubscribe(i.sub); err != nil {
		i.logger.Warn("unsubscribe inspector", log.Error(err))
	}
	i.hub.closeAll()
}

func (i *Inspector) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	snap := Snapshot{View: i.viewer.View(), Events: i.events.GetMetrics()}
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		i.logger.Warn("write snapshot", log.Error(err))
	}
}
