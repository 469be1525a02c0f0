package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loqalabs/loqa-speak/internal/bus"
	"github.com/loqalabs/loqa-speak/internal/config"
	"github.com/loqalabs/loqa-speak/internal/history"
	"github.com/loqalabs/loqa-speak/internal/natsserver"
	"github.com/loqalabs/loqa-speak/internal/synth"
	"github.com/loqalabs/loqa-speak/internal/voices"
)

// Runtime wires the synthesis worker to its supporting services: telemetry,
// download history, the optional event bus and the health/metrics server.
type Runtime struct {
	cfg    config.Config
	logger *slog.Logger
	voices *voices.Table

	telemetryClose func(context.Context) error
	metrics        http.Handler
	history        *history.Store
	nats           *natsserver.EmbeddedServer
	bus            *bus.Client
	handle         *synth.Handle
	httpServer     *http.Server

	ready     atomic.Bool
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
		voices: voices.WithOverrides(cfg.Voices),
	}
}

// Start brings up every service and spawns the worker. On error everything
// started so far is torn down.
func (r *Runtime) Start(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			_ = r.Close(context.Background())
		}
	}()

	r.telemetryClose, r.metrics, err = setupTelemetry(ctx, r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}

	r.history, err = history.Open(ctx, r.cfg.History, r.logger.With(slog.String("component", "history")))
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}

	opts := []synth.Option{synth.WithRecorder(r.history)}
	if r.cfg.Bus.Enabled {
		busCfg := r.cfg.Bus
		r.nats, err = natsserver.Start(busCfg, r.logger)
		if err != nil {
			return err
		}
		if r.nats != nil {
			busCfg.Servers = []string{r.nats.ClientURL()}
		}
		r.bus, err = bus.Connect(ctx, busCfg, r.logger)
		if err != nil {
			return err
		}
		opts = append(opts, synth.WithPublisher(r.bus))
	}

	r.handle = synth.Spawn(r.cfg.Synth, r.voices, r.logger, opts...)

	if r.cfg.HTTP.Enabled {
		addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
		r.httpServer = &http.Server{
			Addr:              addr,
			Handler:           r.routes(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				r.logger.Error("http server failed", slog.String("error", err.Error()))
			}
		}()
		r.logger.Info("http server listening", slog.String("addr", addr))
	}

	r.ready.Store(true)
	r.logger.Info("runtime started",
		slog.String("endpoint", r.cfg.Synth.Endpoint),
		slog.Int("voices", r.voices.Len()))
	return nil
}

// Handle returns the worker handle. There is exactly one per runtime.
func (r *Runtime) Handle() *synth.Handle { return r.handle }

func (r *Runtime) Voices() *voices.Table { return r.voices }

func (r *Runtime) History() *history.Store { return r.history }

// Close stops the worker first, waiting for an in-flight request up to ctx,
// then releases the remaining services.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	r.closeOnce.Do(func() {
		r.ready.Store(false)
		r.logger.Info("runtime stopping")

		if r.handle != nil {
			r.handle.Close()
			select {
			case <-r.handle.Done():
			case <-ctx.Done():
				r.logger.Warn("synthesis worker still busy at shutdown")
			}
		}
		if r.httpServer != nil {
			if err := r.httpServer.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("http shutdown: %w", err))
			}
			r.wg.Wait()
		}
		r.bus.Close()
		r.nats.Shutdown()
		if err := r.history.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close history: %w", err))
		}
		if r.telemetryClose != nil {
			if err := r.telemetryClose(ctx); err != nil {
				errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
			}
		}
	})
	return errors.Join(errs...)
}

func (r *Runtime) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	mux.HandleFunc("/voices", r.handleVoices)
	mux.HandleFunc("/history", r.handleHistory)
	if r.metrics != nil {
		mux.Handle("/metrics", r.metrics)
	}
	return mux
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	ready := r.ready.Load() && r.handle != nil && r.handle.Running()
	if r.cfg.Bus.Enabled && !r.bus.Healthy() {
		ready = false
	}
	if ready {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

func (r *Runtime) handleVoices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string][]string{"voices": r.voices.IDs()})
}

func (r *Runtime) handleHistory(w http.ResponseWriter, req *http.Request) {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	entries, err := r.history.List(req.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, entries)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
