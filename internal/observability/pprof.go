package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/riskibarqy/propboard/internal/config"
	"github.com/riskibarqy/propboard/internal/platform/logging"
)

// DebugServer exposes runtime profiles on a separate listener so they never
// share the public API port.
type DebugServer struct {
	srv    *http.Server
	logger *logging.Logger
}

// StartDebugServer returns nil when pprof is disabled. A nil *DebugServer is
// safe to Stop.
func StartDebugServer(cfg config.Config, logger *logging.Logger) *DebugServer {
	if logger == nil {
		logger = logging.Default()
	}

	if !cfg.PprofEnabled {
		logger.Info("pprof disabled", "reason", "PPROF_ENABLED=false")
		return nil
	}

	debug := &DebugServer{
		srv: &http.Server{
			Addr:              cfg.PprofAddr,
			Handler:           debugMux(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger.With("component", "pprof"),
	}

	go func() {
		debug.logger.Info("pprof server starting", "addr", cfg.PprofAddr)
		if err := debug.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			debug.logger.Error("pprof server failed", "error", err)
		}
	}()

	return debug
}

func debugMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

func (d *DebugServer) Stop(ctx context.Context) error {
	if d == nil || d.srv == nil {
		return nil
	}
	if err := d.srv.Shutdown(ctx); err != nil {
		return err
	}
	d.logger.Info("pprof server stopped")
	return nil
}
