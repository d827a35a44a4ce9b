package mainboilerplate

import (
	"context"
	_ "expvar" // Import for /debug/vars
	"net/http"
	_ "net/http/pprof" // Import for /debug/pprof
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// DiagnosticsConfig configures pull-based application metrics, debugging and diagnostics.
type DiagnosticsConfig struct {
	Port string `long:"port" env:"PORT" default:"" description:"Port serving metrics and debugging services. Diagnostics aren't served if not set"`
}

// InitDiagnosticsAndRecover registers metrics and debugging services on the
// default HTTPMux. It also returns a closure which should be deferred, which
// logs a recovered panic before re-raising it.
func InitDiagnosticsAndRecover(cfg DiagnosticsConfig) func() {
	// Package "net/http/pprof" serves /debug/pprof/.
	// Package "expvar" serves /debug/vars

	// Serve a liveness check at /debug/ready.
	http.HandleFunc("/debug/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	// Serve Prometheus metrics at /debug/metrics.
	http.Handle("/debug/metrics", promhttp.Handler())

	return func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("recovered panic; re-raising")
			panic(r)
		}
	}
}

// ServeDiagnostics serves the default HTTPMux on the configured port until
// |ctx| is cancelled. It returns immediately if no port is configured.
func ServeDiagnostics(ctx context.Context, cfg DiagnosticsConfig) error {
	if cfg.Port == "" {
		return nil
	}
	var srv = &http.Server{Addr: ":" + cfg.Port, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		var shutdownCtx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithField("port", cfg.Port).Info("serving diagnostics")
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return errors.WithMessage(err, "serving diagnostics")
	}
	return nil
}

// Must panics if |err| is non-nil, supplying |msg| and |extra| as
// formatter and fields of the generated panic.
func Must(err error, msg string, extra ...interface{}) {
	if err == nil {
		return
	}
	var f = log.Fields{"err": err}
	for i := 0; i+1 < len(extra); i += 2 {
		f[extra[i].(string)] = extra[i+1]
	}
	log.WithFields(f).Panic(msg)
}
