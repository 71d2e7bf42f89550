package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "redditlookup"

var (
	// AttributeErrors counts attribute reads that fell back to NULL, by kind:
	// "unavailable" for expected misses, "unexpected" for anything else and
	// "conversion" for values that could not be converted.
	AttributeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "attribute_errors_total",
		Help:      "Attribute reads that produced NULL instead of a value.",
	}, []string{"kind"})

	UnresolvedIdentities = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unresolved_identities_total",
		Help:      "Objects whose identity could not be resolved.",
	})

	// RecordsWritten counts rows per table and outcome: "inserted", "skipped"
	// (conflict) or "failed".
	RecordsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_written_total",
		Help:      "Rows offered to the database, by table and outcome.",
	}, []string{"table", "outcome"})

	RemoteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "remote_failures_total",
		Help:      "Failed reddit calls, by operation.",
	}, []string{"operation"})

	Fetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "objects_fetched_total",
		Help:      "Objects fetched from reddit, by kind.",
	}, []string{"kind"})
)

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, logger *slog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to stop metrics server", "error", err)
		}
	}()

	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
}
