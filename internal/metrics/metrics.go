package metrics

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/doridoridoriand/fastping/internal/config"
	"github.com/doridoridoriand/fastping/internal/state"
)

// Snapshotter is the read side of the state store.
type Snapshotter interface {
	Snapshot() []state.TargetStatus
}

// Server exposes Prometheus-style metrics based on current state.
type Server struct {
	mode    config.MetricsMode
	store   Snapshotter
	dropped func() uint64
}

// NewServer constructs a metrics server. dropped reports the event bus drop
// counter and may be nil.
func NewServer(mode config.MetricsMode, store Snapshotter, dropped func() uint64) *Server {
	return &Server{mode: mode, store: store, dropped: dropped}
}

// Handler returns an http handler that serves metrics.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		bw := bufio.NewWriter(w)
		defer bw.Flush()
		s.writeMetrics(bw)
	})
}

func (s *Server) writeMetrics(w *bufio.Writer) {
	snapshot := s.store.Snapshot()

	if s.mode == config.MetricsModeAggregated || s.mode == config.MetricsModeBoth {
		writeAggregated(w, snapshot)
	}
	if s.mode == config.MetricsModePerTarget || s.mode == config.MetricsModeBoth {
		writePerTarget(w, snapshot)
	}
	if s.dropped != nil {
		fmt.Fprintf(w, "fastping_events_dropped_total %d\n", s.dropped())
	}
}

func writeAggregated(w *bufio.Writer, snapshot []state.TargetStatus) {
	total := len(snapshot)
	var okCount, warnCount, downCount, stoppedCount, unknownCount int
	for _, target := range snapshot {
		switch target.Status {
		case state.StatusOK:
			okCount++
		case state.StatusWarn:
			warnCount++
		case state.StatusDown:
			downCount++
		case state.StatusStopped:
			stoppedCount++
		default:
			unknownCount++
		}
	}
	fmt.Fprintf(w, "fastping_targets_total %d\n", total)
	fmt.Fprintf(w, "fastping_targets_ok %d\n", okCount)
	fmt.Fprintf(w, "fastping_targets_warn %d\n", warnCount)
	fmt.Fprintf(w, "fastping_targets_down %d\n", downCount)
	fmt.Fprintf(w, "fastping_targets_stopped %d\n", stoppedCount)
	fmt.Fprintf(w, "fastping_targets_unknown %d\n", unknownCount)
}

func writePerTarget(w *bufio.Writer, snapshot []state.TargetStatus) {
	for _, target := range snapshot {
		labels := fmt.Sprintf("target=\"%s\"", escapeLabel(target.Name))
		up := 0
		if target.Status == state.StatusOK {
			up = 1
		}
		fmt.Fprintf(w, "fastping_target_up{%s} %d\n", labels, up)
		if !target.LastSuccessAt.IsZero() {
			fmt.Fprintf(w, "fastping_target_latency_ms{%s} %s\n", labels, formatFloat(target.LastLatency))
		}
		fmt.Fprintf(w, "fastping_target_timeouts_total{%s} %d\n", labels, target.TotalFailure)
		if target.HasLoss {
			fmt.Fprintf(w, "fastping_target_loss_percent{%s} %d\n", labels, target.LossPercent)
		}
		if target.HasAverage {
			fmt.Fprintf(w, "fastping_target_avg_latency_ms{%s} %s\n", labels, formatFloat(target.AverageLatency))
		}
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func escapeLabel(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	value = strings.ReplaceAll(value, "\n", "\\n")
	return value
}

// Serve starts an HTTP server and blocks until context cancellation.
func Serve(ctx context.Context, addr string, server *Server) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", server.Handler())
	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		_ = httpServer.Shutdown(context.Background())
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return context.Canceled
		}
		return err
	}
}
