package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Event metrics
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakroom_events_total",
			Help: "Total button-press events processed",
		},
		[]string{"event", "action"},
	)

	RejectedMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "breakroom_rejected_messages_total",
			Help: "Free-text messages answered with a button re-prompt",
		},
	)

	// Accounting metrics
	OvertimeMinutes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakroom_overtime_minutes_total",
			Help: "Total overtime minutes recorded on session close",
		},
		[]string{"action"},
	)

	OpenSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "breakroom_open_sessions",
			Help: "Number of users currently out on a break",
		},
	)

	// Persistence metrics
	SnapshotSaveFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "breakroom_snapshot_save_failures_total",
			Help: "Snapshot writes that failed after applying an event",
		},
	)
)

func init() {
	prometheus.MustRegister(
		EventsTotal,
		RejectedMessages,
		OvertimeMinutes,
		OpenSessions,
		SnapshotSaveFailures,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
