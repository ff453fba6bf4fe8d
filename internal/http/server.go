package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/locksmith-search/internal/geo"
	"github.com/example/locksmith-search/internal/ingest"
	"github.com/example/locksmith-search/internal/live"
	"github.com/example/locksmith-search/internal/payments"
	"github.com/example/locksmith-search/internal/search"
)

// Options carries the collaborators the server needs. Everything is
// injected; the server reads nothing from the environment.
type Options struct {
	Search   *search.Service
	Deposits payments.Deposits
	Hub      *live.Hub
	Live     geo.LiveStore
	Kafka    *ingest.KafkaProducer
	Logger   *slog.Logger

	DepositAmount   int64
	DepositCurrency string
}

type Server struct {
	searchSvc *search.Service
	deposits  payments.Deposits
	hub       *live.Hub
	liveStore geo.LiveStore
	kafka     *ingest.KafkaProducer
	logger    *slog.Logger

	depositAmount   int64
	depositCurrency string

	mux *mux.Router
}

func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		searchSvc:       opts.Search,
		deposits:        opts.Deposits,
		hub:             opts.Hub,
		liveStore:       opts.Live,
		kafka:           opts.Kafka,
		logger:          logger,
		depositAmount:   opts.DepositAmount,
		depositCurrency: opts.DepositCurrency,
		mux:             mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/v1/search", s.handleSearch).Methods("GET")
	s.mux.HandleFunc("/api/v1/callouts/{provider_id}/deposit", s.handleDepositHold).Methods("POST")
	s.mux.HandleFunc("/api/v1/callouts/deposits/{intent_id}/capture", s.handleDepositCapture).Methods("POST")
	s.mux.HandleFunc("/api/v1/callouts/deposits/{intent_id}/release", s.handleDepositRelease).Methods("POST")
	s.mux.HandleFunc("/internal/provider/locations", s.handleProviderLocation).Methods("POST")
	s.mux.HandleFunc("/ws/providers/{provider_id}", s.handleProviderWS)
	s.mux.HandleFunc("/ws/watch", s.handleWatchWS)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }
