package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"docvalidator/classifier"

	"go.uber.org/zap"
)

// Server exposes document classification over HTTP. Inference requests are
// served one at a time.
type Server struct {
	aggregator   *classifier.Aggregator
	classifier   classifier.Classifier
	logger       *zap.Logger
	port         int
	maxBodyBytes int64

	inferMu sync.Mutex
	srv     *http.Server
}

func NewServer(agg *classifier.Aggregator, c classifier.Classifier, port int,
	maxBodyBytes int64, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		aggregator:   agg,
		classifier:   c,
		logger:       logger,
		port:         port,
		maxBodyBytes: maxBodyBytes,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/classify", s.ClassifyHandler)
	mux.HandleFunc("/api/classify/chunk", s.ClassifyChunkHandler)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return mux
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:              ":" + strconv.Itoa(s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("starting API server", zap.Int("port", s.port))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
