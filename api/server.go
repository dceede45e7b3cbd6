package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"property-valuation/metrics"
	"property-valuation/models"
	"property-valuation/utils"
)

// Valuator ranks purchase candidates for a search.
type Valuator interface {
	RankProperties(ctx context.Context, search models.SearchParameters, params models.ValuationParameters) ([]models.Valuation, error)
}

// LocationFinder answers typeahead queries.
type LocationFinder interface {
	FindLocations(ctx context.Context, input string) ([]models.Location, error)
}

// Options tunes the HTTP layer. Zero values select the defaults.
type Options struct {
	Addr           string
	SearchRadius   float64
	TopResults     int
	RequestTimeout time.Duration
}

// Server exposes the valuation engine over HTTP.
type Server struct {
	valuator  Valuator
	locations LocationFinder
	logger    *utils.Logger
	metrics   *metrics.Metrics
	opts      Options
	router    *gin.Engine
	http      *http.Server
}

func NewServer(valuator Valuator, locations LocationFinder, logger *utils.Logger, m *metrics.Metrics, opts Options) *Server {
	if m == nil {
		m = metrics.New()
	}
	if opts.Addr == "" {
		opts.Addr = ":5000"
	}
	if opts.SearchRadius <= 0 {
		opts.SearchRadius = 0.25
	}
	if opts.TopResults <= 0 {
		opts.TopResults = 100
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}

	s := &Server{
		valuator:  valuator,
		locations: locations,
		logger:    logger,
		metrics:   m,
		opts:      opts,
	}
	s.router = s.routes()
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), observe(s.logger, s.metrics))

	r.GET("/healthz", s.healthz)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	r.GET("/debug/logs", s.debugLogs)
	r.GET("/locations", s.getLocations)
	r.POST("/properties_data", s.postPropertiesData)
	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("[api] Listening on %s", s.opts.Addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("[api] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
