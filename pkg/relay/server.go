package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/routers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	"golang.org/x/time/rate"
)

// Config holds the relay configuration
type Config struct {
	Addr           string
	AllowedOrigins []string
	ConnectTimeout time.Duration // dial to the model server
	HeaderTimeout  time.Duration // wait for the model server's response headers
	IdleTimeout    time.Duration // max silence while reading the model server's body
	CheckTimeout   time.Duration // whole budget of a check call
	RateLimit      float64       // requests per second, 0 disables
	RateBurst      int
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = ":3001"
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.HeaderTimeout <= 0 {
		c.HeaderTimeout = 5 * time.Minute
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 2 * time.Minute
	}
	if c.CheckTimeout <= 0 {
		c.CheckTimeout = 15 * time.Second
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 20
	}
	return c
}

// Server is the relay between browsers and a private model server. It keeps
// no state between requests: every forwarded call gets a fresh connection.
type Server struct {
	server  *http.Server
	logger  *slog.Logger
	cfg     Config
	client  *http.Client
	metrics *metrics
	limiter *rate.Limiter
	spec    *openapi3.T
	router  routers.Router
	reg     *prometheus.Registry
}

// NewServer creates a new relay server. reg may be nil, in which case a
// private registry is used.
func NewServer(logger *slog.Logger, cfg Config, reg *prometheus.Registry) (*Server, error) {
	cfg = cfg.withDefaults()

	spec, router, err := loadSpec()
	if err != nil {
		return nil, err
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Server{
		logger:  logger,
		cfg:     cfg,
		client:  newUpstreamClient(cfg),
		metrics: newMetrics(reg),
		spec:    spec,
		router:  router,
		reg:     reg,
	}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func newUpstreamClient(cfg Config) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: cfg.ConnectTimeout,
			}).DialContext,
			ResponseHeaderTimeout: cfg.HeaderTimeout,
			DisableKeepAlives:     true,
			DisableCompression:    true,
		},
	}
}

// Handler returns the http.Handler for the relay.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /bridge/{action}", s.handleBridge)
	mux.HandleFunc("GET /bridge/openapi.json", s.handleOpenAPI)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", metricsHandler(s.reg))

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{requestIDHeader},
	})

	return s.withRequestID(c.Handler(s.rateLimited(mux)))
}

// Start runs the server until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("relay listening",
		"addr", s.cfg.Addr,
		"origins", s.cfg.AllowedOrigins,
		"rate_limit", s.cfg.RateLimit,
	)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("relay server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
