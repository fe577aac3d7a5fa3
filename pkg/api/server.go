// Package api serves issued payloads over HTTP.
//
// Routes:
//
//	GET  /health             liveness and version
//	POST /qrcodes            sign and store caller-supplied payload text
//	GET  /qrcodes            list stored records, newest first
//	GET  /qrcodes/{id}       fetch one record
//	GET  /qrcodes/{id}/png   render a stored lock payload as a QR image
//	POST /payloads           assemble, sign and store a lock payload
//	POST /verify             parse and authenticate a scanned payload
//
// /payloads and /verify use the server's keyring and require
// "Authorization: Bearer <token>".
package api

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/henriqueedu2001/causp-lock-server/pkg/issuer"
	"github.com/henriqueedu2001/causp-lock-server/pkg/persistence"
)

// Default rate limit per client address.
const (
	DefaultRateLimit = rate.Limit(10)
	DefaultBurst     = 20
)

// Store holds issued records.
type Store interface {
	Create(ctx context.Context, rec *persistence.Record) error
	Get(ctx context.Context, id int64) (*persistence.Record, error)
	List(ctx context.Context, limit, offset int) ([]persistence.Record, error)
}

var _ Store = (*persistence.Store)(nil)

// Config configures the API server.
type Config struct {
	// Store holds records. Required.
	Store Store

	// Issuer handles /payloads and /verify. Those routes answer 503 when nil.
	Issuer *issuer.Issuer

	// Secret signs payload text posted to /qrcodes. Required.
	Secret []byte

	// Token is the bearer credential for /payloads and /verify.
	// Defaults to Secret read as text.
	Token string

	// TrustedProxies lists proxy addresses or CIDR ranges whose
	// X-Forwarded-For header names the client. Other peers are identified
	// by their socket address.
	TrustedProxies []string

	// Logger receives access logs. Defaults to the standard logrus logger.
	Logger logrus.FieldLogger

	// RateLimit and Burst bound requests per client address.
	// A negative RateLimit disables limiting.
	RateLimit rate.Limit
	Burst     int

	Version string

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// Server is the HTTP API.
type Server struct {
	store    Store
	issuer   *issuer.Issuer
	secret   []byte
	tokenSum [sha256.Size]byte
	proxies  []netip.Prefix
	logger   logrus.FieldLogger
	limiter  *multiLimiter
	version  string
	now      func() time.Time
	router   *mux.Router
}

// New creates an API server from cfg.
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if len(cfg.Secret) == 0 {
		return nil, errors.New("API secret is required")
	}

	s := &Server{
		store:   cfg.Store,
		issuer:  cfg.Issuer,
		secret:  append([]byte(nil), cfg.Secret...),
		logger:  cfg.Logger,
		version: cfg.Version,
		now:     cfg.Clock,
	}
	if s.logger == nil {
		s.logger = logrus.StandardLogger()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.version == "" {
		s.version = "dev"
	}

	token := cfg.Token
	if token == "" {
		token = string(cfg.Secret)
	}
	s.tokenSum = sha256.Sum256([]byte(token))

	for _, p := range cfg.TrustedProxies {
		prefix, err := parseProxy(p)
		if err != nil {
			return nil, err
		}
		s.proxies = append(s.proxies, prefix)
	}

	limit, burst := cfg.RateLimit, cfg.Burst
	if limit == 0 {
		limit = DefaultRateLimit
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	if limit > 0 {
		s.limiter = newMultiLimiter(limit, burst, 10*time.Minute)
	}

	s.registerRoutes()
	return s, nil
}

// registerRoutes sets up all HTTP routes.
func (s *Server) registerRoutes() {
	r := mux.NewRouter()
	r.Use(s.requestID, s.accessLog)
	if s.limiter != nil {
		r.Use(s.rateLimit)
	}

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/qrcodes", s.handleCreateQRCode).Methods(http.MethodPost)
	r.HandleFunc("/qrcodes", s.handleListQRCodes).Methods(http.MethodGet)
	r.HandleFunc("/qrcodes/{id:[0-9]+}", s.handleGetQRCode).Methods(http.MethodGet)
	r.HandleFunc("/qrcodes/{id:[0-9]+}/png", s.handleQRCodePNG).Methods(http.MethodGet)

	r.Handle("/payloads", s.requireToken(http.HandlerFunc(s.handleIssue))).Methods(http.MethodPost)
	r.Handle("/verify", s.requireToken(http.HandlerFunc(s.handleVerify))).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	s.router = r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

// parseProxy accepts a single address or a CIDR range.
func parseProxy(s string) (netip.Prefix, error) {
	if prefix, err := netip.ParsePrefix(s); err == nil {
		return prefix.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid trusted proxy %q", s)
	}
	return netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()), nil
}
