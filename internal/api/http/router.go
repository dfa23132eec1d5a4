package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vadimbarashkov/signed-url-shortener/pkg/middleware/contenttype"
	"github.com/vadimbarashkov/signed-url-shortener/pkg/middleware/recoverer"
)

const apiPrefix = "/api/v1"

// URLService defines the short-URL operations exposed over HTTP.
type URLService interface {
	// ShortenURL stores originalURL under a new token and returns the token.
	ShortenURL(ctx context.Context, originalURL string) (string, error)

	// ListTokens returns every stored token.
	ListTokens(ctx context.Context) ([]string, error)

	// Redirect returns the verified destination of token and counts the visit
	// under identity.
	Redirect(ctx context.Context, token, identity string) (string, error)

	// GetURLStats returns the visit counters of token keyed by identity.
	GetURLStats(ctx context.Context, token string) (map[string]int64, error)
}

func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

// NewRouter wires the API and redirect routes. Path tokens that are not
// tokenLength hex characters are answered with 404 without consulting urlSvc.
// Metrics are served on /metrics when gatherer is not nil.
func NewRouter(logger *httplog.Logger, urlSvc URLService, tokenLength int, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"POST", "GET", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger, []string{"/api/v1/ping", "/metrics"}))
	r.Use(recoverer.New(logger.Logger))
	r.Use(contenttype.RequireJSON(apiPrefix))

	r.Route(apiPrefix, func(r chi.Router) {
		validate := getValidate()

		r.Get("/ping", handlePing)

		r.Route("/urls", func(r chi.Router) {
			r.Post("/", handleShortenURL(urlSvc, validate))
			r.Get("/", handleListTokens(urlSvc))
			r.Get("/{token}/stats", handleGetURLStats(urlSvc, tokenLength))
		})
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/{token}", handleRedirect(urlSvc, tokenLength))
	r.Get("/", handleListRoutes(r))

	return r
}
