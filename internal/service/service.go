package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vadimbarashkov/signed-url-shortener/internal/database"
	"github.com/vadimbarashkov/signed-url-shortener/internal/envelope"
)

// UnknownIdentity is recorded when a visitor does not identify itself.
const UnknownIdentity = "unknown"

// Outcome labels reported to the Recorder.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	OutcomeFound     = "found"
	OutcomeNotFound  = "not_found"
	OutcomeTampered  = "integrity_violation"
	OutcomeMalformed = "malformed"
)

// URLRepository persists signed URL envelopes keyed by token.
type URLRepository interface {
	// Put stores the envelope under token, replacing any existing record.
	Put(ctx context.Context, token string, blob []byte) error

	// Get returns the envelope stored under token.
	// Returns database.ErrURLNotFound if there is none.
	Get(ctx context.Context, token string) ([]byte, error)

	// ListTokens returns every stored token in no particular order.
	ListTokens(ctx context.Context) ([]string, error)
}

// StatsRepository persists per-token visitor counters.
type StatsRepository interface {
	// Increment atomically adds one to the counter of identity for token.
	Increment(ctx context.Context, token, identity string) error

	// Get returns all counters of token keyed by identity.
	Get(ctx context.Context, token string) (map[string]int64, error)
}

// TokenGenerator produces candidate tokens.
type TokenGenerator interface {
	Generate() (string, error)
}

// Sealer signs URLs into envelopes and verifies them back.
type Sealer interface {
	Wrap(url string) ([]byte, error)
	Unwrap(blob []byte) (string, error)
}

// Recorder receives operation outcomes, typically for metrics.
type Recorder interface {
	ObserveCreate(status string)
	ObserveRedirect(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCreate(string)   {}
func (nopRecorder) ObserveRedirect(string) {}

type Option func(*URLService)

func WithLogger(logger *slog.Logger) Option {
	return func(s *URLService) {
		s.logger = logger
	}
}

func WithRecorder(rec Recorder) Option {
	return func(s *URLService) {
		s.recorder = rec
	}
}

// URLService shortens URLs into signed records and resolves tokens back to them.
// It holds no per-request state; all shared state lives in the repositories.
type URLService struct {
	urls     URLRepository
	stats    StatsRepository
	tokens   TokenGenerator
	sealer   Sealer
	logger   *slog.Logger
	recorder Recorder
}

func NewURLService(urls URLRepository, stats StatsRepository, tokens TokenGenerator, sealer Sealer, opts ...Option) *URLService {
	s := &URLService{
		urls:     urls,
		stats:    stats,
		tokens:   tokens,
		sealer:   sealer,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		recorder: nopRecorder{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ShortenURL signs originalURL, stores it under a freshly generated token and
// returns the token. A record already stored under the same token is replaced.
func (s *URLService) ShortenURL(ctx context.Context, originalURL string) (string, error) {
	const op = "service.URLService.ShortenURL"

	token, err := s.tokens.Generate()
	if err != nil {
		s.recorder.ObserveCreate(StatusError)
		return "", fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	blob, err := s.sealer.Wrap(originalURL)
	if err != nil {
		s.recorder.ObserveCreate(StatusError)
		return "", fmt.Errorf("%s: failed to sign url: %w", op, err)
	}

	if err := s.urls.Put(ctx, token, blob); err != nil {
		s.recorder.ObserveCreate(StatusError)
		return "", fmt.Errorf("%s: failed to store url: %w", op, err)
	}

	s.recorder.ObserveCreate(StatusSuccess)

	return token, nil
}

// ListTokens returns all stored tokens.
func (s *URLService) ListTokens(ctx context.Context) ([]string, error) {
	const op = "service.URLService.ListTokens"

	tokens, err := s.urls.ListTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list tokens: %w", op, err)
	}

	return tokens, nil
}

// Redirect resolves token to its verified destination URL and counts the visit
// under the lower-cased identity.
//
// A missing record and an unreachable store both yield database.ErrURLNotFound.
// An envelope that fails verification yields envelope.ErrIntegrityViolation or
// envelope.ErrMalformedEnvelope and the visit is not counted. A failure to count
// the visit is logged and does not affect the result.
func (s *URLService) Redirect(ctx context.Context, token, identity string) (string, error) {
	const op = "service.URLService.Redirect"

	blob, err := s.urls.Get(ctx, token)
	if err != nil {
		if !errors.Is(err, database.ErrURLNotFound) {
			s.logger.ErrorContext(ctx, "url lookup failed",
				slog.Group(op, slog.String("token", token), slog.Any("err", err)))
		}

		s.recorder.ObserveRedirect(OutcomeNotFound)
		return "", fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
	}

	url, err := s.sealer.Unwrap(blob)
	if err != nil {
		outcome := OutcomeTampered
		if errors.Is(err, envelope.ErrMalformedEnvelope) {
			outcome = OutcomeMalformed
		}

		s.logger.WarnContext(ctx, "stored url rejected",
			slog.Group(op, slog.String("token", token), slog.Any("err", err)))

		s.recorder.ObserveRedirect(outcome)
		return "", fmt.Errorf("%s: %w", op, err)
	}

	identity = normalizeIdentity(identity)

	if err := s.stats.Increment(ctx, token, identity); err != nil {
		s.logger.WarnContext(ctx, "failed to count visit",
			slog.Group(op, slog.String("token", token), slog.Any("err", err)))
	}

	s.recorder.ObserveRedirect(OutcomeFound)

	return url, nil
}

// GetURLStats returns the visit counters of an existing token.
func (s *URLService) GetURLStats(ctx context.Context, token string) (map[string]int64, error) {
	const op = "service.URLService.GetURLStats"

	if _, err := s.urls.Get(ctx, token); err != nil {
		return nil, fmt.Errorf("%s: failed to look up url: %w", op, err)
	}

	stats, err := s.stats.Get(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url stats: %w", op, err)
	}

	return stats, nil
}

func normalizeIdentity(identity string) string {
	identity = strings.ToLower(identity)
	if identity == "" {
		return UnknownIdentity
	}
	return identity
}
