package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/vadimbarashkov/signed-url-shortener/internal/database"
	"github.com/vadimbarashkov/signed-url-shortener/internal/envelope"
)

type MockURLRepository struct {
	mock.Mock
}

func (r *MockURLRepository) Put(ctx context.Context, token string, blob []byte) error {
	args := r.Called(ctx, token, blob)
	return args.Error(0)
}

func (r *MockURLRepository) Get(ctx context.Context, token string) ([]byte, error) {
	args := r.Called(ctx, token)
	blob, _ := args.Get(0).([]byte)
	return blob, args.Error(1)
}

func (r *MockURLRepository) ListTokens(ctx context.Context) ([]string, error) {
	args := r.Called(ctx)
	tokens, _ := args.Get(0).([]string)
	return tokens, args.Error(1)
}

type MockStatsRepository struct {
	mock.Mock
}

func (r *MockStatsRepository) Increment(ctx context.Context, token, identity string) error {
	args := r.Called(ctx, token, identity)
	return args.Error(0)
}

func (r *MockStatsRepository) Get(ctx context.Context, token string) (map[string]int64, error) {
	args := r.Called(ctx, token)
	stats, _ := args.Get(0).(map[string]int64)
	return stats, args.Error(1)
}

type MockTokenGenerator struct {
	mock.Mock
}

func (g *MockTokenGenerator) Generate() (string, error) {
	args := g.Called()
	return args.String(0), args.Error(1)
}

type MockRecorder struct {
	mock.Mock
}

func (r *MockRecorder) ObserveCreate(status string) {
	r.Called(status)
}

func (r *MockRecorder) ObserveRedirect(outcome string) {
	r.Called(outcome)
}

type URLServiceTestSuite struct {
	suite.Suite
	errUnknown    error
	signer        *envelope.Signer
	urlRepoMock   *MockURLRepository
	statsRepoMock *MockStatsRepository
	tokenGenMock  *MockTokenGenerator
	recorderMock  *MockRecorder
	svc           *URLService
}

func (suite *URLServiceTestSuite) SetupSuite() {
	suite.errUnknown = errors.New("unknown error")
	suite.signer = envelope.NewSigner([]byte("secret"))
}

func (suite *URLServiceTestSuite) SetupSubTest() {
	suite.urlRepoMock = new(MockURLRepository)
	suite.statsRepoMock = new(MockStatsRepository)
	suite.tokenGenMock = new(MockTokenGenerator)
	suite.recorderMock = new(MockRecorder)
	suite.svc = NewURLService(
		suite.urlRepoMock,
		suite.statsRepoMock,
		suite.tokenGenMock,
		suite.signer,
		WithRecorder(suite.recorderMock),
	)
}

func (suite *URLServiceTestSuite) TearDownSubTest() {
	suite.urlRepoMock.AssertExpectations(suite.T())
	suite.statsRepoMock.AssertExpectations(suite.T())
	suite.tokenGenMock.AssertExpectations(suite.T())
	suite.recorderMock.AssertExpectations(suite.T())
}

func (suite *URLServiceTestSuite) wrap(url string) []byte {
	blob, err := suite.signer.Wrap(url)
	suite.Require().NoError(err)
	return blob
}

func (suite *URLServiceTestSuite) TestShortenURL() {
	suite.Run("token generation error", func() {
		suite.tokenGenMock.On("Generate").Once().Return("", suite.errUnknown)
		suite.recorderMock.On("ObserveCreate", StatusError).Once()

		token, err := suite.svc.ShortenURL(context.Background(), "https://example.com")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Empty(token)
		suite.urlRepoMock.AssertNotCalled(suite.T(), "Put", mock.Anything, mock.Anything, mock.Anything)
	})

	suite.Run("url not valid utf-8", func() {
		suite.tokenGenMock.On("Generate").Once().Return("0123456789", nil)
		suite.recorderMock.On("ObserveCreate", StatusError).Once()

		token, err := suite.svc.ShortenURL(context.Background(), "https://example.com/\xff")

		suite.ErrorIs(err, envelope.ErrInvalidValue)
		suite.Empty(token)
		suite.urlRepoMock.AssertNotCalled(suite.T(), "Put", mock.Anything, mock.Anything, mock.Anything)
	})

	suite.Run("store error", func() {
		suite.tokenGenMock.On("Generate").Once().Return("0123456789", nil)
		suite.urlRepoMock.
			On("Put", mock.Anything, "0123456789", suite.wrap("https://example.com")).
			Once().
			Return(suite.errUnknown)
		suite.recorderMock.On("ObserveCreate", StatusError).Once()

		token, err := suite.svc.ShortenURL(context.Background(), "https://example.com")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Empty(token)
	})

	suite.Run("success", func() {
		suite.tokenGenMock.On("Generate").Once().Return("0123456789", nil)
		suite.urlRepoMock.
			On("Put", mock.Anything, "0123456789", mock.MatchedBy(func(blob []byte) bool {
				url, err := suite.signer.Unwrap(blob)
				return err == nil && url == "https://example.com"
			})).
			Once().
			Return(nil)
		suite.recorderMock.On("ObserveCreate", StatusSuccess).Once()

		token, err := suite.svc.ShortenURL(context.Background(), "https://example.com")

		suite.NoError(err)
		suite.Equal("0123456789", token)
	})
}

func (suite *URLServiceTestSuite) TestListTokens() {
	suite.Run("store error", func() {
		suite.urlRepoMock.On("ListTokens", mock.Anything).Once().Return(nil, suite.errUnknown)

		tokens, err := suite.svc.ListTokens(context.Background())

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(tokens)
	})

	suite.Run("success", func() {
		suite.urlRepoMock.
			On("ListTokens", mock.Anything).
			Once().
			Return([]string{"0123456789", "abcdef0123"}, nil)

		tokens, err := suite.svc.ListTokens(context.Background())

		suite.NoError(err)
		suite.ElementsMatch([]string{"0123456789", "abcdef0123"}, tokens)
	})
}

func (suite *URLServiceTestSuite) TestRedirect() {
	suite.Run("url not found", func() {
		suite.urlRepoMock.
			On("Get", mock.Anything, "0123456789").
			Once().
			Return(nil, database.ErrURLNotFound)
		suite.recorderMock.On("ObserveRedirect", OutcomeNotFound).Once()

		url, err := suite.svc.Redirect(context.Background(), "0123456789", "Agent")

		suite.Error(err)
		suite.ErrorIs(err, database.ErrURLNotFound)
		suite.Empty(url)
	})

	suite.Run("store error looks like not found", func() {
		suite.urlRepoMock.
			On("Get", mock.Anything, "0123456789").
			Once().
			Return(nil, suite.errUnknown)
		suite.recorderMock.On("ObserveRedirect", OutcomeNotFound).Once()

		url, err := suite.svc.Redirect(context.Background(), "0123456789", "Agent")

		suite.Error(err)
		suite.ErrorIs(err, database.ErrURLNotFound)
		suite.NotErrorIs(err, suite.errUnknown)
		suite.Empty(url)
	})

	suite.Run("integrity violation", func() {
		forged, err := envelope.NewSigner([]byte("forged")).Wrap("https://evil.example.com")
		suite.Require().NoError(err)

		suite.urlRepoMock.
			On("Get", mock.Anything, "0123456789").
			Once().
			Return(forged, nil)
		suite.recorderMock.On("ObserveRedirect", OutcomeTampered).Once()

		url, err := suite.svc.Redirect(context.Background(), "0123456789", "Agent")

		suite.Error(err)
		suite.ErrorIs(err, envelope.ErrIntegrityViolation)
		suite.Empty(url)
		suite.statsRepoMock.AssertNotCalled(suite.T(), "Increment", mock.Anything, mock.Anything, mock.Anything)
	})

	suite.Run("malformed envelope", func() {
		suite.urlRepoMock.
			On("Get", mock.Anything, "0123456789").
			Once().
			Return([]byte("https://example.com"), nil)
		suite.recorderMock.On("ObserveRedirect", OutcomeMalformed).Once()

		url, err := suite.svc.Redirect(context.Background(), "0123456789", "Agent")

		suite.Error(err)
		suite.ErrorIs(err, envelope.ErrMalformedEnvelope)
		suite.Empty(url)
		suite.statsRepoMock.AssertNotCalled(suite.T(), "Increment", mock.Anything, mock.Anything, mock.Anything)
	})

	suite.Run("stats error does not block redirect", func() {
		suite.urlRepoMock.
			On("Get", mock.Anything, "0123456789").
			Once().
			Return(suite.wrap("https://example.com"), nil)
		suite.statsRepoMock.
			On("Increment", mock.Anything, "0123456789", "mozilla/5.0").
			Once().
			Return(suite.errUnknown)
		suite.recorderMock.On("ObserveRedirect", OutcomeFound).Once()

		url, err := suite.svc.Redirect(context.Background(), "0123456789", "Mozilla/5.0")

		suite.NoError(err)
		suite.Equal("https://example.com", url)
	})

	suite.Run("success", func() {
		suite.urlRepoMock.
			On("Get", mock.Anything, "0123456789").
			Once().
			Return(suite.wrap("https://example.com"), nil)
		suite.statsRepoMock.
			On("Increment", mock.Anything, "0123456789", "mozilla/5.0").
			Once().
			Return(nil)
		suite.recorderMock.On("ObserveRedirect", OutcomeFound).Once()

		url, err := suite.svc.Redirect(context.Background(), "0123456789", "Mozilla/5.0")

		suite.NoError(err)
		suite.Equal("https://example.com", url)
	})

	suite.Run("missing identity", func() {
		suite.urlRepoMock.
			On("Get", mock.Anything, "0123456789").
			Once().
			Return(suite.wrap("https://example.com"), nil)
		suite.statsRepoMock.
			On("Increment", mock.Anything, "0123456789", UnknownIdentity).
			Once().
			Return(nil)
		suite.recorderMock.On("ObserveRedirect", OutcomeFound).Once()

		url, err := suite.svc.Redirect(context.Background(), "0123456789", "")

		suite.NoError(err)
		suite.Equal("https://example.com", url)
	})
}

func (suite *URLServiceTestSuite) TestGetURLStats() {
	suite.Run("url not found", func() {
		suite.urlRepoMock.
			On("Get", mock.Anything, "0123456789").
			Once().
			Return(nil, database.ErrURLNotFound)

		stats, err := suite.svc.GetURLStats(context.Background(), "0123456789")

		suite.Error(err)
		suite.ErrorIs(err, database.ErrURLNotFound)
		suite.Nil(stats)
	})

	suite.Run("stats error", func() {
		suite.urlRepoMock.
			On("Get", mock.Anything, "0123456789").
			Once().
			Return(suite.wrap("https://example.com"), nil)
		suite.statsRepoMock.
			On("Get", mock.Anything, "0123456789").
			Once().
			Return(nil, suite.errUnknown)

		stats, err := suite.svc.GetURLStats(context.Background(), "0123456789")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(stats)
	})

	suite.Run("success", func() {
		suite.urlRepoMock.
			On("Get", mock.Anything, "0123456789").
			Once().
			Return(suite.wrap("https://example.com"), nil)
		suite.statsRepoMock.
			On("Get", mock.Anything, "0123456789").
			Once().
			Return(map[string]int64{"mozilla/5.0": 2}, nil)

		stats, err := suite.svc.GetURLStats(context.Background(), "0123456789")

		suite.NoError(err)
		suite.Equal(map[string]int64{"mozilla/5.0": 2}, stats)
	})
}

func TestURLService(t *testing.T) {
	suite.Run(t, new(URLServiceTestSuite))
}
