package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"groupgames-service/internal/auth"
	"groupgames-service/internal/mocks"
	"groupgames-service/internal/models"
)

func newAuthRouter(verifier *auth.Verifier, users *mocks.UserRepositoryMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(verifier, users))
	r.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("userID"))
	})
	return r
}

func TestAuthMiddlewareAcceptsBearerToken(t *testing.T) {
	verifier := auth.NewVerifier("secret", time.Hour)
	users := new(mocks.UserRepositoryMock)
	users.On("UpsertUser", mock.Anything, mock.MatchedBy(func(u models.User) bool { return u.ID == "u1" })).
		Return(models.User{ID: "u1"}, nil).Once()
	tok, err := verifier.CreateToken(models.User{ID: "u1"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	newAuthRouter(verifier, users).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "u1", rec.Body.String())
	users.AssertExpectations(t)
}

func TestAuthMiddlewareAcceptsQueryToken(t *testing.T) {
	verifier := auth.NewVerifier("secret", time.Hour)
	users := new(mocks.UserRepositoryMock)
	users.On("UpsertUser", mock.Anything, mock.Anything).Return(models.User{ID: "u2"}, nil).Once()
	tok, err := verifier.CreateToken(models.User{ID: "u2"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me?token="+tok, nil)
	rec := httptest.NewRecorder()
	newAuthRouter(verifier, users).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddlewareRejects(t *testing.T) {
	verifier := auth.NewVerifier("secret", time.Hour)
	cases := map[string]string{
		"missing":   "",
		"malformed": "Token abc",
		"invalid":   "Bearer not-a-jwt",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			users := new(mocks.UserRepositoryMock)
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			newAuthRouter(verifier, users).ServeHTTP(rec, req)

			require.Equal(t, http.StatusUnauthorized, rec.Code)
			users.AssertNotCalled(t, "UpsertUser", mock.Anything, mock.Anything)
		})
	}
}

func TestAuthMiddlewareUpsertFailure(t *testing.T) {
	verifier := auth.NewVerifier("secret", time.Hour)
	users := new(mocks.UserRepositoryMock)
	users.On("UpsertUser", mock.Anything, mock.Anything).Return(nil, errors.New("db down")).Once()
	tok, err := verifier.CreateToken(models.User{ID: "u1"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	newAuthRouter(verifier, users).ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRateLimiterRejectsBurstOverflow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewRateLimiter(1, 2).Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRequestIDPropagates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(httptest.NewRecorder().Body)
	r := gin.New()
	r.Use(RequestID(), LogMiddleware(logger))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, "req-1", rec.Body.String())
	require.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
