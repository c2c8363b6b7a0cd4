package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dd0wney/cluso-modeler/pkg/logging"
	"github.com/dd0wney/cluso-modeler/pkg/metrics"
)

// DefaultTokenDuration is the access token lifetime when none is configured.
const DefaultTokenDuration = time.Hour

// TokenRequest is the body of POST /auth/token.
type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is returned by POST /auth/token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Role        string `json:"role"`
}

// ErrorResponse is the JSON body of every error the store returns.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// AuthHandler issues access tokens.
type AuthHandler struct {
	users   *UserStore
	jwt     *JWTManager
	logger  logging.Logger
	metrics *metrics.Registry
}

// NewAuthHandler creates a new authentication handler.
func NewAuthHandler(users *UserStore, jwtManager *JWTManager, logger logging.Logger) *AuthHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &AuthHandler{users: users, jwt: jwtManager, logger: logger.With(logging.Component("auth"))}
}

// SetMetrics enables counting of issued tokens and failed logins.
func (h *AuthHandler) SetMetrics(reg *metrics.Registry) {
	h.metrics = reg
}

// ServeHTTP handles POST /auth/token.
func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req TokenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		RespondError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := h.users.Authenticate(req.Username, req.Password)
	if err != nil {
		h.logger.Warn("token request rejected", logging.String("username", req.Username))
		if h.metrics != nil {
			h.metrics.AuthFailuresTotal.Inc()
		}
		RespondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.jwt.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		h.logger.Error("failed to generate token", logging.Error(err))
		RespondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	if h.metrics != nil {
		h.metrics.TokensIssuedTotal.Inc()
	}
	respondJSON(w, http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.jwt.TokenDuration().Seconds()),
		Role:        user.Role,
	})
}

type contextKey struct{}

// WithClaims returns a context carrying claims.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// ClaimsFromContext returns the claims stored by WithClaims.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(contextKey{}).(*Claims)
	return c, ok
}

// ErrMissingToken is returned when a request carries no bearer token.
var ErrMissingToken = errors.New("missing bearer token")

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", errors.New("invalid authorization header format")
	}
	return token, nil
}

// RespondError writes an ErrorResponse.
func RespondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
