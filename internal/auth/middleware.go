package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Response messages for rejected requests.
const (
	MsgHeaderMissing = "Authorization header missing"
	MsgTokenMissing  = "Token missing"
	MsgInvalidToken  = "Invalid token"
)

var (
	ErrHeaderMissing = errors.New("missing authorization header")
	ErrTokenMissing  = errors.New("missing token")
)

// TokenVerifier recovers an account id from a bearer token.
type TokenVerifier interface {
	Verify(token string) (int64, error)
}

// RequireAuth returns a middleware that only lets requests carrying a valid
// bearer token through. The verified account id is available downstream via
// AccountIDFromContext.
func RequireAuth(v TokenVerifier, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := Authenticate(v, r.Header.Get("Authorization"))
			if err != nil {
				logger.Debugw("request rejected", "path", r.URL.Path, "reason", err)
				writeUnauthorized(w, rejectionMessage(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), id)))
		})
	}
}

// Authenticate runs the header checks and token verification for one
// Authorization header value.
func Authenticate(v TokenVerifier, header string) (int64, error) {
	if header == "" {
		return 0, ErrHeaderMissing
	}
	token, ok := bearerToken(header)
	if !ok {
		return 0, ErrTokenMissing
	}
	return v.Verify(token)
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, ErrHeaderMissing):
		return MsgHeaderMissing
	case errors.Is(err, ErrTokenMissing):
		return MsgTokenMissing
	default:
		return MsgInvalidToken
	}
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
