package middleware

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// AuthConfig describes how the notification API authenticates the event source.
type AuthConfig struct {
	// Mode is "token" for a static bearer secret or "jwt" for HMAC-signed JWTs.
	Mode       string
	Token      string
	HMACSecret string
	Issuer     string
	Audience   string
	ClockSkew  time.Duration
}

// Authenticator guards the mutating notification routes. Only the registered
// pool-management runtime holds the credential, so passing the check proves
// the caller is the sole authorized event source.
type Authenticator struct {
	cfg    AuthConfig
	logger *slog.Logger
	token  []byte
	secret []byte
}

// NewAuthenticator builds an authenticator from the supplied config.
func NewAuthenticator(cfg AuthConfig, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = 2 * time.Minute
	}
	return &Authenticator{
		cfg:    cfg,
		logger: logger,
		token:  []byte(strings.TrimSpace(cfg.Token)),
		secret: []byte(strings.TrimSpace(cfg.HMACSecret)),
	}
}

// Middleware rejects requests that do not carry the event-source credential.
func (a *Authenticator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := extractBearer(r.Header.Get("Authorization"))
			if credential == "" {
				http.Error(w, "missing bearer credential", http.StatusUnauthorized)
				return
			}
			if err := a.verify(credential); err != nil {
				a.logger.Warn("source authentication failed", "error", err, "path", r.URL.Path)
				http.Error(w, "unauthorized event source", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (a *Authenticator) verify(credential string) error {
	switch strings.TrimSpace(a.cfg.Mode) {
	case "jwt":
		claims, err := a.parseToken(credential)
		if err != nil {
			return err
		}
		return validateClaims(claims, a.cfg.Issuer, a.cfg.Audience)
	default:
		if len(a.token) == 0 {
			return errors.New("source token not configured")
		}
		if subtle.ConstantTimeCompare([]byte(credential), a.token) != 1 {
			return errors.New("token mismatch")
		}
		return nil
	}
}

func (a *Authenticator) parseToken(tokenString string) (jwt.MapClaims, error) {
	if len(a.secret) == 0 {
		return nil, errors.New("auth secret not configured")
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwt.WithLeeway(a.cfg.ClockSkew))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token invalid")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("claims not map")
	}
	return claims, nil
}

func validateClaims(claims jwt.MapClaims, issuer, audience string) error {
	if issuer != "" {
		if value, ok := claims["iss"].(string); !ok || value != issuer {
			return errors.New("issuer mismatch")
		}
	}
	if audience != "" {
		switch val := claims["aud"].(type) {
		case string:
			if val != audience {
				return errors.New("audience mismatch")
			}
		case []interface{}:
			found := false
			for _, entry := range val {
				if s, ok := entry.(string); ok && s == audience {
					found = true
					break
				}
			}
			if !found {
				return errors.New("audience mismatch")
			}
		default:
			return errors.New("audience missing")
		}
	}
	return nil
}

func extractBearer(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
