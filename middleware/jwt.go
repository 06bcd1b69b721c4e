package middleware

import (
	"context"
	"net/http"
	"net/url"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"go.uber.org/zap"

	"github.com/andrewpaige1/stratdesk-api/config"
	"github.com/andrewpaige1/stratdesk-api/utils"
)

// CustomClaims contains the custom claims the tenant adds to tokens.
type CustomClaims struct {
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
}

func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// EnsureValidToken validates bearer tokens when present. Requests without a
// token pass through; handlers that need a user are wrapped with
// SyncUserMiddleware.
func EnsureValidToken(cfg config.Config, log *zap.Logger) (func(http.Handler) http.Handler, error) {
	keyFunc, algorithm, err := keySource(cfg)
	if err != nil {
		return nil, err
	}

	jwtValidator, err := validator.New(
		keyFunc,
		algorithm,
		cfg.Issuer(),
		[]string{cfg.Auth0Audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &CustomClaims{}
		}),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, err
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		log.Info("EnsureValidToken: rejected token", zap.String("path", r.URL.Path), zap.Error(err))
		utils.WriteError(w, http.StatusUnauthorized, "Failed to validate JWT.")
	}

	middleware := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
		jwtmiddleware.WithCredentialsOptional(true),
	)

	return func(next http.Handler) http.Handler {
		return middleware.CheckJWT(next)
	}, nil
}

func keySource(cfg config.Config) (func(context.Context) (interface{}, error), validator.SignatureAlgorithm, error) {
	if cfg.IsDevelopment {
		secret := []byte(cfg.JWTSecret)
		return func(context.Context) (interface{}, error) { return secret, nil }, validator.HS256, nil
	}
	issuerURL, err := url.Parse(cfg.Issuer())
	if err != nil {
		return nil, "", err
	}
	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)
	return provider.KeyFunc, validator.RS256, nil
}
