// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package auth parses the caller identity from Heimdall-issued bearer tokens.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
)

const (
	// PS256 is the default for Heimdall's JWT finalizer.
	signatureAlgorithm = validator.PS256
	defaultIssuer      = "heimdall"
	defaultAudience    = "lfx-v2-meetup-service"
	defaultJWKSURL     = "http://heimdall:4457/.well-known/jwks"
	jwksCacheTTL       = 5 * time.Minute
	allowedClockSkew   = 5 * time.Second
)

// HeimdallClaims contains extra custom claims we want to parse from the JWT token.
type HeimdallClaims struct {
	Principal string `json:"principal"`
	Email     string `json:"email,omitempty"`
}

// Validate provides additional middleware validation of any claims defined in HeimdallClaims.
func (c *HeimdallClaims) Validate(_ context.Context) error {
	if c.Principal == "" {
		return errors.New("principal must be provided")
	}
	return nil
}

// JWTAuthConfig holds the token validation settings.
type JWTAuthConfig struct {
	// JWKSURL is the URL to the JSON Web Key Set endpoint
	JWKSURL string
	// Audience is the intended audience for the JWT token
	Audience string
	// MockLocalPrincipal, when set, disables token validation and returns
	// this principal for every request. Local development only.
	MockLocalPrincipal string
}

// IJWTAuth is a JWT authentication interface needed by the HTTP layer.
type IJWTAuth interface {
	ParsePrincipal(ctx context.Context, token string, logger *slog.Logger) (string, error)
}

// JWTAuth validates bearer tokens against the Heimdall JWKS.
type JWTAuth struct {
	validator *validator.Validator
	config    JWTAuthConfig
}

var _ IJWTAuth = (*JWTAuth)(nil)

// NewJWTAuth creates a validator with a caching JWKS provider.
func NewJWTAuth(config JWTAuthConfig) (*JWTAuth, error) {
	jwksURL := config.JWKSURL
	if jwksURL == "" {
		jwksURL = defaultJWKSURL
	}
	audience := config.Audience
	if audience == "" {
		audience = defaultAudience
	}

	issuer, err := url.Parse(jwksURL)
	if err != nil {
		return nil, err
	}
	provider := jwks.NewCachingProvider(issuer, jwksCacheTTL, jwks.WithCustomJWKSURI(issuer))

	customClaims := func() validator.CustomClaims {
		return &HeimdallClaims{}
	}

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		signatureAlgorithm,
		defaultIssuer,
		[]string{audience},
		validator.WithCustomClaims(customClaims),
		validator.WithAllowedClockSkew(allowedClockSkew),
	)
	if err != nil {
		return nil, err
	}

	return &JWTAuth{validator: jwtValidator, config: config}, nil
}

// ParsePrincipal extracts the principal from a bearer token. The "Bearer "
// prefix is optional.
func (j *JWTAuth) ParsePrincipal(ctx context.Context, token string, logger *slog.Logger) (string, error) {
	if j.config.MockLocalPrincipal != "" {
		logger.InfoContext(ctx, "JWT validation is disabled, returning mock principal",
			"principal", j.config.MockLocalPrincipal,
		)
		return j.config.MockLocalPrincipal, nil
	}

	if j.validator == nil {
		return "", errors.New("JWT validator is not set up")
	}

	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	parsed, err := j.validator.ValidateToken(ctx, token)
	if err != nil {
		logger.DebugContext(ctx, "token validation failed", "error", err)
		return "", err
	}

	claims, ok := parsed.(*validator.ValidatedClaims)
	if !ok {
		return "", errors.New("failed to get validated authorization claims")
	}
	custom, ok := claims.CustomClaims.(*HeimdallClaims)
	if !ok {
		return "", errors.New("failed to get custom authorization claims")
	}

	return custom.Principal, nil
}
