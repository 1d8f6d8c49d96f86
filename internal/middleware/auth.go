// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/infrastructure/auth"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-meetup-service/pkg/constants"
)

// AuthMiddleware resolves the caller's principal from the bearer token and
// stores it in the request context. Requests without a valid token get a 401.
func AuthMiddleware(jwtAuth auth.IJWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			principal, err := jwtAuth.ParsePrincipal(ctx, r.Header.Get(constants.AuthorizationHeader), slog.Default())
			if err != nil || principal == "" {
				slog.WarnContext(ctx, "unauthorized request", logging.ErrKey, err)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"code":"unauthorized","message":"a valid bearer token is required"}`))
				return
			}

			ctx = context.WithValue(ctx, constants.PrincipalContextID, principal)
			ctx = logging.AppendCtx(ctx, slog.String("principal", principal))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext returns the principal stored by AuthMiddleware.
func PrincipalFromContext(ctx context.Context) (string, bool) {
	principal, ok := ctx.Value(constants.PrincipalContextID).(string)
	return principal, ok && principal != ""
}
