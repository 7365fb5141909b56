package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ringsync/ringsync/internal/server/handlers"
	"github.com/ringsync/ringsync/internal/server/jwt"
)

// AuthMiddleware создает middleware для проверки device token.
// Tenant и device из claims кладутся в контекст запроса: все последующие
// обработчики работают строго в пределах tenant-а токена.
func AuthMiddleware(logger *slog.Logger, tokens *jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("Missing Authorization header")
				http.Error(w, "Unauthorized: missing token", http.StatusUnauthorized)
				return
			}

			// Ожидаем формат: "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("Invalid Authorization header format")
				http.Error(w, "Unauthorized: invalid token format", http.StatusUnauthorized)
				return
			}

			claims, err := tokens.Verify(parts[1])
			if err != nil {
				logger.Warn("Invalid device token", "error", err)
				http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), handlers.TenantIDKey, claims.TenantID)
			ctx = context.WithValue(ctx, handlers.DeviceIDKey, claims.DeviceID)

			logger.Debug("Device authenticated", "tenant_id", claims.TenantID, "device_id", claims.DeviceID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
