package middleware

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
)

// Logger интерфейс для логирования
type Logger interface {
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RateLimit лимитирует запросы по пользователю (либо по IP для публичных
// роутов) фиксированным окном в одну минуту. При недоступности Redis
// запросы пропускаются
func RateLimit(client *redis.Client, limitPerMin int, logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rateLimitKey(r)

			count, err := client.Incr(r.Context(), key).Result()
			if err != nil {
				logger.Error("RateLimit: redis incr failed: %v", err)
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				if err := client.Expire(r.Context(), key, time.Minute).Err(); err != nil {
					logger.Error("RateLimit: redis expire failed: %v", err)
				}
			}

			if count > int64(limitPerMin) {
				logger.Warn("RateLimit: limit exceeded for %s", key)
				handlers.RespondTooManyRequests(w, "слишком много запросов, попробуйте позже")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(r *http.Request) string {
	if userID, ok := GetUserID(r.Context()); ok {
		return fmt.Sprintf("ratelimit:user:%d", userID)
	}
	if userIDStr := r.Header.Get("X-User-ID"); userIDStr != "" {
		return fmt.Sprintf("ratelimit:user:%s", userIDStr)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return fmt.Sprintf("ratelimit:ip:%s", host)
}
