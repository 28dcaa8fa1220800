package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Clark-Hu/store-ratings/internal/auth"
)

// requestLogger logs one line per request once the handler has finished.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			// The auth middleware runs further down the chain, so the identity is
			// captured through a holder the inner handler fills.
			holder := &identityHolder{}
			next.ServeHTTP(ww, r.WithContext(withIdentityHolder(r.Context(), holder)))

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			}
			if id, ok := holder.get(); ok {
				fields = append(fields, zap.Int64("user_id", id.UserID), zap.String("role", string(id.Role)))
			}

			switch {
			case ww.Status() >= http.StatusInternalServerError:
				log.Error("request", fields...)
			case ww.Status() >= http.StatusBadRequest:
				log.Warn("request", fields...)
			default:
				log.Info("request", fields...)
			}
		})
	}
}

type identityHolder struct {
	id  auth.Identity
	set bool
}

func (h *identityHolder) get() (auth.Identity, bool) {
	return h.id, h.set
}

type identityHolderKey struct{}

func withIdentityHolder(ctx context.Context, h *identityHolder) context.Context {
	return context.WithValue(ctx, identityHolderKey{}, h)
}

// recordIdentity copies the verified identity into the request logger's holder.
func recordIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := auth.FromContext(r.Context()); ok {
			if h, ok := r.Context().Value(identityHolderKey{}).(*identityHolder); ok {
				h.id, h.set = id, true
			}
		}
		next.ServeHTTP(w, r)
	})
}
