package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/signstock-backend/pkg/logger"
	"github.com/angelmondragon/signstock-backend/pkg/outbox"
)

const (
	requestIDHeader    = "X-Request-Id"
	maxRequestIDLength = 128
	actorSourceAPI     = "api"
)

// RequestID echoes a usable inbound X-Request-Id or mints one, then stamps it
// on the logger context and the outbox actor for the rest of the request.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := inboundRequestID(r)
			w.Header().Set(requestIDHeader, reqID)

			ctx := outbox.WithActor(r.Context(), outbox.ActorRef{
				Source:    actorSourceAPI,
				RequestID: reqID,
			})
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// inboundRequestID keeps the caller's id only when it is short printable ASCII.
func inboundRequestID(r *http.Request) string {
	id := r.Header.Get(requestIDHeader)
	if id == "" || len(id) > maxRequestIDLength {
		return newRequestID()
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return newRequestID()
		}
	}
	return id
}

func newRequestID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
