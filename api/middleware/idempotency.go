package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/angelmondragon/signstock-backend/api/responses"
	pkgerrors "github.com/angelmondragon/signstock-backend/pkg/errors"
	"github.com/angelmondragon/signstock-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/signstock-backend/pkg/redis"
)

const (
	idempotencyHeader     = "Idempotency-Key"
	replayHeader          = "Idempotent-Replay"
	defaultIdempotencyTTL = 24 * time.Hour
	maxIdempotencyKeyLen  = 255
	releaseTimeout        = 2 * time.Second
)

// ledgerMutationPath matches every POST that writes a history row. Creating,
// renaming and deleting signboards are left out.
var ledgerMutationPath = regexp.MustCompile(`^/api/v1/signboards/(reset-all-quantities|[^/]+/(add|subtract|increment|decrement))$`)

const (
	recordPending  = "pending"
	recordComplete = "complete"
)

// storedResponse is the JSON kept in redis under the idempotency key. A
// pending record reserves the key while the first request is still running.
type storedResponse struct {
	State       string `json:"state"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
	RequestHash string `json:"request_hash"`
}

// Idempotency replays the first response of a keyed ledger mutation. The key
// is reserved before the handler runs, so a retry that overlaps the first
// attempt is refused instead of applied twice. A retry with a different body
// is rejected, and 5xx responses release the key.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			ttl, guarded := routeTTL(r.Method, r.URL.Path)
			if store == nil || key == "" || !guarded {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			if len(key) > maxIdempotencyKeyLen {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key is too long"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			redisKey := store.IdempotencyKey(r.Method+"|"+r.URL.Path, key)
			hash := requestHash(body)

			reserved, err := putRecord(ctx, store.SetNX, redisKey, ttl, storedResponse{State: recordPending, RequestHash: hash})
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
				return
			}
			if !reserved {
				answerDuplicate(w, r, store, logg, redisKey, hash)
				return
			}

			completed := false
			defer func() {
				if !completed {
					releaseKey(ctx, store, logg, redisKey)
				}
			}()

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)
			if capture.statusCode() >= http.StatusInternalServerError {
				return
			}
			_, err = putRecord(ctx, setAlways(store), redisKey, ttl, storedResponse{
				State:       recordComplete,
				Status:      capture.statusCode(),
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
				RequestHash: hash,
			})
			if err != nil {
				// the client already has its response
				if logg != nil {
					logg.Error(logg.WithField(ctx, "idempotency_key", redisKey), "persist idempotency record", err)
				}
				return
			}
			completed = true
		})
	}
}

// answerDuplicate handles a request whose key is already reserved.
func answerDuplicate(w http.ResponseWriter, r *http.Request, store pkgredis.IdempotencyStore, logg *logger.Logger, key, hash string) {
	ctx := r.Context()
	prior, found, err := loadResponse(ctx, store, key)
	switch {
	case err != nil:
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
	case found && prior.RequestHash != hash:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case !found || prior.State == recordPending:
		// a record that vanished was released by a failed first attempt
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this idempotency key is still in progress"))
	default:
		prior.replay(w)
	}
}

func loadResponse(ctx context.Context, store pkgredis.IdempotencyStore, key string) (storedResponse, bool, error) {
	raw, err := store.Get(ctx, key)
	switch {
	case pkgredis.IsNil(err):
		return storedResponse{}, false, nil
	case err != nil:
		return storedResponse{}, false, err
	case raw == "":
		return storedResponse{}, false, nil
	}
	var resp storedResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return storedResponse{}, false, err
	}
	return resp, true, nil
}

type writeFunc func(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)

func setAlways(store pkgredis.IdempotencyStore) writeFunc {
	return func(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
		return true, store.Set(ctx, key, value, ttl)
	}
}

func putRecord(ctx context.Context, write writeFunc, key string, ttl time.Duration, rec storedResponse) (bool, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}
	return write(ctx, key, string(payload), ttl)
}

// releaseKey drops a reservation so the client can retry. It outlives the
// request context because the client may already have hung up.
func releaseKey(ctx context.Context, store pkgredis.IdempotencyStore, logg *logger.Logger, key string) {
	delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := store.Del(delCtx, key); err != nil && logg != nil {
		logg.Error(logg.WithField(ctx, "idempotency_key", key), "release idempotency key", err)
	}
}

func (s storedResponse) replay(w http.ResponseWriter) {
	if s.ContentType != "" {
		w.Header().Set("Content-Type", s.ContentType)
	}
	w.Header().Set(replayHeader, "true")
	w.WriteHeader(s.Status)
	_, _ = w.Write(s.Body)
}

func requestHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// routeTTL works on the raw path because chi has not resolved the route
// pattern yet when top-level middleware runs.
func routeTTL(method, path string) (time.Duration, bool) {
	if method != http.MethodPost || !ledgerMutationPath.MatchString(path) {
		return 0, false
	}
	return defaultIdempotencyTTL, true
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseCapture) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}
