package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/kashyap0729/good-will-hunting/internal/model"
)

// IdempotencyKeyHeader names the client-supplied replay key
const IdempotencyKeyHeader = "Idempotency-Key"

// MaxIdempotentBody bounds the request body hashed into the replay key
const MaxIdempotentBody = 1 << 20

// IdempotencyStore remembers completed responses by replay key. Only
// final outcomes are stored: retryable failures (409, 5xx) are forgotten
// so a client retry with the same key runs again.
type IdempotencyStore struct {
	mu       sync.Mutex
	entries  map[string]*idempotencyEntry
	ttl      time.Duration
	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once
}

type idempotencyEntry struct {
	status    int
	headers   http.Header
	body      []byte
	expiresAt time.Time
	done      chan struct{} // closed when the first request finishes
}

// IdempotencyConfig holds configuration for idempotency middleware
type IdempotencyConfig struct {
	TTL     time.Duration // how long results are replayed (default 24h)
	Cleanup time.Duration // cleanup interval (default 1h)
	Clock   func() time.Time
}

// NewIdempotencyStore creates a new idempotency store
func NewIdempotencyStore(cfg IdempotencyConfig) *IdempotencyStore {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Cleanup <= 0 {
		cfg.Cleanup = time.Hour
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	store := &IdempotencyStore{
		entries:  make(map[string]*idempotencyEntry),
		ttl:      cfg.TTL,
		now:      cfg.Clock,
		stopChan: make(chan struct{}),
	}
	go store.cleanupLoop(cfg.Cleanup)
	return store
}

// Stop stops the cleanup goroutine
func (s *IdempotencyStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *IdempotencyStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopChan:
			return
		}
	}
}

func (s *IdempotencyStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, entry := range s.entries {
		if isDone(entry) && entry.expiresAt.Before(now) {
			delete(s.entries, key)
		}
	}
}

// claim returns the finished entry to replay, or registers a new
// in-flight entry owned by the caller. A concurrent duplicate waits for
// the owner and then tries again.
func (s *IdempotencyStore) claim(key string) (replay *idempotencyEntry, owned *idempotencyEntry) {
	for {
		s.mu.Lock()
		entry, ok := s.entries[key]
		if !ok || (isDone(entry) && entry.expiresAt.Before(s.now())) {
			entry = &idempotencyEntry{done: make(chan struct{})}
			s.entries[key] = entry
			s.mu.Unlock()
			return nil, entry
		}
		s.mu.Unlock()

		if isDone(entry) {
			return entry, nil
		}
		<-entry.done
	}
}

func (s *IdempotencyStore) finish(key string, entry *idempotencyEntry, rec *capturingWriter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cacheable(rec.status) {
		entry.status = rec.status
		entry.headers = rec.Header().Clone()
		entry.body = bytes.Clone(rec.body.Bytes())
		entry.expiresAt = s.now().Add(s.ttl)
	} else if s.entries[key] == entry {
		delete(s.entries, key)
	}
	close(entry.done)
}

func cacheable(status int) bool {
	return status != http.StatusConflict && status != http.StatusTooManyRequests && status < http.StatusInternalServerError
}

func isDone(e *idempotencyEntry) bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// replayKey scopes the client key to the caller and request fingerprint
func replayKey(client, idempotencyKey, method, path string, body []byte) string {
	h := sha256.New()
	for _, part := range []string{client, idempotencyKey, method, path} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type capturingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *capturingWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the stored response for POST requests that repeat
// an Idempotency-Key with the same body.
func Idempotency(store *IdempotencyStore) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyKeyHeader)
			if r.Method != http.MethodPost || key == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, MaxIdempotentBody+1))
			if err != nil {
				model.NewBadRequestError("unreadable request body").WriteJSON(w)
				return
			}
			if len(body) > MaxIdempotentBody {
				model.NewBadRequestError("request body too large").WriteJSON(w)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			rk := replayKey(ClientKey(r), key, r.Method, r.URL.Path, body)
			replay, owned := store.claim(rk)
			if replay != nil {
				for k, v := range replay.headers {
					w.Header()[k] = append([]string(nil), v...)
				}
				w.Header().Set("X-Idempotency-Replayed", "true")
				w.WriteHeader(replay.status)
				_, _ = w.Write(replay.body)
				return
			}

			rec := &capturingWriter{ResponseWriter: w, status: http.StatusOK}
			defer func() {
				if p := recover(); p != nil {
					rec.status = http.StatusInternalServerError
					store.finish(rk, owned, rec)
					panic(p)
				}
				store.finish(rk, owned, rec)
			}()
			next.ServeHTTP(rec, r)
		})
	}
}
