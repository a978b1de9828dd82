package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"lattice.social/api/spec"
	"lattice.social/internal/authz"
	"lattice.social/internal/directory"
	"lattice.social/internal/friending"
	"lattice.social/internal/messaging"
	"lattice.social/internal/nudging"
	"lattice.social/internal/obs"
	"lattice.social/internal/posting"
	"lattice.social/internal/recording"
	"lattice.social/internal/stream"
)

// ReadyProbe checks backing-store readiness, typically a DB ping.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config carries the services the HTTP layer exposes.
type Config struct {
	Ready   ReadyProbe
	Version string

	Ledger   *authz.Ledger
	Users    *directory.Service
	Posts    *posting.Service
	Messages *messaging.Service
	Friends  *friending.Service
	Records  *recording.Service
	Nudges   *nudging.Service
	Activity *stream.Stream
}

// API is the HTTP layer. All payload identities are usernames; translation
// to internal user ids happens here and nowhere deeper.
type API struct {
	mux     *http.ServeMux
	ready   ReadyProbe
	version string

	ledger   *authz.Ledger
	users    *directory.Service
	posts    *posting.Service
	messages *messaging.Service
	friends  *friending.Service
	records  *recording.Service
	nudges   *nudging.Service
	activity *stream.Stream
}

func New(cfg Config) *API {
	a := &API{
		mux:      http.NewServeMux(),
		ready:    cfg.Ready,
		version:  cfg.Version,
		ledger:   cfg.Ledger,
		users:    cfg.Users,
		posts:    cfg.Posts,
		messages: cfg.Messages,
		friends:  cfg.Friends,
		records:  cfg.Records,
		nudges:   cfg.Nudges,
		activity: cfg.Activity,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.HandleFunc("/openapi.yaml", a.OpenAPISpec)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/users", a.handleUsers)
	a.mux.HandleFunc("/v1/users/me", a.handleCurrentUser)
	a.mux.HandleFunc("/v1/sessions", a.handleSessions)

	a.mux.HandleFunc("/v1/authorize", a.handleAuthorize)
	a.mux.HandleFunc("/v1/authorize/", a.handleAuthorizeScoped)

	a.mux.HandleFunc("/v1/posts", a.handlePostsCollection)
	a.mux.HandleFunc("/v1/posts/", a.handlePostResource)
	a.mux.HandleFunc("/v1/messages", a.handleMessagesCollection)
	a.mux.HandleFunc("/v1/messages/", a.handleMessageResource)
	a.mux.HandleFunc("/v1/friends", a.handleFriendsCollection)
	a.mux.HandleFunc("/v1/friends/", a.handleFriendResource)
	a.mux.HandleFunc("/v1/records", a.handleRecordsCollection)
	a.mux.HandleFunc("/v1/records/", a.handleRecordResource)
	a.mux.HandleFunc("/v1/nudges", a.handleNudgesCollection)
	a.mux.HandleFunc("/v1/nudges/", a.handleNudgeResource)

	a.mux.HandleFunc("/v1/stream", a.Stream)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the full middleware chain around the mux.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, 40, 20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "lattice-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.ready.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "lattice-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

func (a *API) OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(spec.OpenAPI)
}

// --- helpers ---

// caller returns the authenticated user's id, writing a 401 when absent.
func (a *API) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := sessionUser(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return id, true
}

// username translates an internal id for display, falling back to the raw id
// when the directory no longer knows it.
func (a *API) username(ctx context.Context, id string) string {
	name, err := a.users.Lookup(ctx, id)
	if err != nil {
		return id
	}
	return name
}

// resolveUser maps a payload username to an internal id, writing a 404 on
// unknown users.
func (a *API) resolveUser(w http.ResponseWriter, r *http.Request, username string) (string, bool) {
	username = strings.TrimSpace(username)
	if username == "" {
		writeError(w, r, http.StatusBadRequest, "username is required")
		return "", false
	}
	id, err := a.users.Resolve(r.Context(), username)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "unknown user "+username)
		} else {
			writeError(w, r, http.StatusInternalServerError, "directory lookup failed")
		}
		return "", false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
