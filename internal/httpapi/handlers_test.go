package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"lattice.social/internal/authz"
	"lattice.social/internal/directory"
	"lattice.social/internal/friending"
	"lattice.social/internal/messaging"
	"lattice.social/internal/nudging"
	"lattice.social/internal/posting"
	"lattice.social/internal/recording"
	"lattice.social/internal/session"
	"lattice.social/internal/stream"
)

// plainHasher keeps tests fast; production wiring uses bcrypt.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain:" + password, nil }

func (plainHasher) Verify(hash, password string) error {
	if hash != "plain:"+password {
		return errors.New("password mismatch")
	}
	return nil
}

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	t.Setenv("LATTICE_SESSION_SECRET", "test-secret")
	session.ResetSecretForTests()

	authzMem := authz.NewMemory()
	postMem := posting.NewMemory()
	msgMem := messaging.NewMemory()
	friendMem := friending.NewMemory()
	recordMem := recording.NewMemory()
	nudgeMem := nudging.NewMemory()

	ledger, err := authz.NewLedger(authzMem)
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	users, err := directory.NewService(directory.NewMemory(),
		directory.WithHasher(plainHasher{}),
		directory.WithPurgers(authzMem, postMem, msgMem, friendMem, recordMem, nudgeMem))
	if err != nil {
		t.Fatalf("directory.NewService: %v", err)
	}
	posts, err := posting.NewService(postMem)
	if err != nil {
		t.Fatalf("posting.NewService: %v", err)
	}
	messages, err := messaging.NewService(msgMem)
	if err != nil {
		t.Fatalf("messaging.NewService: %v", err)
	}
	friends, err := friending.NewService(friendMem)
	if err != nil {
		t.Fatalf("friending.NewService: %v", err)
	}
	records, err := recording.NewService(recordMem)
	if err != nil {
		t.Fatalf("recording.NewService: %v", err)
	}
	nudges, err := nudging.NewService(nudgeMem)
	if err != nil {
		t.Fatalf("nudging.NewService: %v", err)
	}

	api := New(Config{
		Version:  "test",
		Ledger:   ledger,
		Users:    users,
		Posts:    posts,
		Messages: messages,
		Friends:  friends,
		Records:  records,
		Nudges:   nudges,
		Activity: stream.New(),
	})

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
	}
}

func bearerHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPost, path, body, headers)
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		c.t.Fatalf("parse url: %v", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("get request: %v", err)
	}
	return resp
}

// signup registers a user and returns a session token.
func (c *apiClient) signup(username string) string {
	c.t.Helper()
	resp := c.post("/v1/users", map[string]string{
		"username": username,
		"password": "password1",
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		c.t.Fatalf("register %s: status %d", username, resp.StatusCode)
	}
	resp = c.post("/v1/sessions", map[string]string{
		"username": username,
		"password": "password1",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		c.t.Fatalf("login %s: status %d", username, resp.StatusCode)
	}
	payload := decode[sessionResponse](c.t, resp)
	if payload.Token == "" {
		c.t.Fatalf("empty token for %s", username)
	}
	return payload.Token
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func wantStatus(t *testing.T, resp *http.Response, code int) {
	t.Helper()
	defer resp.Body.Close()
	if resp.StatusCode != code {
		t.Fatalf("status = %d, want %d", resp.StatusCode, code)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	c := newTestAPI(t)

	resp := c.post("/v1/users", map[string]string{"username": "alice", "password": "password1"}, nil)
	wantStatus(t, resp, http.StatusCreated)

	resp = c.post("/v1/users", map[string]string{"username": "alice", "password": "password2"}, nil)
	wantStatus(t, resp, http.StatusConflict)

	resp = c.post("/v1/users", map[string]string{"username": "A!", "password": "password1"}, nil)
	wantStatus(t, resp, http.StatusBadRequest)

	resp = c.post("/v1/sessions", map[string]string{"username": "alice", "password": "wrong-password"}, nil)
	wantStatus(t, resp, http.StatusUnauthorized)

	resp = c.post("/v1/sessions", map[string]string{"username": "alice", "password": "password1"}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	payload := decode[sessionResponse](t, resp)
	if payload.Username != "alice" || payload.Token == "" {
		t.Fatalf("unexpected session payload: %+v", payload)
	}
}

func TestAuthenticationRequired(t *testing.T) {
	c := newTestAPI(t)

	resp := c.get("/v1/posts", nil, nil)
	wantStatus(t, resp, http.StatusUnauthorized)

	resp = c.get("/v1/posts", nil, bearerHeader("garbage"))
	wantStatus(t, resp, http.StatusUnauthorized)
}

func TestPostLifecycle(t *testing.T) {
	c := newTestAPI(t)
	alice := c.signup("alice")
	bob := c.signup("bob")

	resp := c.post("/v1/posts", map[string]string{"content": "hello world"}, bearerHeader(alice))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create post status = %d", resp.StatusCode)
	}
	post := decode[postResponse](t, resp)
	if post.Author != "alice" || post.Content != "hello world" {
		t.Fatalf("unexpected post: %+v", post)
	}

	resp = c.get("/v1/posts", url.Values{"author": {"alice"}}, bearerHeader(bob))
	posts := decode[[]postResponse](t, resp)
	if len(posts) != 1 || posts[0].ID != post.ID {
		t.Fatalf("unexpected author feed: %+v", posts)
	}

	// Only the author may delete.
	resp = c.do(http.MethodDelete, "/v1/posts/"+post.ID, nil, bearerHeader(bob))
	wantStatus(t, resp, http.StatusForbidden)

	resp = c.do(http.MethodDelete, "/v1/posts/"+post.ID, nil, bearerHeader(alice))
	wantStatus(t, resp, http.StatusNoContent)

	resp = c.get("/v1/posts/"+post.ID, nil, bearerHeader(alice))
	wantStatus(t, resp, http.StatusNotFound)
}

func TestMessagingFlow(t *testing.T) {
	c := newTestAPI(t)
	alice := c.signup("alice")
	bob := c.signup("bob")

	resp := c.post("/v1/messages", map[string]string{"recipient": "bob", "content": "hi bob"}, bearerHeader(alice))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("send status = %d", resp.StatusCode)
	}
	msg := decode[messageResponse](t, resp)
	if msg.Sender != "alice" || msg.Recipient != "bob" {
		t.Fatalf("unexpected message: %+v", msg)
	}

	resp = c.post("/v1/messages", map[string]string{"recipient": "ghost", "content": "anyone?"}, bearerHeader(alice))
	wantStatus(t, resp, http.StatusNotFound)

	resp = c.get("/v1/messages", nil, bearerHeader(bob))
	inbox := decode[[]messageResponse](t, resp)
	if len(inbox) != 1 || inbox[0].Content != "hi bob" {
		t.Fatalf("unexpected inbox: %+v", inbox)
	}

	resp = c.get("/v1/messages", url.Values{"with": {"alice"}}, bearerHeader(bob))
	conv := decode[[]messageResponse](t, resp)
	if len(conv) != 1 {
		t.Fatalf("unexpected conversation: %+v", conv)
	}

	resp = c.do(http.MethodDelete, "/v1/messages/"+msg.ID, nil, bearerHeader(bob))
	wantStatus(t, resp, http.StatusForbidden)

	resp = c.do(http.MethodDelete, "/v1/messages/"+msg.ID, nil, bearerHeader(alice))
	wantStatus(t, resp, http.StatusNoContent)
}

func TestFriendingFlow(t *testing.T) {
	c := newTestAPI(t)
	alice := c.signup("alice")
	bob := c.signup("bob")

	resp := c.post("/v1/friends", map[string]string{"username": "bob"}, bearerHeader(alice))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("request status = %d", resp.StatusCode)
	}
	f := decode[friendshipResponse](t, resp)
	if f.Requester != "alice" || f.Target != "bob" || f.Status != "pending" {
		t.Fatalf("unexpected friendship: %+v", f)
	}

	resp = c.post("/v1/friends", map[string]string{"username": "alice"}, bearerHeader(bob))
	wantStatus(t, resp, http.StatusConflict)

	// Only the target may accept.
	resp = c.post("/v1/friends/"+f.ID+"/accept", nil, bearerHeader(alice))
	wantStatus(t, resp, http.StatusForbidden)

	resp = c.post("/v1/friends/"+f.ID+"/accept", nil, bearerHeader(bob))
	accepted := decode[friendshipResponse](t, resp)
	if accepted.Status != "accepted" {
		t.Fatalf("unexpected status: %+v", accepted)
	}

	resp = c.get("/v1/friends", nil, bearerHeader(alice))
	friendsPayload := decode[map[string][]string](t, resp)
	if got := friendsPayload["friends"]; len(got) != 1 || got[0] != "bob" {
		t.Fatalf("unexpected friends: %v", got)
	}

	resp = c.do(http.MethodDelete, "/v1/friends/"+f.ID, nil, bearerHeader(bob))
	wantStatus(t, resp, http.StatusNoContent)
}

func TestRecordingFlow(t *testing.T) {
	c := newTestAPI(t)
	alice := c.signup("alice")

	resp := c.post("/v1/records", map[string]string{"activity": "run", "note": "5k"}, bearerHeader(alice))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	rec := decode[recordResponse](t, resp)
	if rec.Recorder != "alice" || rec.Activity != "run" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	resp = c.get("/v1/records", nil, bearerHeader(alice))
	recs := decode[[]recordResponse](t, resp)
	if len(recs) != 1 {
		t.Fatalf("unexpected records: %+v", recs)
	}

	resp = c.do(http.MethodDelete, "/v1/records/"+rec.ID, nil, bearerHeader(alice))
	wantStatus(t, resp, http.StatusNoContent)
}

func TestNudgeFlow(t *testing.T) {
	c := newTestAPI(t)
	alice := c.signup("alice")
	bob := c.signup("bob")

	resp := c.post("/v1/nudges", map[string]any{
		"recipient":        "bob",
		"message":          "stand up",
		"interval_seconds": 3600,
	}, bearerHeader(alice))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	n := decode[nudgeResponse](t, resp)
	if n.Sender != "alice" || n.Recipient != "bob" || n.IntervalSeconds != 3600 {
		t.Fatalf("unexpected nudge: %+v", n)
	}

	resp = c.get("/v1/nudges/incoming", nil, bearerHeader(bob))
	incoming := decode[[]nudgeResponse](t, resp)
	if len(incoming) != 1 {
		t.Fatalf("unexpected incoming nudges: %+v", incoming)
	}

	// Only the sender may cancel.
	resp = c.do(http.MethodDelete, "/v1/nudges/"+n.ID, nil, bearerHeader(bob))
	wantStatus(t, resp, http.StatusForbidden)

	resp = c.do(http.MethodDelete, "/v1/nudges/"+n.ID, nil, bearerHeader(alice))
	wantStatus(t, resp, http.StatusNoContent)
}

func TestDeleteUserCascades(t *testing.T) {
	c := newTestAPI(t)
	alice := c.signup("alice")
	bob := c.signup("bob")

	resp := c.post("/v1/posts", map[string]string{"content": "soon gone"}, bearerHeader(alice))
	wantStatus(t, resp, http.StatusCreated)

	resp = c.do(http.MethodDelete, "/v1/users/me", nil, bearerHeader(alice))
	wantStatus(t, resp, http.StatusNoContent)

	resp = c.get("/v1/posts", nil, bearerHeader(bob))
	posts := decode[[]postResponse](t, resp)
	if len(posts) != 0 {
		t.Fatalf("posts survived user deletion: %+v", posts)
	}
}

func TestHealthEndpoints(t *testing.T) {
	c := newTestAPI(t)

	resp := c.get("/healthz", nil, nil)
	wantStatus(t, resp, http.StatusOK)

	resp = c.get("/readyz", nil, nil)
	wantStatus(t, resp, http.StatusOK)

	resp = c.get("/openapi.yaml", nil, nil)
	wantStatus(t, resp, http.StatusOK)
}
