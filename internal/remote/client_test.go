package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"haulr-dispatch/internal/models"
)

func TestParseBaseURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"127.0.0.1:8080", "http://127.0.0.1:8080", false},
		{"https://sync.example.com/api?x=1#frag", "https://sync.example.com", false},
		{"  http://localhost:9000  ", "http://localhost:9000", false},
		{"", "", true},
		{"http://", "", true},
	}
	for _, tt := range tests {
		u, err := parseBaseURL(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseBaseURL(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if err == nil && u.String() != tt.want {
			t.Fatalf("parseBaseURL(%q) = %q, want %q", tt.in, u.String(), tt.want)
		}
	}
}

func TestCalculateBackoff(t *testing.T) {
	base := 250 * time.Millisecond
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, 250 * time.Millisecond},
		{2, 500 * time.Millisecond},
		{3, time.Second},
		{4, 2 * time.Second},
		{10, maxBackoff},
	}
	for _, tt := range tests {
		if got := calculateBackoff(tt.attempt, base); got != tt.want {
			t.Errorf("calculateBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestClient_GetAllAndSync(t *testing.T) {
	var gotBody map[string]json.RawMessage
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/getAll":
			_ = json.NewEncoder(w).Encode(models.Snapshot{
				Jobs:               []models.Job{{ID: "job-1", CustomerID: "c1", Status: models.JobStatusPlanned}},
				DispatcherSettings: nil,
			})
		case "/api/sync":
			data, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(data, &gotBody)
			_ = json.NewEncoder(w).Encode(models.SyncAck{OK: true, Collections: []models.Collection{models.CollectionJobs}})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, WithToken("secret"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	snap, err := c.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(snap.Jobs) != 1 || snap.Jobs[0].ID != "job-1" {
		t.Fatalf("GetAll jobs = %#v", snap.Jobs)
	}
	if snap.DispatcherSettings != nil {
		t.Fatalf("DispatcherSettings = %#v, want nil", snap.DispatcherSettings)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("Authorization = %q", gotAuth)
	}

	jobs := []models.Job{}
	ack, err := c.Sync(ctx, models.SyncRequest{Jobs: &jobs})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !ack.OK {
		t.Fatalf("ack = %#v", ack)
	}
	if len(gotBody) != 1 {
		t.Fatalf("sync body keys = %v, want only jobs", gotBody)
	}
	if string(gotBody["jobs"]) != "[]" {
		t.Fatalf("sync jobs = %s, want []", gotBody["jobs"])
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(models.Snapshot{})
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, WithRetry(3, time.Millisecond))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.GetAll(context.Background()); err != nil {
		t.Fatalf("GetAll after retries: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad", http.StatusBadRequest)
	}))
	t.Cleanup(server.Close)

	c, _ := NewClient(server.URL, WithRetry(3, time.Millisecond))
	_, err := c.GetAll(context.Background())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusBadRequest {
		t.Fatalf("err = %v, want 400 StatusError", err)
	}
	if errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, a 400 must not look like an outage", err)
	}
	if !strings.Contains(err.Error(), "api /api/getAll returned status 400") {
		t.Fatalf("err = %q", err.Error())
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}

func TestStatusError_OnlyServerSideIsUnavailable(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusForbidden, false},
		{http.StatusNotFound, false},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			t.Cleanup(server.Close)

			c, _ := NewClient(server.URL, WithRetry(1, time.Millisecond))
			_, err := c.GetAll(context.Background())
			var statusErr *StatusError
			if !errors.As(err, &statusErr) || statusErr.Status != tt.status {
				t.Fatalf("err = %v, want a %d StatusError", err, tt.status)
			}
			if got := errors.Is(err, ErrUnavailable); got != tt.want {
				t.Errorf("errors.Is(ErrUnavailable) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClient_UnreachableIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c, _ := NewClient(url, WithRetry(2, time.Millisecond), WithTimeout(200*time.Millisecond))
	_, err := c.GetAll(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestClient_SyncRejectsEmptyRequest(t *testing.T) {
	c, _ := NewClient("127.0.0.1:1")
	_, err := c.Sync(context.Background(), models.SyncRequest{})
	if !errors.Is(err, models.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestClient_LoginStoresToken(t *testing.T) {
	var lastAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			_ = json.NewEncoder(w).Encode(LoginResponse{OK: true, Token: "jwt-token", Role: "driver"})
		default:
			lastAuth = r.Header.Get("Authorization")
			_ = json.NewEncoder(w).Encode(models.Snapshot{})
		}
	}))
	t.Cleanup(server.Close)

	c, _ := NewClient(server.URL)
	resp, err := c.Login(context.Background(), LoginRequest{Username: "mike", Pin: "1234"})
	if err != nil || !resp.OK {
		t.Fatalf("Login = %#v, %v", resp, err)
	}
	if _, err := c.GetAll(context.Background()); err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if lastAuth != "Bearer jwt-token" {
		t.Fatalf("Authorization = %q, want token from login", lastAuth)
	}
}

func TestClient_WatchDeliversChanges(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(ChangeMessage{Type: "pong"})
		_ = conn.WriteJSON(ChangeMessage{Type: ChangeTypeSynced, Collections: []models.Collection{models.CollectionJobs}})
		time.Sleep(time.Second)
	}))
	t.Cleanup(server.Close)

	c, _ := NewClient(server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	got := make(chan []models.Collection, 1)
	go c.Watch(ctx, func(cols []models.Collection) {
		select {
		case got <- cols:
		default:
		}
	})

	select {
	case cols := <-got:
		if len(cols) != 1 || cols[0] != models.CollectionJobs {
			t.Fatalf("collections = %v, want [jobs]", cols)
		}
	case <-ctx.Done():
		t.Fatalf("no change delivered")
	}
}

func TestMemoryBackend_SyncOverwritesOnlyPresentCollections(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	routes := []models.Route{{ID: "route-1", RouteProgress: models.RouteProgress{Status: models.RouteStatusPlanned}}}
	jobs := []models.Job{{ID: "job-1", CustomerID: "c1", Status: models.JobStatusPlanned}}
	if err := backend.Seed(models.SyncRequest{Routes: &routes, Jobs: &jobs}); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	replacement := []models.Job{{ID: "job-2", CustomerID: "c1", Status: models.JobStatusPlanned}}
	for i := 0; i < 2; i++ {
		if _, err := backend.Sync(ctx, models.SyncRequest{Jobs: &replacement}); err != nil {
			t.Fatalf("Sync: %v", err)
		}
	}

	snap, err := backend.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(snap.Jobs) != 1 || snap.Jobs[0].ID != "job-2" {
		t.Fatalf("jobs = %#v, want exactly job-2 after repeated sync", snap.Jobs)
	}
	if len(snap.Routes) != 1 || snap.Routes[0].ID != "route-1" {
		t.Fatalf("routes = %#v, want untouched", snap.Routes)
	}
	if snap.Drivers == nil {
		t.Fatalf("absent collection decoded as nil, want empty slice")
	}
}
