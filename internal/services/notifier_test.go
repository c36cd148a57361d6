package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"haulr-dispatch/internal/models"
)

type fakeHub struct {
	mu    sync.Mutex
	calls [][]models.Collection
}

func (h *fakeHub) CollectionsSynced(cols []models.Collection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, cols)
}

type fakePusher struct {
	messages []string
	routes   []string
	senders  []string
	err      error
}

func (p *fakePusher) SendMessageNotification(ctx context.Context, tokens []string, msg models.Message, fromName string) error {
	p.messages = append(p.messages, msg.ID)
	p.senders = append(p.senders, fromName)
	return p.err
}

func (p *fakePusher) SendRouteDispatchedNotification(ctx context.Context, tokens []string, route models.Route) error {
	p.routes = append(p.routes, route.ID)
	return p.err
}

type fakeTokens map[string][]string

func (f fakeTokens) DeviceTokensFor(ctx context.Context, userID string) ([]string, error) {
	if userID == "broken" {
		return nil, errors.New("db down")
	}
	return f[userID], nil
}

func strPtr(s string) *string { return &s }

func TestNewMessages(t *testing.T) {
	before := &models.Snapshot{Messages: []models.Message{{ID: "m1"}}}
	msgs := []models.Message{{ID: "m1"}, {ID: "m2"}, {ID: "m3"}}

	got := NewMessages(before, models.SyncRequest{Messages: &msgs})
	if len(got) != 2 || got[0].ID != "m2" || got[1].ID != "m3" {
		t.Errorf("NewMessages = %+v", got)
	}
	if got := NewMessages(before, models.SyncRequest{}); got != nil {
		t.Errorf("absent messages should yield nil, got %+v", got)
	}
	if got := NewMessages(nil, models.SyncRequest{Messages: &msgs}); len(got) != 3 {
		t.Errorf("nil before should treat all as new, got %d", len(got))
	}
}

func TestNewlyDispatched(t *testing.T) {
	before := &models.Snapshot{Routes: []models.Route{
		{ID: "r1", RouteProgress: models.RouteProgress{Status: models.RouteStatusPlanned}},
		{ID: "r2", RouteProgress: models.RouteProgress{Status: models.RouteStatusDispatched}},
	}}
	routes := []models.Route{
		{ID: "r1", DriverID: strPtr("driver-1"), RouteProgress: models.RouteProgress{Status: models.RouteStatusDispatched}},
		{ID: "r2", DriverID: strPtr("driver-1"), RouteProgress: models.RouteProgress{Status: models.RouteStatusDispatched}},
		{ID: "r3", RouteProgress: models.RouteProgress{Status: models.RouteStatusDispatched}},
		{ID: "r4", DriverID: strPtr("driver-2"), RouteProgress: models.RouteProgress{Status: models.RouteStatusInProgress}},
	}

	got := NewlyDispatched(before, models.SyncRequest{Routes: &routes})
	if len(got) != 1 || got[0].ID != "r1" {
		t.Errorf("NewlyDispatched = %+v", got)
	}
}

func TestSyncNotifier_Synced(t *testing.T) {
	hub := &fakeHub{}
	pusher := &fakePusher{}
	tokens := fakeTokens{"driver-1": {"tok-a", "tok-b"}}
	n := NewSyncNotifier(hub, pusher, tokens)

	before := &models.Snapshot{Drivers: []models.Driver{{ID: "driver-2", Name: "Sarah Williams"}}}
	msgs := []models.Message{
		{ID: "m1", FromID: "disp-1", ToID: "driver-1", Body: "Call the yard"},
		{ID: "m2", FromID: "driver-2", ToID: "driver-1", Body: "Running late"},
		{ID: "m3", FromID: "disp-1", ToID: "driver-9", Body: "No devices"},
		{ID: "m4", FromID: "disp-1", ToID: "broken", Body: "Lookup fails"},
	}
	routes := []models.Route{
		{ID: "r1", DriverID: strPtr("driver-1"), RouteProgress: models.RouteProgress{Status: models.RouteStatusDispatched}},
	}

	n.Synced(context.Background(), before, models.SyncRequest{Messages: &msgs, Routes: &routes})

	if len(hub.calls) != 1 || len(hub.calls[0]) != 2 {
		t.Fatalf("hub calls = %v", hub.calls)
	}
	if hub.calls[0][0] != models.CollectionRoutes || hub.calls[0][1] != models.CollectionMessages {
		t.Errorf("collections not in manifest order: %v", hub.calls[0])
	}
	if len(pusher.messages) != 2 || pusher.messages[0] != "m1" || pusher.messages[1] != "m2" {
		t.Errorf("pushed messages = %v", pusher.messages)
	}
	if pusher.senders[0] != "Dispatch" || pusher.senders[1] != "Sarah Williams" {
		t.Errorf("senders = %v", pusher.senders)
	}
	if len(pusher.routes) != 1 || pusher.routes[0] != "r1" {
		t.Errorf("pushed routes = %v", pusher.routes)
	}
}

func TestSyncNotifier_WithoutPush(t *testing.T) {
	hub := &fakeHub{}
	n := NewSyncNotifier(hub, nil, nil)
	jobs := []models.Job{{ID: "job-1"}}

	n.Synced(context.Background(), nil, models.SyncRequest{Jobs: &jobs})

	if len(hub.calls) != 1 || hub.calls[0][0] != models.CollectionJobs {
		t.Errorf("hub calls = %v", hub.calls)
	}
}

func TestPreview(t *testing.T) {
	if got := preview("short", 10); got != "short" {
		t.Errorf("preview = %q", got)
	}
	if got := preview("abcdefghijkl", 5); got != "abcd…" {
		t.Errorf("preview = %q", got)
	}
}
