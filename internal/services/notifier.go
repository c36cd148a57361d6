package services

import (
	"context"
	"log"
	"time"

	"haulr-dispatch/internal/models"
)

const pushTimeout = 5 * time.Second

// Broadcaster announces landed syncs on the change feed
type Broadcaster interface {
	CollectionsSynced(collections []models.Collection)
}

// TokenSource resolves the push tokens registered by a user
type TokenSource interface {
	DeviceTokensFor(ctx context.Context, userID string) ([]string, error)
}

// SyncNotifier fans a landed sync out to connected devices and, when push is
// configured, to the drivers it concerns
type SyncNotifier struct {
	hub    Broadcaster
	pusher Pusher
	tokens TokenSource
}

// NewSyncNotifier builds a notifier. pusher may be nil when FCM is not configured.
func NewSyncNotifier(hub Broadcaster, pusher Pusher, tokens TokenSource) *SyncNotifier {
	return &SyncNotifier{hub: hub, pusher: pusher, tokens: tokens}
}

// Synced runs after req was stored. before is the state prior to the write.
func (n *SyncNotifier) Synced(ctx context.Context, before *models.Snapshot, req models.SyncRequest) {
	if n.hub != nil {
		n.hub.CollectionsSynced(req.Collections())
	}
	if n.pusher == nil || n.tokens == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()

	for _, msg := range NewMessages(before, req) {
		tokens := n.tokensFor(ctx, msg.ToID)
		if len(tokens) == 0 {
			continue
		}
		if err := n.pusher.SendMessageNotification(ctx, tokens, msg, senderName(before, msg.FromID)); err != nil {
			log.Printf("⚠️  Failed to push message %s: %v", msg.ID, err)
		}
	}

	for _, route := range NewlyDispatched(before, req) {
		tokens := n.tokensFor(ctx, *route.DriverID)
		if len(tokens) == 0 {
			continue
		}
		if err := n.pusher.SendRouteDispatchedNotification(ctx, tokens, route); err != nil {
			log.Printf("⚠️  Failed to push route %s: %v", route.ID, err)
		}
	}
}

func (n *SyncNotifier) tokensFor(ctx context.Context, userID string) []string {
	if userID == "" {
		return nil
	}
	tokens, err := n.tokens.DeviceTokensFor(ctx, userID)
	if err != nil {
		log.Printf("⚠️  Failed to load device tokens for %s: %v", userID, err)
		return nil
	}
	return tokens
}

// NewMessages returns the messages in req that before did not hold
func NewMessages(before *models.Snapshot, req models.SyncRequest) []models.Message {
	if req.Messages == nil {
		return nil
	}
	known := make(map[string]bool)
	if before != nil {
		for _, m := range before.Messages {
			known[m.ID] = true
		}
	}
	var out []models.Message
	for _, m := range *req.Messages {
		if !known[m.ID] {
			out = append(out, m)
		}
	}
	return out
}

// NewlyDispatched returns routes in req that became DISPATCHED with a driver assigned
func NewlyDispatched(before *models.Snapshot, req models.SyncRequest) []models.Route {
	if req.Routes == nil {
		return nil
	}
	prior := make(map[string]models.RouteStatus)
	if before != nil {
		for _, r := range before.Routes {
			prior[r.ID] = r.Status
		}
	}
	var out []models.Route
	for _, r := range *req.Routes {
		if r.Status != models.RouteStatusDispatched || r.DriverID == nil || *r.DriverID == "" {
			continue
		}
		if prior[r.ID] == models.RouteStatusDispatched {
			continue
		}
		out = append(out, r)
	}
	return out
}

func senderName(snap *models.Snapshot, id string) string {
	if snap == nil {
		return ""
	}
	for _, d := range snap.Drivers {
		if d.ID == id {
			return d.Name
		}
	}
	return "Dispatch"
}
