package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"haulr-dispatch/internal/models"
)

// ChangeMessage is pushed by the backend after a sync lands
type ChangeMessage struct {
	Type        string              `json:"type"`
	Collections []models.Collection `json:"collections"`
	Timestamp   string              `json:"timestamp"`
}

// ChangeTypeSynced announces that collections were written on the backend
const ChangeTypeSynced = "collections_synced"

const (
	watchRedialMin = time.Second
	watchRedialMax = 30 * time.Second
)

// Watch subscribes to the backend change feed and calls onChange for every
// announced sync until ctx is cancelled. Connection failures are retried with
// backoff. The feed is a hint to refetch early, polling stays authoritative.
func (c *HTTPClient) Watch(ctx context.Context, onChange func([]models.Collection)) {
	delay := watchRedialMin
	for {
		err := c.watchOnce(ctx, onChange)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Printf("⚠️  change feed disconnected: %v (retrying in %s)", err, delay)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > watchRedialMax {
			delay = watchRedialMax
		}
	}
}

func (c *HTTPClient) watchOnce(ctx context.Context, onChange func([]models.Collection)) error {
	wsURL := *c.baseURL
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	wsURL.Path = "/ws"
	if token := c.bearer(); token != "" {
		q := wsURL.Query()
		q.Set("token", token)
		wsURL.RawQuery = q.Encode()
	}

	header := http.Header{}
	header.Set("User-Agent", c.userAgent)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL.String(), header)
	if err != nil {
		return fmt.Errorf("dial change feed: %w", err)
	}
	defer conn.Close()

	// unblock ReadMessage when ctx ends
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read change feed: %w", err)
		}
		var msg ChangeMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Invalid change message: %v", err)
			continue
		}
		if msg.Type == ChangeTypeSynced && onChange != nil {
			onChange(msg.Collections)
		}
	}
}
