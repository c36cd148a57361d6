package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strconv"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"haulr-dispatch/internal/models"
)

// Pusher delivers device push notifications
type Pusher interface {
	SendMessageNotification(ctx context.Context, tokens []string, msg models.Message, fromName string) error
	SendRouteDispatchedNotification(ctx context.Context, tokens []string, route models.Route) error
}

var _ Pusher = (*FCMService)(nil)

// FCMService handles Firebase Cloud Messaging
type FCMService struct {
	client *messaging.Client
}

// NewFCMService creates a new FCM service instance from a credentials file
func NewFCMService(credentialsFile string) (*FCMService, error) {
	return newFCMService(option.WithCredentialsFile(credentialsFile))
}

// NewFCMServiceFromBase64 creates a new FCM service instance from base64-encoded credentials
// This is useful for cloud deployments where you can't upload files easily
func NewFCMServiceFromBase64(credentialsBase64 string) (*FCMService, error) {
	// Decode base64 credentials
	credentialsJSON, err := base64.StdEncoding.DecodeString(credentialsBase64)
	if err != nil {
		return nil, fmt.Errorf("error decoding base64 credentials: %w", err)
	}
	return newFCMService(option.WithCredentialsJSON(credentialsJSON))
}

func newFCMService(opt option.ClientOption) (*FCMService, error) {
	ctx := context.Background()

	// Initialize Firebase app
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	// Get messaging client
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client}, nil
}

// SendMessageNotification tells a driver a dispatcher message arrived
func (s *FCMService) SendMessageNotification(ctx context.Context, tokens []string, msg models.Message, fromName string) error {
	title := "New message"
	if fromName != "" {
		title = "Message from " + fromName
	}
	return s.sendMulticast(ctx, tokens, title, preview(msg.Body, 120), map[string]string{
		"type":       "message",
		"message_id": msg.ID,
		"from_id":    msg.FromID,
	})
}

// SendRouteDispatchedNotification tells a driver a route is ready to start
func (s *FCMService) SendRouteDispatchedNotification(ctx context.Context, tokens []string, route models.Route) error {
	return s.sendMulticast(ctx, tokens, "Route Dispatched!",
		fmt.Sprintf("%s has %d jobs. Open the app to start your route.", route.Name, len(route.JobIDs)),
		map[string]string{
			"type":       "route_dispatched",
			"route_id":   route.ID,
			"total_jobs": strconv.Itoa(len(route.JobIDs)),
		})
}

// sendMulticast sends the same message to multiple tokens
func (s *FCMService) sendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	if len(tokens) == 0 {
		return nil
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Sound:            "default",
				},
			},
		},
	}

	response, err := s.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending multicast message: %w", err)
	}

	log.Printf("✅ Multicast sent: %d success, %d failures", response.SuccessCount, response.FailureCount)
	return nil
}

func preview(body string, max int) string {
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	return string(runes[:max-1]) + "…"
}
