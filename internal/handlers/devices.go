package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"haulr-dispatch/internal/middleware"
	"haulr-dispatch/pkg/utils"
)

// DeviceRegistry stores push tokens
type DeviceRegistry interface {
	SaveDeviceToken(ctx context.Context, userID, token, platform string) error
}

type registerDeviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// RegisterDevice stores the caller's push token
func RegisterDevice(registry DeviceRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.Error(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req registerDeviceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		req.Token = strings.TrimSpace(req.Token)
		req.Platform = strings.ToLower(strings.TrimSpace(req.Platform))
		if req.Token == "" {
			utils.Error(w, http.StatusBadRequest, "token is required")
			return
		}
		if req.Platform != "ios" && req.Platform != "android" {
			utils.Error(w, http.StatusBadRequest, "platform must be ios or android")
			return
		}

		if err := registry.SaveDeviceToken(r.Context(), user.UserID, req.Token, req.Platform); err != nil {
			log.Printf("❌ Failed to register device for %s: %v", user.UserID, err)
			utils.Error(w, http.StatusInternalServerError, "Failed to register device")
			return
		}

		log.Printf("📱 Registered %s device for %s", req.Platform, user.UserID)
		utils.Success(w, map[string]bool{"ok": true})
	}
}
