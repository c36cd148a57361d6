package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"haulr-dispatch/internal/models"
	"haulr-dispatch/internal/remote"
	"haulr-dispatch/pkg/utils"
)

// maxSyncBody caps a sync upload. A full breadcrumb history is the largest payload.
const maxSyncBody = 32 << 20

// SyncListener is told about every stored sync. before is the state prior to the write.
type SyncListener interface {
	Synced(ctx context.Context, before *models.Snapshot, req models.SyncRequest)
}

// GetAll returns every synced collection
func GetAll(store remote.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := store.GetAll(r.Context())
		if err != nil {
			log.Printf("❌ getAll failed: %v", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to load collections")
			return
		}
		utils.Success(w, snap)
	}
}

// Sync stores the collections present in the body and leaves the rest untouched
func Sync(store remote.Client, listener SyncListener) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSyncBody))
		if err != nil {
			utils.Error(w, http.StatusRequestEntityTooLarge, "Sync body too large")
			return
		}

		req, err := models.DecodeSyncRequest(body)
		if err == nil {
			err = req.Validate()
		}
		if err != nil {
			log.Printf("❌ Rejected sync: %v", err)
			utils.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		var before *models.Snapshot
		if listener != nil {
			before, err = store.GetAll(r.Context())
			if err != nil {
				log.Printf("⚠️  Could not read state before sync: %v", err)
			}
		}

		ack, err := store.Sync(r.Context(), req)
		if errors.Is(err, models.ErrValidation) {
			utils.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			log.Printf("❌ Sync failed: %v", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to store collections")
			return
		}

		log.Printf("✅ Synced %v", ack.Collections)
		if listener != nil {
			listener.Synced(r.Context(), before, req)
		}
		utils.Success(w, ack)
	}
}
