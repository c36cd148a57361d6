package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"haulr-dispatch/internal/auth"
	"haulr-dispatch/internal/database"
	"haulr-dispatch/internal/middleware"
	"haulr-dispatch/internal/models"
	"haulr-dispatch/internal/remote"
	"haulr-dispatch/pkg/utils"
)

// DispatcherFinder looks up office accounts by email
type DispatcherFinder interface {
	DispatcherByEmail(ctx context.Context, email string) (*database.Dispatcher, error)
}

// qrDispatcherID is the user id carried by tokens issued for the shared dispatcher QR code
const qrDispatcherID = "dispatcher-qr"

// Login accepts driver username/pin, a driver or dispatcher QR token, or
// dispatcher email/password, and returns a signed token
func Login(store remote.Client, accounts DispatcherFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req remote.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		resp, err := authenticate(r.Context(), store, accounts, req)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			utils.JSON(w, http.StatusUnauthorized, remote.LoginResponse{OK: false})
			return
		}
		if err != nil {
			log.Printf("❌ Login failed: %v", err)
			utils.JSON(w, http.StatusInternalServerError, remote.LoginResponse{OK: false})
			return
		}

		token, err := middleware.IssueToken(middleware.UserClaims{
			UserID: resp.UserID,
			Name:   resp.Name,
			Role:   resp.Role,
		}, time.Now())
		if err != nil {
			log.Printf("❌ Failed to create token: %v", err)
			utils.JSON(w, http.StatusInternalServerError, remote.LoginResponse{OK: false})
			return
		}
		resp.OK = true
		resp.Token = token

		log.Printf("✅ Login successful: %s (%s)", resp.Name, resp.Role)
		utils.Success(w, resp)
	}
}

func authenticate(ctx context.Context, store remote.Client, accounts DispatcherFinder, req remote.LoginRequest) (*remote.LoginResponse, error) {
	switch {
	case req.Email != "":
		log.Printf("🔐 Dispatcher login attempt for: %s", req.Email)
		return dispatcherByPassword(ctx, accounts, req.Email, req.Password)

	case req.QRToken != "":
		log.Println("🔐 QR login attempt")
		snap, err := store.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		if driver, err := auth.DriverByQR(snap.Drivers, req.QRToken); err == nil {
			return driverResponse(driver), nil
		}
		if auth.IsDispatcherQR(snap.DispatcherSettings, req.QRToken) {
			return &remote.LoginResponse{UserID: qrDispatcherID, Name: "Dispatch", Role: auth.RoleDispatcher}, nil
		}
		log.Println("❌ QR token matched no driver or dispatcher")
		return nil, auth.ErrInvalidCredentials

	case req.Username != "":
		log.Printf("🔐 Driver login attempt for: %s", req.Username)
		snap, err := store.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		driver, err := auth.DriverByCredentials(snap.Drivers, req.Username, req.Pin)
		if err != nil {
			log.Printf("❌ Invalid credentials for: %s", req.Username)
			return nil, err
		}
		return driverResponse(driver), nil
	}
	return nil, auth.ErrInvalidCredentials
}

func dispatcherByPassword(ctx context.Context, accounts DispatcherFinder, email, password string) (*remote.LoginResponse, error) {
	if accounts == nil {
		return nil, auth.ErrInvalidCredentials
	}
	account, err := accounts.DispatcherByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, models.ErrNotFound) {
		log.Printf("❌ Dispatcher not found: %s", email)
		return nil, auth.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(password)); err != nil {
		log.Printf("❌ Invalid password for: %s", email)
		return nil, auth.ErrInvalidCredentials
	}
	return &remote.LoginResponse{UserID: account.ID, Name: account.Name, Role: auth.RoleDispatcher}, nil
}

func driverResponse(driver models.Driver) *remote.LoginResponse {
	driver.Pin = ""
	driver.QRToken = ""
	return &remote.LoginResponse{Driver: &driver, UserID: driver.ID, Name: driver.Name, Role: auth.RoleDriver}
}
