package auth

import (
	"errors"
	"testing"

	"haulr-dispatch/internal/models"
	"haulr-dispatch/internal/seed"
)

func TestDriverByCredentials(t *testing.T) {
	hashed, err := HashPin("9999")
	if err != nil {
		t.Fatalf("HashPin: %v", err)
	}
	drivers := append(seed.Drivers(),
		models.Driver{ID: "driver-9", Name: "Hash", Username: "hash", Pin: hashed, Active: true},
		models.Driver{ID: "driver-10", Name: "Gone", Username: "gone", Pin: "0000", Active: false},
	)

	tests := []struct {
		name     string
		username string
		pin      string
		wantID   string
	}{
		{"flat pin", "mike", "1234", "driver-1"},
		{"username case and space", "  Sarah ", "2345", "driver-2"},
		{"wrong pin", "mike", "4321", ""},
		{"hashed pin", "hash", "9999", "driver-9"},
		{"hashed pin wrong", "hash", "9998", ""},
		{"inactive driver", "gone", "0000", ""},
		{"unknown user", "nobody", "1234", ""},
		{"empty pin", "mike", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DriverByCredentials(drivers, tt.username, tt.pin)
			if tt.wantID == "" {
				if !errors.Is(err, ErrInvalidCredentials) {
					t.Errorf("err = %v, want ErrInvalidCredentials", err)
				}
				return
			}
			if err != nil || got.ID != tt.wantID {
				t.Errorf("got %s, %v; want %s", got.ID, err, tt.wantID)
			}
		})
	}
}

func TestDriverByQR(t *testing.T) {
	drivers := seed.Drivers()
	want := drivers[1]

	got, err := DriverByQR(drivers, want.QRToken)
	if err != nil || got.ID != want.ID {
		t.Errorf("DriverByQR = %s, %v; want %s", got.ID, err, want.ID)
	}
	if _, err := DriverByQR(drivers, ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("empty token err = %v", err)
	}
	if _, err := DriverByQR(drivers, "not-a-token"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown token err = %v", err)
	}
}

func TestIsDispatcherQR(t *testing.T) {
	settings := &models.DispatcherSettings{ID: models.DispatcherSettingsID, QRToken: "dispatch-qr"}
	if !IsDispatcherQR(settings, "dispatch-qr") {
		t.Error("matching token rejected")
	}
	if IsDispatcherQR(settings, "other") || IsDispatcherQR(nil, "dispatch-qr") || IsDispatcherQR(&models.DispatcherSettings{}, "") {
		t.Error("non-matching token accepted")
	}
}
