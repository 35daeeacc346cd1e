package internal

import (
	"strings"
	"testing"
	"time"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Remote.Timeout() != 10*time.Second {
		t.Errorf("timeout = %v", cfg.Remote.Timeout())
	}
	if cfg.Calendar.Weekday() != time.Sunday {
		t.Errorf("week start = %v", cfg.Calendar.Weekday())
	}
}

func TestRemoteConfig_RequiresBaseURLAndUser(t *testing.T) {
	cfg := RemoteConfig{UserID: "u1", TimeoutSeconds: 10}
	if err := cfg.Validate(); err == nil {
		t.Error("missing base_url should fail")
	}
	cfg = RemoteConfig{BaseURL: "http://localhost:9000", TimeoutSeconds: 10}
	if err := cfg.Validate(); err == nil {
		t.Error("missing user_id should fail")
	}
}

func TestCalendarConfig_WeekStartBounds(t *testing.T) {
	for _, ws := range []int{0, 6} {
		cfg := CalendarConfig{WeekStart: ws}
		if err := cfg.Validate(); err != nil {
			t.Errorf("week_start %d should pass: %v", ws, err)
		}
	}
	cfg := CalendarConfig{WeekStart: 7}
	if err := cfg.Validate(); err == nil {
		t.Error("week_start 7 should fail")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestHTTPConfig_Address(t *testing.T) {
	cfg := HTTPConfig{Port: 8080}
	if cfg.Address() != ":8080" {
		t.Errorf("address = %q", cfg.Address())
	}
}
