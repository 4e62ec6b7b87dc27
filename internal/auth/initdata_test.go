package auth

import (
	"errors"
	"net/url"
	"strconv"
	"testing"
	"time"
)

func launchValues(userID string, at time.Time) url.Values {
	return url.Values{
		"user":      {`{"id":` + userID + `,"first_name":"Asha"}`},
		"auth_date": {strconv.FormatInt(at.Unix(), 10)},
		"query_id":  {"AAH-test"},
	}
}

func TestInitDataVerifierAcceptsSignedData(t *testing.T) {
	v := NewInitDataVerifier("123:bot-token", time.Hour)

	id, err := v.Verify(v.Sign(launchValues("1001", time.Now())))
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if id != "1001" {
		t.Errorf("expected user 1001, got %s", id)
	}
}

func TestInitDataVerifierRejections(t *testing.T) {
	v := NewInitDataVerifier("123:bot-token", time.Hour)
	other := NewInitDataVerifier("456:other-bot", time.Hour)
	now := time.Now()

	tampered, err := url.ParseQuery(v.Sign(launchValues("1001", now)))
	if err != nil {
		t.Fatalf("failed to parse signed data: %v", err)
	}
	tampered.Set("user", `{"id":2002,"first_name":"Asha"}`)

	tests := []struct {
		name     string
		initData string
	}{
		{"empty", ""},
		{"unsigned", launchValues("1001", now).Encode()},
		{"tampered user", tampered.Encode()},
		{"other bot", other.Sign(launchValues("1001", now))},
		{"expired", v.Sign(launchValues("1001", now.Add(-2*time.Hour)))},
		{"no user", v.Sign(url.Values{"auth_date": {strconv.FormatInt(now.Unix(), 10)}})},
	}

	for _, tt := range tests {
		if _, err := v.Verify(tt.initData); !errors.Is(err, ErrInvalidInitData) {
			t.Errorf("%s: expected ErrInvalidInitData, got %v", tt.name, err)
		}
	}
}
