package notification

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookSenderSignsPayload(t *testing.T) {
	payload := []byte(`{"title":"3 new jobs"}`)
	secret := "user-secret"

	var gotSignature string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("X-JobRadar-Signature")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := NewWebhookSender()
	err := sender.SendWebhook(context.Background(), srv.URL, secret, payload)
	require.NoError(t, err)

	assert.Equal(t, payload, gotBody)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	assert.Equal(t, "v1,"+hex.EncodeToString(mac.Sum(nil)), gotSignature)
}

func TestWebhookSenderNoSecretNoSignature(t *testing.T) {
	var gotSignature string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("X-JobRadar-Signature")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := NewWebhookSender()
	err := sender.SendWebhook(context.Background(), srv.URL, "", []byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, gotSignature)
}

func TestWebhookSenderRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sender := NewWebhookSender()
	err := sender.SendWebhook(context.Background(), srv.URL, "s", []byte(`{}`))
	assert.Error(t, err)
}
