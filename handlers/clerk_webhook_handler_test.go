package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func svixSignedRequest(secret string, body []byte) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(body))
	req.Header.Set("svix-id", "msg_1")
	req.Header.Set("svix-timestamp", "1750000000")

	signedContent := fmt.Sprintf("msg_1.1750000000.%s", string(body))
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedContent))
	req.Header.Set("svix-signature", "v1,"+hex.EncodeToString(mac.Sum(nil)))
	return req
}

func TestVerifySvixSignature(t *testing.T) {
	t.Setenv("CLERK_WEBHOOK_SECRET", "test_secret")

	body := []byte(`{"type":"user.created","data":{"id":"clerk_1"}}`)
	req := svixSignedRequest("test_secret", body)

	assert.True(t, verifySvixSignature(req, body))
}

func TestVerifySvixSignatureWrongSecret(t *testing.T) {
	t.Setenv("CLERK_WEBHOOK_SECRET", "test_secret")

	body := []byte(`{"type":"user.created","data":{"id":"clerk_1"}}`)
	req := svixSignedRequest("other_secret", body)

	assert.False(t, verifySvixSignature(req, body))
}

func TestVerifySvixSignatureTamperedBody(t *testing.T) {
	t.Setenv("CLERK_WEBHOOK_SECRET", "test_secret")

	body := []byte(`{"type":"user.created","data":{"id":"clerk_1"}}`)
	req := svixSignedRequest("test_secret", body)

	assert.False(t, verifySvixSignature(req, []byte(`{"type":"user.deleted"}`)))
}

func TestVerifySvixSignatureMissingHeaders(t *testing.T) {
	t.Setenv("CLERK_WEBHOOK_SECRET", "test_secret")

	body := []byte(`{}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(body))

	assert.False(t, verifySvixSignature(req, body))
}
