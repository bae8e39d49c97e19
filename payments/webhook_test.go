package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completedPayload = `{
  "id": "evt_1",
  "object": "event",
  "type": "checkout.session.completed",
  "created": 1700000000,
  "data": {"object": {
    "id": "cs_test_abc",
    "object": "checkout.session",
    "client_reference_id": "user_1",
    "metadata": {"event_id": "65f2d1e8a2b4a73d8e3b4b12", "user_id": "user_1"}
  }}
}`

func sign(t *testing.T, payload, secret string, at time.Time) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", at.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestWebhookVerifier_SignedPayload(t *testing.T) {
	v := NewWebhookVerifier("whsec_test", false)

	ev, err := v.Parse([]byte(completedPayload), sign(t, completedPayload, "whsec_test", time.Now()))
	require.NoError(t, err)

	c, ok, err := CompletionFrom(ev)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Completion{SessionID: "cs_test_abc", EventID: "65f2d1e8a2b4a73d8e3b4b12", UserID: "user_1"}, c)
}

func TestWebhookVerifier_BadSignature(t *testing.T) {
	v := NewWebhookVerifier("whsec_test", false)

	_, err := v.Parse([]byte(completedPayload), sign(t, completedPayload, "whsec_other", time.Now()))
	assert.True(t, errors.Is(err, ErrSignature), "got %v", err)

	_, err = v.Parse([]byte(completedPayload), "")
	assert.True(t, errors.Is(err, ErrSignature), "got %v", err)
}

func TestWebhookVerifier_InsecureMode(t *testing.T) {
	v := NewWebhookVerifier("", true)
	assert.True(t, v.Insecure())

	ev, err := v.Parse([]byte(completedPayload), "")
	require.NoError(t, err)
	_, ok, err := CompletionFrom(ev)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = v.Parse([]byte(`{not json`), "")
	assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
}

func TestWebhookVerifier_NotConfigured(t *testing.T) {
	v := NewWebhookVerifier("", false)
	assert.False(t, v.Insecure())

	_, err := v.Parse([]byte(completedPayload), "")
	assert.ErrorIs(t, err, ErrVerificationNotConfigured)
}

func TestCompletionFrom_IgnoresOtherTypes(t *testing.T) {
	ev, err := NewWebhookVerifier("", true).Parse([]byte(`{"id":"evt_2","type":"payment_intent.created","data":{"object":{"id":"pi_1"}}}`), "")
	require.NoError(t, err)

	_, ok, err := CompletionFrom(ev)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestCompletionFrom_MissingMetadata(t *testing.T) {
	payload := `{"id":"evt_3","type":"checkout.session.completed","data":{"object":{"id":"cs_1","object":"checkout.session","metadata":{}}}}`
	ev, err := NewWebhookVerifier("", true).Parse([]byte(payload), "")
	require.NoError(t, err)

	_, ok, err := CompletionFrom(ev)
	assert.True(t, ok)
	assert.ErrorIs(t, err, ErrMalformed)
}
