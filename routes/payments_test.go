package routes

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"eventapi/models"
	"eventapi/payments"
)

func TestCreatePayment(t *testing.T) {
	env := setup(t)
	id := env.events.Seed(models.Event{Title: "Tech Meetup", Date: "2030-01-01", Attendees: []string{"u1"}})

	w := env.do(t, http.MethodPost, "/api/events/create-payment",
		`{"event_id":"`+id+`","user_id":"u2","price":"19.99","event_title":"Tech Meetup"}`, nil)
	wantStatus(t, w, http.StatusOK)
	if got := decode[map[string]string](t, w)["id"]; got != "cs_test_1" {
		t.Fatalf("session id %q", got)
	}
	if env.provider.last.AmountMinor != 1999 || env.provider.last.UserID != "u2" {
		t.Fatalf("unexpected provider params %+v", env.provider.last)
	}

	cases := []struct {
		body string
		code int
	}{
		{`{"user_id":"u2","price":10}`, http.StatusBadRequest},
		{`{"event_id":"` + id + `","user_id":"u2","price":0}`, http.StatusBadRequest},
		{`{"event_id":"` + id + `","user_id":"u2","price":"ten"}`, http.StatusBadRequest},
		{`{"event_id":"` + id + `","user_id":"u2","price":1e300}`, http.StatusBadRequest},
		{`{"event_id":"` + id + `","user_id":"u2"}`, http.StatusBadRequest},
		{`{"event_id":"` + id + `","user_id":"u1","price":10}`, http.StatusConflict},
		{`{"event_id":"65f2d1e8a2b4a73d8e3b4b12","user_id":"u2","price":10}`, http.StatusNotFound},
		{`not json`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		w := env.do(t, http.MethodPost, "/api/events/create-payment", tc.body, nil)
		if w.Code != tc.code {
			t.Errorf("%s: want %d, got %d (%s)", tc.body, tc.code, w.Code, w.Body.String())
		}
	}
	if env.provider.calls != 1 {
		t.Fatalf("rejected requests must not reach the provider, calls=%d", env.provider.calls)
	}
}

func TestCreatePayment_ProviderDown(t *testing.T) {
	env := setup(t)
	env.provider.err = errors.New("timeout")
	id := env.events.Seed(models.Event{Title: "x"})

	w := env.do(t, http.MethodPost, "/api/events/create-payment", `{"event_id":"`+id+`","user_id":"u2","price":5}`, nil)
	wantStatus(t, w, http.StatusInternalServerError)
}

func TestUpdateAttendees_Idempotent(t *testing.T) {
	env := setup(t)
	id := env.events.Seed(models.Event{Title: "x", Date: "2030-01-01"})
	path := "/api/events/update-attendees/" + id

	for i := 0; i < 3; i++ {
		w := env.do(t, http.MethodPost, path, map[string]string{"user_id": "u1", "session_id": "cs_1"}, nil)
		wantStatus(t, w, http.StatusOK)
		body := decode[map[string]any](t, w)
		if body["attendee_count"] != float64(1) {
			t.Fatalf("call %d: attendee_count %v", i, body["attendee_count"])
		}
		if body["already_registered"] != (i > 0) {
			t.Fatalf("call %d: already_registered %v", i, body["already_registered"])
		}
	}

	wantStatus(t, env.do(t, http.MethodPost, path, map[string]string{}, nil), http.StatusBadRequest)
	wantStatus(t, env.do(t, http.MethodPost, "/api/events/update-attendees/zzz", map[string]string{"user_id": "u1"}, nil), http.StatusBadRequest)
	wantStatus(t, env.do(t, http.MethodPost, "/api/events/update-attendees/65f2d1e8a2b4a73d8e3b4b12", map[string]string{"user_id": "u1"}, nil), http.StatusNotFound)
}

func completedEvent(eventID, userID, sessionID string) string {
	return fmt.Sprintf(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":%q,"object":"checkout.session","metadata":{"event_id":%q,"user_id":%q}}}}`,
		sessionID, eventID, userID)
}

func TestWebhook_InsecureModeAppliesOnce(t *testing.T) {
	env := setup(t)
	id := env.events.Seed(models.Event{Title: "x", Date: "2030-01-01"})
	payload := completedEvent(id, "u1", "cs_abc")

	for i := 0; i < 3; i++ {
		w := env.do(t, http.MethodPost, "/api/events/webhook", payload, nil)
		wantStatus(t, w, http.StatusOK)
	}

	// the client redirect arriving after the webhook is a no-op too
	w := env.do(t, http.MethodPost, "/api/events/update-attendees/"+id, map[string]string{"user_id": "u1", "session_id": "cs_abc"}, nil)
	wantStatus(t, w, http.StatusOK)

	stored, _ := env.events.Snapshot(id)
	if stored.AttendeeCount != 1 || len(stored.PaymentSessions) != 1 || stored.PaymentSessions[0] != "cs_abc" {
		t.Fatalf("unexpected state %+v", stored)
	}
}

func TestWebhook_Outcomes(t *testing.T) {
	env := setup(t)
	id := env.events.Seed(models.Event{Title: "x"})

	cases := []struct {
		name    string
		payload string
		code    int
	}{
		{"other event type", `{"id":"evt_2","type":"payment_intent.created","data":{"object":{"id":"pi_1"}}}`, http.StatusOK},
		{"missing metadata", `{"id":"evt_3","type":"checkout.session.completed","data":{"object":{"id":"cs_1","metadata":{}}}}`, http.StatusBadRequest},
		{"malformed", `{"id":`, http.StatusBadRequest},
		{"unknown event", completedEvent("65f2d1e8a2b4a73d8e3b4b12", "u1", "cs_2"), http.StatusOK},
		{"bad event id", completedEvent("nope", "u1", "cs_3"), http.StatusBadRequest},
		{"applies", completedEvent(id, "u1", "cs_4"), http.StatusOK},
	}
	for _, tc := range cases {
		w := env.do(t, http.MethodPost, "/api/events/webhook", tc.payload, nil)
		if w.Code != tc.code {
			t.Errorf("%s: want %d, got %d (%s)", tc.name, tc.code, w.Code, w.Body.String())
		}
	}
}

func TestWebhook_StoreFailureIsRetried(t *testing.T) {
	env := setup(t)
	id := env.events.Seed(models.Event{Title: "x"})
	env.events.Err = errors.New("primary stepped down")

	w := env.do(t, http.MethodPost, "/api/events/webhook", completedEvent(id, "u1", "cs_1"), nil)
	wantStatus(t, w, http.StatusInternalServerError)
}

func stripeSignature(payload, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestWebhook_SignedMode(t *testing.T) {
	env := setup(t, func(d *Deps) { d.Webhooks = payments.NewWebhookVerifier("whsec_test", false) })
	id := env.events.Seed(models.Event{Title: "x"})
	payload := completedEvent(id, "u1", "cs_1")

	w := env.do(t, http.MethodPost, "/api/events/webhook", payload, header{payments.SignatureHeader: stripeSignature(payload, "whsec_other")})
	wantStatus(t, w, http.StatusBadRequest)
	if stored, _ := env.events.Snapshot(id); len(stored.Attendees) != 0 {
		t.Fatal("unverified delivery must not register anyone")
	}

	w = env.do(t, http.MethodPost, "/api/events/webhook", payload, header{payments.SignatureHeader: stripeSignature(payload, "whsec_test")})
	wantStatus(t, w, http.StatusOK)
	if stored, _ := env.events.Snapshot(id); len(stored.Attendees) != 1 {
		t.Fatalf("want one attendee, got %v", stored.Attendees)
	}
}

func TestWebhook_NotConfigured(t *testing.T) {
	env := setup(t, func(d *Deps) { d.Webhooks = payments.NewWebhookVerifier("", false) })
	w := env.do(t, http.MethodPost, "/api/events/webhook", completedEvent("x", "u1", "cs_1"), nil)
	wantStatus(t, w, http.StatusInternalServerError)
}

func TestWebhook_PayloadTooLarge(t *testing.T) {
	env := setup(t)
	w := env.do(t, http.MethodPost, "/api/events/webhook", `{"pad":"`+strings.Repeat("x", int(payments.MaxBodyBytes))+`"}`, nil)
	wantStatus(t, w, http.StatusRequestEntityTooLarge)
}
