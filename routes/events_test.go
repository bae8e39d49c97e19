package routes

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"eventapi/models"
	"eventapi/utils"
)

func TestCreateEvent_ThenRegister(t *testing.T) {
	env := setup(t)

	w := env.do(t, http.MethodPost, "/api/events/create", map[string]any{
		"title": "Tech Meetup", "date": "2025-04-01", "organizer_id": "org_1", "image_url": "a.png",
	}, nil)
	wantStatus(t, w, http.StatusCreated)
	id := decode[map[string]any](t, w)["event_id"].(string)

	w = env.do(t, http.MethodGet, "/api/events/all", nil, nil)
	wantStatus(t, w, http.StatusOK)
	list := decode[[]models.Event](t, w)
	if len(list) != 1 || list[0].AttendeeCount != 0 || list[0].Title != "Tech Meetup" {
		t.Fatalf("unexpected list %+v", list)
	}
	if list[0].ImageURL != "http://api.test"+utils.ImagesRoute+"a.png" {
		t.Fatalf("image url not absolute: %q", list[0].ImageURL)
	}

	w = env.do(t, http.MethodPost, "/api/events/update-attendees/"+id, map[string]string{"user_id": "u1"}, nil)
	wantStatus(t, w, http.StatusOK)

	// the list was cached before the registration and must have been purged
	w = env.do(t, http.MethodGet, "/api/events/all", nil, nil)
	if w.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("want MISS after registration, got %q", w.Header().Get("X-Cache"))
	}
	list = decode[[]models.Event](t, w)
	if list[0].AttendeeCount != 1 || !cmp.Equal(list[0].Attendees, []string{"u1"}) {
		t.Fatalf("after register: %+v", list[0])
	}
}

func TestCreateEvent_Validation(t *testing.T) {
	env := setup(t)
	for _, body := range []any{
		map[string]any{"date": "2025-04-01"},
		map[string]any{"title": "x"},
		map[string]any{"title": "x", "date": "2025-04-01", "price": -1},
	} {
		w := env.do(t, http.MethodPost, "/api/events/create", body, nil)
		wantStatus(t, w, http.StatusBadRequest)
	}
}

func TestCreateEvent_OrganizerFromToken(t *testing.T) {
	env := setup(t)
	w := env.do(t, http.MethodPost, "/api/events/create",
		map[string]any{"title": "x", "date": "2025-04-01"}, header{"Authorization": "Bearer tok_u1"})
	wantStatus(t, w, http.StatusCreated)

	w = env.do(t, http.MethodGet, "/api/events/my-events/u1", nil, nil)
	wantStatus(t, w, http.StatusOK)
	if n := len(decode[[]models.Event](t, w)); n != 1 {
		t.Fatalf("want 1 event for organizer, got %d", n)
	}
}

func TestGetEvent(t *testing.T) {
	env := setup(t)
	id := env.events.Seed(models.Event{Title: "One", Date: "2025-01-01"})

	w := env.do(t, http.MethodGet, "/api/events/"+id, nil, nil)
	wantStatus(t, w, http.StatusOK)
	if got := decode[models.Event](t, w); got.Title != "One" || got.Attendees == nil {
		t.Fatalf("unexpected %+v", got)
	}

	wantStatus(t, env.do(t, http.MethodGet, "/api/events/not-hex", nil, nil), http.StatusBadRequest)
	wantStatus(t, env.do(t, http.MethodGet, "/api/events/65f2d1e8a2b4a73d8e3b4b12", nil, nil), http.StatusNotFound)
}

func TestUpdateImages(t *testing.T) {
	env := setup(t)
	id := env.events.Seed(models.Event{Title: "One", Date: "2025-01-01"})

	w := env.do(t, http.MethodPut, "/api/events/update-images/"+id, map[string]any{
		"banner_image": "b.png", "gallery_images": []string{"g1.png", "g2.png"},
	}, nil)
	wantStatus(t, w, http.StatusOK)

	stored, _ := env.events.Snapshot(id)
	if stored.BannerImage != "b.png" || len(stored.GalleryImages) != 2 || stored.ImageURL != "" {
		t.Fatalf("unexpected stored media %+v", stored)
	}

	wantStatus(t, env.do(t, http.MethodPut, "/api/events/update-images/"+id, map[string]any{}, nil), http.StatusBadRequest)
	wantStatus(t, env.do(t, http.MethodPut, "/api/events/update-images/65f2d1e8a2b4a73d8e3b4b12",
		map[string]any{"image_url": "x.png"}, nil), http.StatusNotFound)
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/events/upload-image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadAndServeImage(t *testing.T) {
	env := setup(t)

	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, uploadRequest(t, "poster.png", "fake-png"))
	wantStatus(t, w, http.StatusOK)
	got := decode[map[string]string](t, w)
	ref := got["image_url"]
	if !strings.HasSuffix(ref, ".png") || got["url"] != "http://api.test"+utils.ImagesRoute+ref {
		t.Fatalf("unexpected upload response %v", got)
	}

	w = env.do(t, http.MethodGet, utils.ImagesRoute+ref, nil, nil)
	wantStatus(t, w, http.StatusOK)
	if w.Body.String() != "fake-png" {
		t.Fatalf("served %q", w.Body.String())
	}

	wantStatus(t, env.do(t, http.MethodGet, utils.ImagesRoute+"missing.png", nil, nil), http.StatusNotFound)
	wantStatus(t, env.do(t, http.MethodGet, utils.ImagesRoute+"notes.txt", nil, nil), http.StatusBadRequest)
}

func TestUploadImage_Rejects(t *testing.T) {
	env := setup(t)

	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, uploadRequest(t, "script.sh", "echo"))
	wantStatus(t, w, http.StatusBadRequest)

	w = httptest.NewRecorder()
	env.server.ServeHTTP(w, uploadRequest(t, "big.png", strings.Repeat("x", 2<<20)))
	wantStatus(t, w, http.StatusRequestEntityTooLarge)
}

func TestUploadImage_DailyQuota(t *testing.T) {
	env := setup(t)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		env.server.ServeHTTP(w, uploadRequest(t, "a.png", "x"))
		wantStatus(t, w, http.StatusOK)
	}
	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, uploadRequest(t, "a.png", "x"))
	wantStatus(t, w, http.StatusTooManyRequests)
}
