package routes

import (
	"net/http"
	"testing"

	"eventapi/models"
)

func TestComments_Lifecycle(t *testing.T) {
	env := setup(t)
	id := env.events.Seed(models.Event{Title: "x"})
	base := "/api/events/" + id + "/comments"

	w := env.do(t, http.MethodPost, base, map[string]string{"text": "see you there", "user_name": "Ada"}, header{"Authorization": "Bearer tok_u1"})
	wantStatus(t, w, http.StatusCreated)
	c := decode[struct {
		Comment models.Comment `json:"comment"`
	}](t, w).Comment
	if c.UserID != "u1" || c.UserName != "Ada" || c.ID == "" {
		t.Fatalf("unexpected comment %+v", c)
	}

	w = env.do(t, http.MethodPost, base, map[string]string{"text": "anon here"}, nil)
	wantStatus(t, w, http.StatusCreated)

	w = env.do(t, http.MethodGet, base, nil, nil)
	wantStatus(t, w, http.StatusOK)
	list := decode[[]models.Comment](t, w)
	if len(list) != 2 || list[1].UserName != "Anonymous" {
		t.Fatalf("unexpected comments %+v", list)
	}

	// only the author may delete
	wantStatus(t, env.do(t, http.MethodDelete, base+"/"+c.ID, nil, nil), http.StatusUnauthorized)
	wantStatus(t, env.do(t, http.MethodDelete, base+"/"+c.ID, nil, header{"Authorization": "Bearer tok_u2"}), http.StatusForbidden)
	wantStatus(t, env.do(t, http.MethodDelete, base+"/"+c.ID, nil, header{"Authorization": "Bearer tok_u1"}), http.StatusOK)
	wantStatus(t, env.do(t, http.MethodDelete, base+"/"+c.ID, nil, header{"Authorization": "Bearer tok_u1"}), http.StatusNotFound)

	stored, _ := env.events.Snapshot(id)
	if len(stored.Comments) != 1 {
		t.Fatalf("want 1 comment left, got %d", len(stored.Comments))
	}
}

func TestComments_Validation(t *testing.T) {
	env := setup(t)
	id := env.events.Seed(models.Event{Title: "x"})

	wantStatus(t, env.do(t, http.MethodPost, "/api/events/"+id+"/comments", map[string]string{"text": "  "}, nil), http.StatusBadRequest)
	wantStatus(t, env.do(t, http.MethodPost, "/api/events/65f2d1e8a2b4a73d8e3b4b12/comments", map[string]string{"text": "hi"}, nil), http.StatusNotFound)
	wantStatus(t, env.do(t, http.MethodGet, "/api/events/bad/comments", nil, nil), http.StatusBadRequest)
}
