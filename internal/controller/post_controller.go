package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/plumapost/pluma-backend/internal/apperrors"
	"github.com/plumapost/pluma-backend/internal/model"
	"github.com/plumapost/pluma-backend/internal/publish"
	"github.com/plumapost/pluma-backend/internal/repository"
)

type PostController struct {
	Posts      *repository.PostRepository
	Deliveries *repository.DeliveryRepository
	Publisher  *publish.PostPublisher
	Logger     *logrus.Logger
}

func (c *PostController) Create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Body        string  `json:"body"`
		Hashtags    string  `json:"hashtags"`
		ScheduledAt *string `json:"scheduled_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	post := &model.Post{
		Body:     body.Body,
		Hashtags: body.Hashtags,
		Status:   model.ContentDraft,
	}
	if body.ScheduledAt != nil {
		t, err := time.Parse(time.RFC3339, *body.ScheduledAt)
		if err != nil {
			http.Error(w, "invalid scheduled_at", http.StatusBadRequest)
			return
		}
		post.ScheduledAt = &t
		post.Status = model.ContentScheduled
	}

	if err := c.Posts.Create(post); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, post)
}

func (c *PostController) LinkAccount(w http.ResponseWriter, r *http.Request) {
	postID, err1 := strconv.Atoi(chi.URLParam(r, "id"))
	accountID, err2 := strconv.Atoi(chi.URLParam(r, "accountID"))
	if err1 != nil || err2 != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := c.Posts.LinkAccount(postID, accountID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *PostController) Publish(w http.ResponseWriter, r *http.Request) {
	postID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid post id", http.StatusBadRequest)
		return
	}

	result, err := c.Publisher.Publish(r.Context(), postID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, result)
}

// Get returns the post plus its per-status delivery breakdown.
func (c *PostController) Get(w http.ResponseWriter, r *http.Request) {
	postID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid post id", http.StatusBadRequest)
		return
	}

	post, err := c.Posts.GetByID(postID)
	if err != nil {
		writeError(w, err)
		return
	}
	stats, err := c.Deliveries.CountStatusesForPost(postID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"post":  post,
		"stats": stats,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var notFound *apperrors.ErrNotFound
	if errors.As(err, &notFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
