package controller

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/plumapost/pluma-backend/internal/model"
	"github.com/plumapost/pluma-backend/internal/publish"
	"github.com/plumapost/pluma-backend/internal/repository"
)

type ThreadController struct {
	Threads    *repository.ThreadRepository
	Deliveries *repository.DeliveryRepository
	Publisher  *publish.ThreadPublisher
	Logger     *logrus.Logger
}

func (c *ThreadController) Create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title       string  `json:"title"`
		Hashtags    string  `json:"hashtags"`
		ScheduledAt *string `json:"scheduled_at"`
		Segments    []struct {
			Body      string            `json:"body"`
			Overrides map[string]string `json:"overrides"`
		} `json:"segments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if len(body.Segments) == 0 {
		http.Error(w, "thread needs at least one segment", http.StatusBadRequest)
		return
	}

	thread := &model.Thread{
		Title:    body.Title,
		Hashtags: body.Hashtags,
		Status:   model.ContentDraft,
	}
	if body.ScheduledAt != nil {
		t, err := time.Parse(time.RFC3339, *body.ScheduledAt)
		if err != nil {
			http.Error(w, "invalid scheduled_at", http.StatusBadRequest)
			return
		}
		thread.ScheduledAt = &t
		thread.Status = model.ContentScheduled
	}
	for _, seg := range body.Segments {
		thread.Segments = append(thread.Segments, model.Segment{
			Body:      seg.Body,
			Overrides: seg.Overrides,
		})
	}

	if err := c.Threads.Create(thread); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, thread)
}

func (c *ThreadController) LinkAccount(w http.ResponseWriter, r *http.Request) {
	threadID, accountID, ok := c.ids(w, r)
	if !ok {
		return
	}

	var body struct {
		PublishMode model.PublishMode `json:"publish_mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body.PublishMode != model.ModeThread && body.PublishMode != model.ModeCompiled {
		http.Error(w, "publish_mode must be thread or compiled", http.StatusBadRequest)
		return
	}

	if err := c.Threads.LinkAccount(threadID, accountID, body.PublishMode); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *ThreadController) Publish(w http.ResponseWriter, r *http.Request) {
	threadID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid thread id", http.StatusBadRequest)
		return
	}

	if err := c.Publisher.PublishAll(r.Context(), threadID); err != nil {
		writeError(w, err)
		return
	}
	c.respondWithThread(w, threadID)
}

func (c *ThreadController) PublishToAccount(w http.ResponseWriter, r *http.Request) {
	threadID, accountID, ok := c.ids(w, r)
	if !ok {
		return
	}

	if err := c.Publisher.PublishToAccount(r.Context(), threadID, accountID); err != nil {
		writeError(w, err)
		return
	}
	c.respondWithThread(w, threadID)
}

func (c *ThreadController) ResetAccount(w http.ResponseWriter, r *http.Request) {
	threadID, accountID, ok := c.ids(w, r)
	if !ok {
		return
	}

	if err := c.Publisher.ResetAccount(threadID, accountID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Get returns the thread, its links and the delivery breakdown.
func (c *ThreadController) Get(w http.ResponseWriter, r *http.Request) {
	threadID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid thread id", http.StatusBadRequest)
		return
	}
	c.respondWithThread(w, threadID)
}

func (c *ThreadController) respondWithThread(w http.ResponseWriter, threadID int) {
	thread, err := c.Threads.GetByID(threadID)
	if err != nil {
		writeError(w, err)
		return
	}
	links, err := c.Threads.ListLinks(threadID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	stats, err := c.Deliveries.CountStatusesForThread(threadID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"thread": thread,
		"links":  links,
		"stats":  stats,
	})
}

func (c *ThreadController) ids(w http.ResponseWriter, r *http.Request) (threadID, accountID int, ok bool) {
	threadID, err1 := strconv.Atoi(chi.URLParam(r, "id"))
	accountID, err2 := strconv.Atoi(chi.URLParam(r, "accountID"))
	if err1 != nil || err2 != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, 0, false
	}
	return threadID, accountID, true
}
