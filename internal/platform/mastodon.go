package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/plumapost/pluma-backend/internal/model"
)

// MastodonAdapter publishes statuses through the Mastodon REST API.
// Credentials JSON: {"access_token": "...", "instance_url": "..."} — the
// per-account instance overrides the configured default.
type MastodonAdapter struct {
	BaseURL string
	Client  *http.Client
}

func NewMastodonAdapter(baseURL string) *MastodonAdapter {
	return &MastodonAdapter{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (m *MastodonAdapter) Slug() string { return "mastodon" }

type mastodonCreds struct {
	AccessToken string `json:"access_token"`
	InstanceURL string `json:"instance_url"`
}

type mastodonStatus struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func (m *MastodonAdapter) Publish(ctx context.Context, account model.SocialAccount, content Content) (Result, error) {
	return m.post(ctx, account, content, "")
}

func (m *MastodonAdapter) PublishReply(ctx context.Context, account model.SocialAccount, content Content, inReplyToID string) (Result, error) {
	return m.post(ctx, account, content, inReplyToID)
}

func (m *MastodonAdapter) BackReference(permalink string) string {
	return "\n\nThread starts here: " + permalink
}

func (m *MastodonAdapter) post(ctx context.Context, account model.SocialAccount, content Content, inReplyToID string) (Result, error) {
	var creds mastodonCreds
	if err := json.Unmarshal([]byte(account.Credentials), &creds); err != nil {
		return Result{}, fmt.Errorf("mastodon: bad credentials for %s: %w", account.Handle, err)
	}
	instance := creds.InstanceURL
	if instance == "" {
		instance = m.BaseURL
	}

	text := content.Text
	// Mastodon has no separate attachment step here; media URLs ride along
	// in the status body.
	for _, media := range content.Media {
		text += "\n" + media.URL
	}

	form := url.Values{}
	form.Set("status", text)
	if inReplyToID != "" {
		form.Set("in_reply_to_id", inReplyToID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(instance, "/")+"/api/v1/statuses",
		strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.Client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("mastodon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("mastodon: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var status mastodonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return Result{}, fmt.Errorf("mastodon: decoding response: %w", err)
	}
	return Result{ExternalID: status.ID, Permalink: status.URL}, nil
}
