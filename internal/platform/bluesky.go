package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/plumapost/pluma-backend/internal/model"
)

// BlueskyAdapter publishes posts over the AT Protocol XRPC API.
// Credentials JSON: {"identifier": "...", "app_password": "..."}.
// Each Publish creates a fresh session; sessions are cheap and keeping one
// cached would leak orchestrator state into the adapter.
type BlueskyAdapter struct {
	BaseURL string
	Client  *http.Client
}

func NewBlueskyAdapter(baseURL string) *BlueskyAdapter {
	return &BlueskyAdapter{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (b *BlueskyAdapter) Slug() string { return "bluesky" }

type blueskyCreds struct {
	Identifier  string `json:"identifier"`
	AppPassword string `json:"app_password"`
}

type blueskySession struct {
	AccessJwt string `json:"accessJwt"`
	Did       string `json:"did"`
}

type blueskyRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

func (b *BlueskyAdapter) Publish(ctx context.Context, account model.SocialAccount, content Content) (Result, error) {
	return b.createPost(ctx, account, content, nil)
}

func (b *BlueskyAdapter) PublishReply(ctx context.Context, account model.SocialAccount, content Content, inReplyToID string) (Result, error) {
	parent, err := parseBlueskyExternalID(inReplyToID)
	if err != nil {
		return Result{}, err
	}
	return b.createPost(ctx, account, content, parent)
}

func (b *BlueskyAdapter) BackReference(permalink string) string {
	return "\n\n🧵 " + permalink
}

// External ids for bluesky pack both the record URI and CID, since replies
// need both to reference the parent.
func formatBlueskyExternalID(ref blueskyRef) string {
	return ref.URI + "|" + ref.CID
}

func parseBlueskyExternalID(id string) (*blueskyRef, error) {
	uri, cid, ok := strings.Cut(id, "|")
	if !ok {
		return nil, fmt.Errorf("bluesky: malformed external id %q", id)
	}
	return &blueskyRef{URI: uri, CID: cid}, nil
}

func (b *BlueskyAdapter) createPost(ctx context.Context, account model.SocialAccount, content Content, parent *blueskyRef) (Result, error) {
	var creds blueskyCreds
	if err := json.Unmarshal([]byte(account.Credentials), &creds); err != nil {
		return Result{}, fmt.Errorf("bluesky: bad credentials for %s: %w", account.Handle, err)
	}

	session, err := b.createSession(ctx, creds)
	if err != nil {
		return Result{}, err
	}

	text := content.Text
	for _, media := range content.Media {
		text += "\n" + media.URL
	}

	record := map[string]any{
		"$type":     "app.bsky.feed.post",
		"text":      text,
		"createdAt": time.Now().UTC().Format(time.RFC3339),
	}
	if parent != nil {
		// Root resolution beyond the immediate parent is the server's
		// concern for flat chains built head-first.
		record["reply"] = map[string]any{
			"root":   parent,
			"parent": parent,
		}
	}

	body := map[string]any{
		"repo":       session.Did,
		"collection": "app.bsky.feed.post",
		"record":     record,
	}

	var ref blueskyRef
	if err := b.xrpc(ctx, session.AccessJwt, "com.atproto.repo.createRecord", body, &ref); err != nil {
		return Result{}, err
	}

	return Result{
		ExternalID: formatBlueskyExternalID(ref),
		Permalink:  blueskyPermalink(creds.Identifier, ref.URI),
	}, nil
}

func (b *BlueskyAdapter) createSession(ctx context.Context, creds blueskyCreds) (*blueskySession, error) {
	body := map[string]string{
		"identifier": creds.Identifier,
		"password":   creds.AppPassword,
	}
	var session blueskySession
	if err := b.xrpc(ctx, "", "com.atproto.server.createSession", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (b *BlueskyAdapter) xrpc(ctx context.Context, token, method string, payload, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.BaseURL+"/xrpc/"+method, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := b.Client.Do(req)
	if err != nil {
		return fmt.Errorf("bluesky: %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("bluesky: %s: status %d: %s", method, resp.StatusCode, strings.TrimSpace(string(errBody)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// blueskyPermalink turns an at:// record URI into a public web URL.
func blueskyPermalink(handle, uri string) string {
	parts := strings.Split(uri, "/")
	if len(parts) == 0 {
		return uri
	}
	return fmt.Sprintf("https://bsky.app/profile/%s/post/%s", handle, parts[len(parts)-1])
}
