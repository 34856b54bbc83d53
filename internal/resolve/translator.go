package resolve

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// NoopTranslator is used when no translation service is configured. Every
// language pair comes back unavailable, so accounts fall back to the
// default language.
type NoopTranslator struct{}

func (NoopTranslator) Translate(ctx context.Context, text, fromLang, toLang string) (string, error) {
	return "", nil
}

// HTTPTranslator calls a LibreTranslate-compatible endpoint.
type HTTPTranslator struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewHTTPTranslator(baseURL, apiKey string) *HTTPTranslator {
	return &HTTPTranslator{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *HTTPTranslator) Translate(ctx context.Context, text, fromLang, toLang string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"q":       text,
		"source":  fromLang,
		"target":  toLang,
		"format":  "text",
		"api_key": t.APIKey,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.BaseURL+"/translate", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// An unsupported language pair is not an error; the caller just
		// drops the section.
		if resp.StatusCode == http.StatusBadRequest {
			return "", nil
		}
		return "", fmt.Errorf("translate: status %d", resp.StatusCode)
	}

	var out struct {
		TranslatedText string `json:"translatedText"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("translate: decoding response: %w", err)
	}
	return out.TranslatedText, nil
}
