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

// TelegramAdapter posts to a channel through the Bot API. Telegram has no
// reply-chain semantics for channels, so threads target it in compiled mode.
// Credentials JSON: {"bot_token": "...", "chat_id": "..."}.
type TelegramAdapter struct {
	BaseURL string
	Client  *http.Client
}

func NewTelegramAdapter(baseURL string) *TelegramAdapter {
	return &TelegramAdapter{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *TelegramAdapter) Slug() string { return "telegram" }

type telegramCreds struct {
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
		Chat      struct {
			Username string `json:"username"`
		} `json:"chat"`
	} `json:"result"`
}

func (t *TelegramAdapter) Publish(ctx context.Context, account model.SocialAccount, content Content) (Result, error) {
	var creds telegramCreds
	if err := json.Unmarshal([]byte(account.Credentials), &creds); err != nil {
		return Result{}, fmt.Errorf("telegram: bad credentials for %s: %w", account.Handle, err)
	}

	text := content.Text
	for _, media := range content.Media {
		text += "\n" + media.URL
	}

	form := url.Values{}
	form.Set("chat_id", creds.ChatID)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/bot%s/sendMessage", t.BaseURL, creds.BotToken),
		strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.Client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("telegram: %w", err)
	}
	defer resp.Body.Close()

	var tr telegramResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&tr); err != nil {
		return Result{}, fmt.Errorf("telegram: decoding response: %w", err)
	}
	if !tr.OK {
		return Result{}, fmt.Errorf("telegram: %s", tr.Description)
	}

	result := Result{ExternalID: fmt.Sprintf("%d", tr.Result.MessageID)}
	if tr.Result.Chat.Username != "" {
		result.Permalink = fmt.Sprintf("https://t.me/%s/%d", tr.Result.Chat.Username, tr.Result.MessageID)
	}
	return result, nil
}
