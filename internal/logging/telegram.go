package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"compareat-sync/internal/config"
)

// Notifier pushes run summaries to an operator channel. A nil *TelegramNotifier
// is a valid no-op receiver, so callers never need to guard the calls.
type Notifier interface {
	Notify(value string)
	NotifyError(value string)
}

type TelegramNotifier struct {
	creds config.TelegramBotConfig
}

type telegramRequest struct {
	ChatId string `json:"chat_id"`
	Text   string `json:"text"`
}

const (
	iconInfo  = "ℹ️"
	iconError = "❌"
)

func NewTelegramNotifier(cfg config.TelegramBotConfig) *TelegramNotifier {
	if cfg.ChatId == "" || cfg.Token == "" {
		return nil
	}
	return &TelegramNotifier{creds: cfg}
}

func (c *TelegramNotifier) Notify(value string) {
	if c == nil {
		return
	}
	_ = c.sendRequest(formatMessage(iconInfo, "INFO", value))
}

func (c *TelegramNotifier) NotifyError(value string) {
	if c == nil {
		return
	}
	_ = c.sendRequest(formatMessage(iconError, "ERROR", value))
}

func formatMessage(icon, level, value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		v = "-"
	}
	return fmt.Sprintf("%s %s: %s", icon, level, v)
}

func (c *TelegramNotifier) sendRequest(value string) error {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", c.creds.Token)

	reqBody := telegramRequest{
		ChatId: c.creds.ChatId,
		Text:   value,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram send failed: %s", resp.Status)
	}
	return nil
}
