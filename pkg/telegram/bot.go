package telegram

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Bot отправляет уведомления о продажах в Telegram
type Bot struct {
	token       string
	baseURL     string
	adminChatID string
	client      *http.Client
}

func NewBot(token, adminChatID string) *Bot {
	return &Bot{
		token:       token,
		baseURL:     "https://api.telegram.org/bot" + token,
		adminChatID: adminChatID,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (b *Bot) SendMessage(chatID, text string) error {
	endpoint := b.baseURL + "/sendMessage"

	params := url.Values{}
	params.Add("chat_id", chatID)
	params.Add("text", text)

	resp, err := b.client.PostForm(endpoint, params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API error: %s", resp.Status)
	}

	return nil
}

// NotifyAdmin отправляет сообщение в административный чат
func (b *Bot) NotifyAdmin(text string) error {
	if b.adminChatID == "" {
		return fmt.Errorf("admin chat id is not configured")
	}
	return b.SendMessage(b.adminChatID, text)
}
