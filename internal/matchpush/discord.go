package matchpush

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type Message struct {
	Title       string
	Description string
	Color       int
	Timestamp   time.Time
	Fields      []Field
}

// Sender delivers one message to the configured endpoint.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type DiscordWebhook struct {
	endpoint string
	client   *http.Client
}

func NewDiscordWebhook(endpoint string, timeout time.Duration) *DiscordWebhook {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DiscordWebhook{endpoint: endpoint, client: &http.Client{Timeout: timeout}}
}

func (d *DiscordWebhook) Send(ctx context.Context, msg Message) error {
	embed := map[string]any{
		"title":       msg.Title,
		"description": msg.Description,
		"color":       msg.Color,
		"fields":      msg.Fields,
		"footer":      map[string]string{"text": "broadside"},
	}
	if !msg.Timestamp.IsZero() {
		embed["timestamp"] = msg.Timestamp.UTC().Format(time.RFC3339)
	}
	raw, err := json.Marshal(map[string]any{"embeds": []map[string]any{embed}})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push failed with status %d", resp.StatusCode)
	}
	return nil
}
