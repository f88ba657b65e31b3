// Package notify доставляет события outbox внешним подписчикам.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ecodeli/ecodeli/internal/model"
)

// WebhookClient инкапсулирует HTTP-взаимодействие с сервисом уведомлений.
type WebhookClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewWebhookClient создаёт HTTP-клиент для обращения к сервису уведомлений по указанному адресу.
func NewWebhookClient(baseURL string) *WebhookClient {
	return &WebhookClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Name возвращает имя приёмника для логов.
func (c *WebhookClient) Name() string {
	return "webhook"
}

// Post отправляет событие и возвращает код ответа и паузу из Retry-After при 429.
func (c *WebhookClient) Post(ctx context.Context, e model.Event) (int, time.Duration, error) {
	if c == nil || c.baseURL == "" {
		return 0, 0, fmt.Errorf("webhook client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	body, err := json.Marshal(e)
	if err != nil {
		return 0, 0, fmt.Errorf("encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/events", bytes.NewReader(body))
	if err != nil {
		return 0, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", string(e.Type))
	req.Header.Set("Idempotency-Key", strconv.FormatInt(e.ID, 10))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := time.Duration(0)
		if v := resp.Header.Get("Retry-After"); v != "" {
			if seconds, parseErr := strconv.Atoi(v); parseErr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return resp.StatusCode, retryAfter, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, 0, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return resp.StatusCode, 0, nil
}

// Deliver отправляет событие; ответ 429 превращается в *ThrottledError.
func (c *WebhookClient) Deliver(ctx context.Context, e model.Event) error {
	code, retryAfter, err := c.Post(ctx, e)
	if err != nil {
		return err
	}
	if code == http.StatusTooManyRequests {
		return &ThrottledError{RetryAfter: retryAfter}
	}
	return nil
}
