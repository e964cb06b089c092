package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// HTTPService implements Service with HTTP POST delivery.
type HTTPService struct {
	httpClient *resty.Client
	url        string
	log        zerolog.Logger
}

// NewHTTPService creates a webhook service posting to url. An empty url
// disables delivery; events are logged and acknowledged.
func NewHTTPService(url string, log zerolog.Logger) *HTTPService {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &HTTPService{
		httpClient: client,
		url:        url,
		log:        log.With().Str("component", "webhook").Logger(),
	}
}

// NotifyModerationDeleted posts the moderation event. Delivery retries are
// handled by the client; a non-2xx terminal response is an error so the
// worker marks the task failed.
func (s *HTTPService) NotifyModerationDeleted(ctx context.Context, event *ModerationEvent) error {
	if s.url == "" {
		s.log.Debug().Str("message_id", event.MessageID).Msg("no webhook URL configured, skipping notification")
		return nil
	}

	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetHeader("X-Messaging-Event", event.Event).
		SetHeader("X-Messaging-Task-ID", event.TaskID).
		SetBody(event).
		Post(s.url)
	if err != nil {
		return fmt.Errorf("send moderation webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("moderation webhook returned status %d", resp.StatusCode())
	}

	s.log.Info().
		Str("message_id", event.MessageID).
		Int("status", resp.StatusCode()).
		Msg("moderation event delivered")
	return nil
}
