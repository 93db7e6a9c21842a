package service

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// WebhookClient forwards reservation events to a configured HTTP sink.
// Used by operators who want lifecycle events in an external system
// without polling the notifications table.
type WebhookClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewWebhookClient builds the forwarder. The sink URL receives POSTed
// JSON ReservationEvent payloads.
func NewWebhookClient(sinkURL string, timeout time.Duration, logger *zap.Logger) *WebhookClient {
	client := resty.New().
		SetBaseURL(sinkURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &WebhookClient{
		httpClient: client,
		logger:     logger,
	}
}

var _ EventPublisher = (*WebhookClient)(nil)

// PublishReservationEvent POSTs the event to the sink.
func (c *WebhookClient) PublishReservationEvent(evt ReservationEvent) error {
	resp, err := c.httpClient.R().
		SetBody(evt).
		Post("")
	if err != nil {
		return fmt.Errorf("webhook post failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook sink returned %d", resp.StatusCode())
	}
	c.logger.Debug("Forwarded reservation event to webhook",
		zap.String("type", string(evt.Type)),
		zap.String("reservation_id", evt.ReservationID),
	)
	return nil
}
