package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

const defaultPublishTimeout = 15 * time.Second

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// PushPayload is the JSON body published for device push fan-out.
type PushPayload struct {
	OwnerID string `json:"owner_id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	Link    string `json:"link,omitempty"`
	SentAt  string `json:"sent_at"`
}

// PubSubSink publishes messages to the notification topic for push delivery.
type PubSubSink struct {
	pub publisher
	now func() time.Time
}

// NewPubSubSink wraps a Pub/Sub v2 publisher.
func NewPubSubSink(p *gcppubsub.Publisher) (*PubSubSink, error) {
	if p == nil {
		return nil, errors.New("pubsub publisher required")
	}
	return newPubSubSink(&gcpPublisher{Publisher: p}), nil
}

func newPubSubSink(p publisher) *PubSubSink {
	return &PubSubSink{pub: p, now: time.Now}
}

func (s *PubSubSink) Notify(ctx context.Context, msg Message) error {
	data, err := json.Marshal(PushPayload{
		OwnerID: msg.OwnerID.String(),
		Type:    string(msg.Type),
		Title:   msg.Title,
		Body:    msg.Body,
		Link:    msg.Link,
		SentAt:  s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encode push payload: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := s.pub.Publish(publishCtx, &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"owner_id":          msg.OwnerID.String(),
			"notification_type": string(msg.Type),
		},
	})
	if result == nil {
		return errors.New("publisher returned nil result")
	}
	if _, err := result.Get(publishCtx); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
