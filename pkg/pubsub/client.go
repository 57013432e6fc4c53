// Package pubsub connects to Google Cloud Pub/Sub for device push fan-out.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/repairdesk/repairdesk-backend/pkg/config"
	"github.com/repairdesk/repairdesk-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errTopicRequired     = errors.New("notification topic is required")
	errClosed            = errors.New("pubsub client not initialized")
)

type Client struct {
	ps    *pubsub.Client
	topic string // full resource name
}

// NewClient dials Pub/Sub and checks the notification topic, creating it
// when cfg.CreateTopic is set.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	topic := topicResourceName(project, cfg.NotificationTopic)
	if topic == "" {
		return nil, errTopicRequired
	}

	var opts []option.ClientOption
	if creds := strings.TrimSpace(gcp.CredentialsJSON); creds != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	}
	ps, err := pubsub.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	c := &Client{ps: ps, topic: topic}

	err = c.checkTopic(ctx)
	if status.Code(errors.Unwrap(err)) == codes.NotFound && cfg.CreateTopic {
		_, err = ps.TopicAdminClient.CreateTopic(ctx, &pubsubpb.Topic{Name: topic})
		if status.Code(err) == codes.AlreadyExists {
			err = nil
		}
	}
	if err != nil {
		_ = ps.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", topic), "pubsub ready")
	}
	return c, nil
}

func (c *Client) checkTopic(ctx context.Context) error {
	if _, err := c.ps.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topic}); err != nil {
		return fmt.Errorf("topic %s: %w", c.topic, err)
	}
	return nil
}

// NotificationPublisher is the publisher the notify fan-out writes to. The
// caller owns it and should Stop it on shutdown.
func (c *Client) NotificationPublisher() *pubsub.Publisher {
	if c == nil || c.ps == nil {
		return nil
	}
	return c.ps.Publisher(c.topic)
}

// Ping re-checks that the topic is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.ps == nil {
		return errClosed
	}
	return c.checkTopic(ctx)
}

func (c *Client) Close() error {
	if c == nil || c.ps == nil {
		return nil
	}
	return c.ps.Close()
}

// topicResourceName expands a short topic id into projects/<p>/topics/<id>.
// Full resource names pass through unchanged.
func topicResourceName(project, name string) string {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return ""
	case strings.HasPrefix(name, "projects/") && strings.Contains(name, "/topics/"):
		return name
	case strings.TrimSpace(project) == "":
		return ""
	}
	return "projects/" + strings.TrimSpace(project) + "/topics/" + name
}
