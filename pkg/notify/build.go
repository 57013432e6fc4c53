package notify

import (
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/repairdesk/repairdesk-backend/pkg/config"
	"github.com/repairdesk/repairdesk-backend/pkg/logger"
)

// NewFromConfig builds the process notifier: the in-app store sink is
// always primary; push and SMS are attached when configured. publisher may
// be nil when Pub/Sub is disabled.
func NewFromConfig(logg *logger.Logger, repo notificationCreator, publisher *gcppubsub.Publisher, twilio config.TwilioConfig) (*Fanout, error) {
	store, err := NewStoreSink(repo)
	if err != nil {
		return nil, err
	}

	var secondaries []Notifier
	if publisher != nil {
		sink, err := NewPubSubSink(publisher)
		if err != nil {
			return nil, fmt.Errorf("pubsub sink: %w", err)
		}
		secondaries = append(secondaries, sink)
	}
	if twilio.Enabled() {
		sink, err := NewSMSSink(twilio)
		if err != nil {
			return nil, fmt.Errorf("sms sink: %w", err)
		}
		secondaries = append(secondaries, sink)
	}
	return NewFanout(logg, store, secondaries...)
}
