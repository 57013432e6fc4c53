package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/repairdesk/repairdesk-backend/pkg/config"
)

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// SMSSink texts the message body to the shop phone through Twilio.
type SMSSink struct {
	api         messageCreator
	from        string
	countryCode string
}

// NewSMSSink builds a Twilio REST client from config.
func NewSMSSink(cfg config.TwilioConfig) (*SMSSink, error) {
	if !cfg.Enabled() {
		return nil, errors.New("twilio account sid, auth token and from number are required")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return newSMSSink(client.Api, cfg.FromNumber, cfg.DefaultCountryCode), nil
}

func newSMSSink(api messageCreator, from, countryCode string) *SMSSink {
	return &SMSSink{api: api, from: from, countryCode: strings.TrimSpace(countryCode)}
}

func (s *SMSSink) Notify(_ context.Context, msg Message) error {
	to := s.normalize(msg.RecipientPhone)
	if to == "" {
		return nil
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(msg.Title + "\n" + msg.Body)

	if _, err := s.api.CreateMessage(params); err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	return nil
}

// normalize converts local numbers to E.164 using the configured country
// code. Numbers already carrying a + are left alone.
func (s *SMSSink) normalize(phone string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" || digits == "+" {
		return ""
	}
	if strings.HasPrefix(digits, "+") || s.countryCode == "" {
		return digits
	}
	if strings.HasPrefix(digits, "0") {
		return "+" + strings.TrimPrefix(s.countryCode, "+") + strings.TrimPrefix(digits, "0")
	}
	return "+" + digits
}
