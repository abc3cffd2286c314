package email

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the subset of the SES client used for delivery.
type SESAPI interface {
	SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

// SESSender delivers prebuilt messages through Amazon SES.
type SESSender struct {
	client SESAPI
	from   string
}

// NewSESSender wraps an SES client.
func NewSESSender(client SESAPI, from string) *SESSender {
	return &SESSender{client: client, from: from}
}

// Send submits the raw message to SES.
func (s *SESSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	out, err := s.client.SendRawEmail(ctx, &ses.SendRawEmailInput{
		Source:       aws.String(s.from),
		Destinations: to,
		RawMessage:   &types.RawMessage{Data: rawMessage},
	})
	if err != nil {
		return fmt.Errorf("ses send failed: %w", err)
	}
	log.Printf("Email sent via SES to %v (Subject: %s, MessageId: %s)", to, subject, aws.ToString(out.MessageId))
	return nil
}
