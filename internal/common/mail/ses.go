package mail

import (
	"context"
	"fmt"

	"report-workers/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the subset of the SES client used for raw sends.
type SESAPI interface {
	SendRawEmail(ctx context.Context, input *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

type SESMailer struct {
	client SESAPI
	logger logger.Logger
}

func NewSESMailer(client SESAPI, log logger.Logger) *SESMailer {
	return &SESMailer{
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": "ses-mailer"}),
	}
}

func (m *SESMailer) Send(ctx context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	raw, err := msg.Bytes()
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	out, err := m.client.SendRawEmail(ctx, &ses.SendRawEmailInput{
		Source:       aws.String(msg.From),
		Destinations: msg.To,
		RawMessage:   &types.RawMessage{Data: raw},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}

	m.logger.Info("Email sent", map[string]interface{}{
		"to":        msg.To,
		"messageId": aws.ToString(out.MessageId),
	})
	return nil
}

// NoopMailer is used when mail.provider is none.
type NoopMailer struct {
	logger logger.Logger
}

func NewNoopMailer(log logger.Logger) *NoopMailer {
	return &NoopMailer{logger: log}
}

func (m *NoopMailer) Send(ctx context.Context, msg *Message) error {
	m.logger.Info("Mail delivery disabled, message dropped", map[string]interface{}{
		"to":      msg.To,
		"subject": msg.Subject,
	})
	return nil
}
