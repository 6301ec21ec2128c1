package mail

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"report-workers/internal/common/config"
	"report-workers/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMessage() *Message {
	return &Message{
		From:    "reports@example.com",
		To:      []string{"kunde@example.com"},
		Subject: "Ihr KI-Statusbericht für Müller GmbH",
		HTML:    "<h1>Bericht</h1><p>Grüße</p>",
		Attachments: []Attachment{
			{Filename: "bericht.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.7 test")},
		},
	}
}

func TestMessageBytes_Multipart(t *testing.T) {
	raw, err := sampleMessage().Bytes()
	require.NoError(t, err)

	parsed, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)

	subject, err := new(mime.WordDecoder).DecodeHeader(parsed.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Ihr KI-Statusbericht für Müller GmbH", subject)

	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	reader := multipart.NewReader(parsed.Body, params["boundary"])

	htmlPart, err := reader.NextPart()
	require.NoError(t, err)
	html, err := io.ReadAll(htmlPart)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Grüße")

	pdfPart, err := reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "bericht.pdf", pdfPart.FileName())
}

func TestMessageValidate(t *testing.T) {
	msg := sampleMessage()
	assert.NoError(t, msg.Validate())

	msg.To = []string{"not-an-address"}
	assert.Error(t, msg.Validate())

	msg.To = nil
	assert.Error(t, msg.Validate())
}

func TestSMTPMailer_SendsThroughTransport(t *testing.T) {
	m := NewSMTPMailer(config.MailConfig{}, logger.NewTestLogger(t))
	var gotTo []string
	var gotMsg []byte
	m.send = func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		gotTo = to
		gotMsg = msg
		return nil
	}

	require.NoError(t, m.Send(context.Background(), sampleMessage()))
	assert.Equal(t, []string{"kunde@example.com"}, gotTo)
	assert.True(t, strings.Contains(string(gotMsg), "multipart/mixed"))
}

func TestSMTPMailer_ContextCancelled(t *testing.T) {
	m := NewSMTPMailer(config.MailConfig{}, logger.NewTestLogger(t))
	release := make(chan struct{})
	defer close(release)
	m.send = func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		<-release
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := m.Send(ctx, sampleMessage())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type fakeSES struct {
	input *ses.SendRawEmailInput
	err   error
}

func (f *fakeSES) SendRawEmail(ctx context.Context, input *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error) {
	f.input = input
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendRawEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESMailer(t *testing.T) {
	client := &fakeSES{}
	m := NewSESMailer(client, logger.NewTestLogger(t))

	require.NoError(t, m.Send(context.Background(), sampleMessage()))
	require.NotNil(t, client.input)
	assert.Equal(t, "reports@example.com", aws.ToString(client.input.Source))
	assert.Contains(t, string(client.input.RawMessage.Data), "bericht.pdf")

	client.err = errors.New("throttled")
	assert.Error(t, m.Send(context.Background(), sampleMessage()))
}
