package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medforce/clinic-sim/pkg/logging"
)

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESSenderSend(t *testing.T) {
	ses := &fakeSES{}
	s := NewSESSender(ses, SESConfig{FromEmail: "clinic@medforce.example", FromName: "Hepatology Clinic"}, logging.New("error"))
	require.NotNil(t, s)

	err := s.Send(context.Background(), EmailMessage{
		To:      "patient@example.com",
		Subject: "MedForce Clinic",
		Body:    "Hello, this is Linda.",
	})
	require.NoError(t, err)

	require.Len(t, ses.inputs, 1)
	in := ses.inputs[0]
	assert.Equal(t, "Hepatology Clinic <clinic@medforce.example>", aws.ToString(in.FromEmailAddress))
	assert.Equal(t, []string{"patient@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, "MedForce Clinic", aws.ToString(in.Content.Simple.Subject.Data))
	assert.Equal(t, "Hello, this is Linda.", aws.ToString(in.Content.Simple.Body.Text.Data))
	assert.Nil(t, in.Content.Simple.Body.Html)
}

func TestSESSenderSendFailure(t *testing.T) {
	s := NewSESSender(&fakeSES{err: errors.New("throttled")}, SESConfig{FromEmail: "clinic@medforce.example"}, logging.New("error"))
	err := s.Send(context.Background(), EmailMessage{To: "patient@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SES send failed")
}

func TestNewSESSenderNilClient(t *testing.T) {
	assert.Nil(t, NewSESSender(nil, SESConfig{}, nil))
}

func TestNewSendGridSenderRequiresKey(t *testing.T) {
	assert.Nil(t, NewSendGridSender(SendGridConfig{}, nil))
	assert.NotNil(t, NewSendGridSender(SendGridConfig{APIKey: "SG.test"}, nil))
}

func TestStubEmailSender(t *testing.T) {
	s := NewStubEmailSender(logging.New("error"))
	assert.NoError(t, s.Send(context.Background(), EmailMessage{To: "patient@example.com"}))
}
