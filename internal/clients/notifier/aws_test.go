// internal/clients/notifier/aws_test.go
package notifier

import (
	"context"
	"testing"

	stderrors "application-intake/internal/common/errors"
	"application-intake/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// AWS Service Mocks
// ==========================

type mockSES struct {
	inputs []*ses.SendEmailInput
	err    error
}

func (m *mockSES) SendEmail(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.inputs = append(m.inputs, params)
	return &ses.SendEmailOutput{}, nil
}

type mockSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (m *mockSNS) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.inputs = append(m.inputs, params)
	return &sns.PublishOutput{}, nil
}

// ==========================
// AWSNotifier Tests
// ==========================

func TestAWSNotifier_SendEmail(t *testing.T) {
	sesMock := &mockSES{}
	snsMock := &mockSNS{}
	n := NewAWSNotifier(sesMock, snsMock, "admissions@example.edu", false, "high", logger.NewTestLogger(t))

	err := n.SendTemplate(context.Background(), TemplateApplicationReceived, "jane.doe@example.com",
		map[string]string{"applicationId": "APP_2025_abc123def456"})
	require.NoError(t, err)

	require.Len(t, sesMock.inputs, 1)
	input := sesMock.inputs[0]
	assert.Equal(t, "admissions@example.edu", *input.Source)
	assert.Equal(t, []string{"jane.doe@example.com"}, input.Destination.ToAddresses)
	assert.Contains(t, *input.Message.Body.Text.Data, "APP_2025_abc123def456")
	assert.Empty(t, snsMock.inputs)
}

func TestAWSNotifier_UnknownTemplate(t *testing.T) {
	n := NewAWSNotifier(&mockSES{}, &mockSNS{}, "admissions@example.edu", false, "high", logger.NewTestLogger(t))

	err := n.SendTemplate(context.Background(), "no_such_template", "jane.doe@example.com", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template not found")
}

func TestAWSNotifier_SESFailureIsRetryable(t *testing.T) {
	sesMock := &mockSES{err: assert.AnError}
	n := NewAWSNotifier(sesMock, &mockSNS{}, "admissions@example.edu", false, "high", logger.NewTestLogger(t))

	err := n.SendTemplate(context.Background(), TemplateApplicationValidated, "jane.doe@example.com", nil)
	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeNotifierUnavailable, stderrors.CodeOf(err))
	assert.True(t, stderrors.IsRetryable(err))
}

func TestAWSNotifier_SMSForHighPriority(t *testing.T) {
	sesMock := &mockSES{}
	snsMock := &mockSNS{}
	n := NewAWSNotifier(sesMock, snsMock, "admissions@example.edu", true, "high", logger.NewTestLogger(t))

	fields := map[string]string{
		"applicationId": "APP_2025_abc123def456",
		"phone":         "+15551234567",
		"priority":      "high",
	}
	require.NoError(t, n.SendTemplate(context.Background(), TemplateValidationFailed, "jane.doe@example.com", fields))

	require.Len(t, snsMock.inputs, 1)
	assert.Equal(t, "+15551234567", *snsMock.inputs[0].PhoneNumber)
}

func TestAWSNotifier_NoSMSBelowThreshold(t *testing.T) {
	snsMock := &mockSNS{}
	n := NewAWSNotifier(&mockSES{}, snsMock, "admissions@example.edu", true, "high", logger.NewTestLogger(t))

	fields := map[string]string{
		"phone":    "+15551234567",
		"priority": "normal",
	}
	require.NoError(t, n.SendTemplate(context.Background(), TemplateApplicationReceived, "jane.doe@example.com", fields))

	assert.Empty(t, snsMock.inputs)
}

func TestAWSNotifier_SMSFailureDoesNotFailSend(t *testing.T) {
	snsMock := &mockSNS{err: assert.AnError}
	n := NewAWSNotifier(&mockSES{}, snsMock, "admissions@example.edu", true, "high", logger.NewTestLogger(t))

	fields := map[string]string{
		"phone":    "+15551234567",
		"priority": "high",
	}
	err := n.SendTemplate(context.Background(), TemplateApplicationReceived, "jane.doe@example.com", fields)
	assert.NoError(t, err)
}
