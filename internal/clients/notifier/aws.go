// internal/clients/notifier/aws.go
package notifier

import (
	"context"
	"fmt"
	"strings"

	stderrors "application-intake/internal/common/errors"
	"application-intake/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"
)

// Interfaces over the AWS clients, for mocking.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// awsTemplates maps template names to subject/body with {field} placeholders.
var awsTemplates = map[string]struct {
	Subject string
	Body    string
}{
	TemplateApplicationReceived: {
		Subject: "Application received",
		Body:    "We received your application {applicationId}. Your documents are being processed.",
	},
	TemplateInformationRequired: {
		Subject: "Documents required",
		Body:    "Your application {applicationId} arrived without documents. Please reply with the required files.",
	},
	TemplateApplicationValidated: {
		Subject: "Application validated",
		Body:    "Your application {applicationId} passed document validation and is awaiting review.",
	},
	TemplateValidationFailed: {
		Subject: "Application documents rejected",
		Body:    "Your application {applicationId} was not accepted: {feedback}. Download: {downloadUrl}",
	},
}

// AWSNotifier sends templated email through SES and, for high-priority
// applications with a phone on file, an SMS through SNS.
type AWSNotifier struct {
	sesClient         SESService
	snsClient         SNSService
	fromEmail         string
	smsEnabled        bool
	priorityThreshold string
	logger            logger.Logger
}

func NewAWSNotifier(sesClient SESService, snsClient SNSService, fromEmail string, smsEnabled bool, priorityThreshold string, log logger.Logger) *AWSNotifier {
	return &AWSNotifier{
		sesClient:         sesClient,
		snsClient:         snsClient,
		fromEmail:         fromEmail,
		smsEnabled:        smsEnabled,
		priorityThreshold: priorityThreshold,
		logger:            log.WithFields(map[string]interface{}{"collaborator": "notifier", "backend": "aws"}),
	}
}

func (n *AWSNotifier) SendTemplate(ctx context.Context, templateName, recipient string, fields map[string]string) error {
	template, exists := awsTemplates[templateName]
	if !exists {
		return fmt.Errorf("template not found: %s", templateName)
	}

	subject := renderTemplate(template.Subject, fields)
	body := renderTemplate(template.Body, fields)
	notificationID := uuid.New().String()

	_, err := n.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{recipient},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
				Html: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.fromEmail),
	})
	if err != nil {
		return fmt.Errorf("send %s: %w", templateName,
			stderrors.NewCollaboratorUnavailableError(stderrors.ErrCodeNotifierUnavailable, "ses", err))
	}

	// SMS only for high-priority applications with a phone on file
	phone := fields["phone"]
	if n.smsEnabled && phone != "" && fields["priority"] == n.priorityThreshold {
		if _, err := n.snsClient.Publish(ctx, &sns.PublishInput{
			PhoneNumber: aws.String(phone),
			Message:     aws.String(body),
		}); err != nil {
			n.logger.Error("SMS send failed", map[string]interface{}{
				"error": err.Error(),
				"phone": phone,
			})
		}
	}

	n.logger.Info("notification sent", map[string]interface{}{
		"notificationId": notificationID,
		"template":       templateName,
		"recipient":      recipient,
	})
	return nil
}

func renderTemplate(text string, fields map[string]string) string {
	for k, v := range fields {
		text = strings.ReplaceAll(text, "{"+k+"}", v)
	}
	return text
}
