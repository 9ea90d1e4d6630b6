// internal/clients/notifier/notifier.go
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	stderrors "application-intake/internal/common/errors"
	commonhttp "application-intake/internal/common/http"
	"application-intake/internal/common/logger"
)

// Template names understood by every backend.
const (
	TemplateApplicationReceived  = "application_received"
	TemplateInformationRequired  = "information_required"
	TemplateApplicationValidated = "application_validated"
	TemplateValidationFailed     = "validation_failed"
)

// Notifier sends a templated status message to an applicant. Send failures
// are transport errors; template rendering is the backend's concern.
type Notifier interface {
	SendTemplate(ctx context.Context, templateName, recipient string, fields map[string]string) error
}

// HTTPNotifier is the outgoing-email-service backend.
type HTTPNotifier struct {
	baseURL string
	http    *commonhttp.Client
	logger  logger.Logger
}

func NewHTTPNotifier(baseURL string, timeout time.Duration, log logger.Logger) *HTTPNotifier {
	return &HTTPNotifier{
		baseURL: baseURL,
		http:    commonhttp.NewClient(timeout),
		logger:  log.WithFields(map[string]interface{}{"collaborator": "notifier"}),
	}
}

func (n *HTTPNotifier) SendTemplate(ctx context.Context, templateName, recipient string, fields map[string]string) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"recipient": recipient,
		"fields":    fields,
	})

	endpoint := n.baseURL + "/email/template/" + url.PathEscape(templateName)
	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build notify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.DoWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("send %s: %w", templateName,
			stderrors.NewCollaboratorUnavailableError(stderrors.ErrCodeNotifierUnavailable, "notifier", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("send %s: %w", templateName,
			stderrors.NewCollaboratorUnavailableError(stderrors.ErrCodeNotifierUnavailable, "notifier",
				fmt.Errorf("status %d", resp.StatusCode)))
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("send %s: unexpected status %d", templateName, resp.StatusCode)
	}

	n.logger.Info("notification sent", map[string]interface{}{
		"template":  templateName,
		"recipient": recipient,
	})
	return nil
}
