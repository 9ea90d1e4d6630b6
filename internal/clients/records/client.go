// internal/clients/records/client.go
package records

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

// Client mirrors student and application rows into the structured store over
// its CRUD API. The mirror keeps downstream reporting systems in sync with
// the workflow; the workflow record store remains the source of truth for
// stage state.
type Client struct {
	baseURL string
	http    *commonhttp.Client
	logger  logger.Logger
}

func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    commonhttp.NewClient(timeout),
		logger:  log.WithFields(map[string]interface{}{"collaborator": "records"}),
	}
}

// EnsureStudent creates the student row if it does not exist. A conflict
// response means the row already exists and is treated as success.
func (c *Client) EnsureStudent(ctx context.Context, studentID, email string) error {
	body := map[string]string{"student_id": studentID, "email": email}
	return c.post(ctx, "/db/student/", body, "create student")
}

// EnsureApplication creates the application row if it does not exist.
func (c *Client) EnsureApplication(ctx context.Context, applicationID, studentID string) error {
	body := map[string]string{"application_id": applicationID, "student_id": studentID}
	return c.post(ctx, "/db/application/", body, "create application")
}

// UpdateApplicationStatus patches the mirrored application's status field.
func (c *Client) UpdateApplicationStatus(ctx context.Context, applicationID, status string) error {
	payload, _ := json.Marshal(map[string]string{"status": status})
	endpoint := c.baseURL + "/db/application/" + url.PathEscape(applicationID) + "/status"

	req, err := http.NewRequest(http.MethodPatch, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.send(req, ctx, "update application status")
}

func (c *Client) post(ctx context.Context, path string, body map[string]string, operation string) error {
	payload, _ := json.Marshal(body)

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.send(req, ctx, operation)
}

func (c *Client) send(req *http.Request, ctx context.Context, operation string) error {
	resp, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("%s: %w", operation,
			stderrors.NewCollaboratorUnavailableError(stderrors.ErrCodeRecordsUnavailable, "records", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s: %w", operation,
			stderrors.NewCollaboratorUnavailableError(stderrors.ErrCodeRecordsUnavailable, "records",
				fmt.Errorf("status %d", resp.StatusCode)))
	case resp.StatusCode == http.StatusConflict:
		// Row already exists; ensure semantics
		return nil
	case resp.StatusCode >= 400:
		return fmt.Errorf("%s: unexpected status %d", operation, resp.StatusCode)
	}

	return nil
}
