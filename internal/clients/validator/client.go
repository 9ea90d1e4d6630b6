// internal/clients/validator/client.go
package validator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	stderrors "application-intake/internal/common/errors"
	commonhttp "application-intake/internal/common/http"
	"application-intake/internal/common/logger"
)

// Document identifies one stored object submitted for validation.
type Document struct {
	StudentID  string `json:"studentId"`
	ObjectName string `json:"objectName"`
}

// Result is the validator's judgment. A fail verdict is data; only
// transport-level failures become errors.
type Result struct {
	Verdict  string                 `json:"verdict"` // pass|fail
	Feedback string                 `json:"feedback,omitempty"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

// Client calls the AI document-validation service.
type Client struct {
	baseURL string
	http    *commonhttp.Client
	logger  logger.Logger
}

func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    commonhttp.NewClient(timeout),
		logger:  log.WithFields(map[string]interface{}{"collaborator": "validator"}),
	}
}

// Validate submits the stored documents and returns the verdict. Timeouts
// and transport failures come back as retryable StandardErrors.
func (c *Client) Validate(ctx context.Context, docs []Document) (*Result, error) {
	payload, _ := json.Marshal(map[string]interface{}{"documents": docs})

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/validate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build validate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) || os.IsTimeout(err) {
			return nil, fmt.Errorf("validate: %w", stderrors.NewValidatorTimeoutError(err.Error()))
		}
		return nil, fmt.Errorf("validate: %w",
			stderrors.NewCollaboratorUnavailableError(stderrors.ErrCodeValidatorUnavailable, "validator", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("validate: %w",
			stderrors.NewCollaboratorUnavailableError(stderrors.ErrCodeValidatorUnavailable, "validator",
				fmt.Errorf("status %d", resp.StatusCode)))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("validate: unexpected status %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode validate response: %w", err)
	}

	if result.Verdict != "pass" && result.Verdict != "fail" {
		return nil, fmt.Errorf("validate: unknown verdict %q", result.Verdict)
	}

	c.logger.Debug("validation verdict", map[string]interface{}{
		"verdict":   result.Verdict,
		"documents": len(docs),
	})
	return &result, nil
}
