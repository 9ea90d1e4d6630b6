// internal/clients/objectstore/client.go
package objectstore

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

// Client talks to the file service fronting the object store. Objects are
// keyed by (student_id, object_name); re-uploading the same name overwrites,
// which is what makes follow-up document submissions last-write-wins.
type Client struct {
	baseURL string
	http    *commonhttp.Client
	logger  logger.Logger
}

func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    commonhttp.NewClient(timeout),
		logger:  log.WithFields(map[string]interface{}{"collaborator": "object-store"}),
	}
}

// Put uploads one object under the student's namespace.
func (c *Client) Put(ctx context.Context, studentID, objectName string, data []byte) error {
	endpoint := fmt.Sprintf("%s/objects/upload/%s/%s",
		c.baseURL, url.PathEscape(studentID), url.PathEscape(objectName))

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", objectName,
			stderrors.NewCollaboratorUnavailableError(stderrors.ErrCodeObjectStoreUnavailable, "object-store", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("upload %s: %w", objectName,
			stderrors.NewCollaboratorUnavailableError(stderrors.ErrCodeObjectStoreUnavailable, "object-store",
				fmt.Errorf("status %d", resp.StatusCode)))
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("upload %s: unexpected status %d", objectName, resp.StatusCode)
	}

	c.logger.Debug("object stored", map[string]interface{}{
		"studentId": studentID,
		"object":    objectName,
		"bytes":     len(data),
	})
	return nil
}

// PresignedURL returns a time-limited download link for a stored object.
func (c *Client) PresignedURL(ctx context.Context, studentID, objectName string, ttl time.Duration) (string, error) {
	endpoint := fmt.Sprintf("%s/objects/presigned-url/?student_id=%s&object_name=%s&expires=%d",
		c.baseURL, url.QueryEscape(studentID), url.QueryEscape(objectName), int(ttl.Seconds()))

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build presign request: %w", err)
	}

	resp, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", objectName,
			stderrors.NewCollaboratorUnavailableError(stderrors.ErrCodeObjectStoreUnavailable, "object-store", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("presign %s: %w", objectName,
			stderrors.NewCollaboratorUnavailableError(stderrors.ErrCodeObjectStoreUnavailable, "object-store",
				fmt.Errorf("status %d", resp.StatusCode)))
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("presign %s: unexpected status %d", objectName, resp.StatusCode)
	}

	var payload struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode presign response: %w", err)
	}

	return payload.URL, nil
}
