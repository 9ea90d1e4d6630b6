// internal/clients/poller/client.go
package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	stderrors "application-intake/internal/common/errors"
	commonhttp "application-intake/internal/common/http"
	"application-intake/internal/common/logger"
	"application-intake/internal/models"
)

// Client talks to the email-polling service. The service owns IMAP mechanics;
// this client only sees already-detected application events.
type Client struct {
	baseURL string
	http    *commonhttp.Client
	logger  logger.Logger
}

func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    commonhttp.NewClient(timeout),
		logger:  log.WithFields(map[string]interface{}{"collaborator": "poller"}),
	}
}

// FetchBatch returns the current batch of detected application emails.
func (c *Client) FetchBatch(ctx context.Context) ([]models.ApplicationEvent, error) {
	return c.fetch(ctx, c.baseURL+"/application-emails")
}

// FetchFollowup returns follow-up events of the given kind, e.g. document
// submissions replying to an information-required email.
func (c *Client) FetchFollowup(ctx context.Context, kind string) ([]models.ApplicationEvent, error) {
	return c.fetch(ctx, c.baseURL+"/"+url.PathEscape(kind))
}

func (c *Client) fetch(ctx context.Context, endpoint string) ([]models.ApplicationEvent, error) {
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build poll request: %w", err)
	}

	resp, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("poll: %w",
			stderrors.NewCollaboratorUnavailableError(stderrors.ErrCodePollerUnavailable, "poller", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("poll: %w",
			stderrors.NewCollaboratorUnavailableError(stderrors.ErrCodePollerUnavailable, "poller",
				fmt.Errorf("status %d", resp.StatusCode)))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("poll: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Emails []models.ApplicationEvent `json:"emails"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode poll response: %w", err)
	}

	c.logger.Debug("fetched events", map[string]interface{}{
		"endpoint": endpoint,
		"count":    len(payload.Emails),
	})
	return payload.Emails, nil
}

// Fetch downloads the bytes behind an attachment's content
// reference.
func (c *Client) Fetch(ctx context.Context, contentRef string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/attachments/"+url.PathEscape(contentRef), nil)
	if err != nil {
		return nil, fmt.Errorf("build attachment request: %w", err)
	}

	resp, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch attachment: %w",
			stderrors.NewCollaboratorUnavailableError(stderrors.ErrCodePollerUnavailable, "poller", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("fetch attachment: %w",
			stderrors.NewCollaboratorUnavailableError(stderrors.ErrCodePollerUnavailable, "poller",
				fmt.Errorf("status %d", resp.StatusCode)))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch attachment %s: status %d", contentRef, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
