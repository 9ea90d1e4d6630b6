// internal/intake/audit/indexer.go
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"application-intake/internal/common/logger"
	"application-intake/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

// Indexer writes per-item processing reports into elasticsearch for ops
// search. Write-mostly and best-effort: an indexing failure is logged and
// never affects the pipeline. Stage and queue queries stay on the store.
type Indexer struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewIndexer(client *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	return &Indexer{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "audit"}),
	}
}

// IndexItem stores one per-item report.
func (i *Indexer) IndexItem(ctx context.Context, batchID string, item *models.ItemReport) {
	doc := map[string]interface{}{
		"batchId":       batchID,
		"applicationId": item.ApplicationID,
		"studentId":     item.StudentID,
		"stage":         item.Stage,
		"status":        item.Status,
		"errorCode":     item.ErrorCode,
		"error":         item.Error,
		"errors":        item.Errors,
		"durationMs":    item.Duration.Milliseconds(),
		"processedAt":   item.ProcessedAt.Format(time.RFC3339),
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return
	}

	res, err := i.client.Index(
		i.index,
		bytes.NewReader(payload),
		i.client.Index.WithContext(ctx),
	)
	if err != nil {
		i.logger.Warn("report indexing failed", map[string]interface{}{
			"applicationId": item.ApplicationID,
			"error":         err.Error(),
		})
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		i.logger.Warn("report indexing rejected", map[string]interface{}{
			"applicationId": item.ApplicationID,
			"status":        res.Status(),
		})
	}
}

// IndexBatch stores every item of a batch report.
func (i *Indexer) IndexBatch(ctx context.Context, report *models.BatchReport) {
	for idx := range report.Items {
		i.IndexItem(ctx, report.BatchID, &report.Items[idx])
	}
}
