// internal/intake/event/event.go
package event

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	stderrors "application-intake/internal/common/errors"
	"application-intake/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

// eventSchema is the inbound contract for one application email. Events that
// violate it are processed as MALFORMED_EVENT with a fallback identity.
var eventSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"sender", "receivedAt"},
	"properties": map[string]interface{}{
		"sender": map[string]interface{}{
			"type":    "string",
			"pattern": `^[^@\s]+@[^@\s]+$`,
		},
		"subject": map[string]interface{}{"type": "string"},
		"body":    map[string]interface{}{"type": "string"},
		"attachments": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type":     "object",
				"required": []interface{}{"filename"},
				"properties": map[string]interface{}{
					"filename":    map[string]interface{}{"type": "string", "minLength": float64(1)},
					"contentType": map[string]interface{}{"type": "string"},
					"size":        map[string]interface{}{"type": "integer"},
					"contentRef":  map[string]interface{}{"type": "string"},
				},
			},
		},
		"receivedAt":  map[string]interface{}{"type": "string"},
		"contentHash": map[string]interface{}{"type": "string"},
	},
}

// Parse decodes a raw JSON event and validates it against the schema.
func Parse(raw []byte) (*models.ApplicationEvent, error) {
	var ev models.ApplicationEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", stderrors.NewMalformedEventError(err.Error()))
	}
	if err := Validate(&ev); err != nil {
		return &ev, err
	}
	return &ev, nil
}

// Validate checks a decoded event against the inbound schema.
func Validate(ev *models.ApplicationEvent) error {
	doc := map[string]interface{}{
		"sender":     ev.Sender,
		"subject":    ev.Subject,
		"body":       ev.Body,
		"receivedAt": ev.ReceivedAt.Format(time.RFC3339),
	}
	if len(ev.Attachments) > 0 {
		atts := make([]interface{}, 0, len(ev.Attachments))
		for _, a := range ev.Attachments {
			atts = append(atts, map[string]interface{}{
				"filename":    a.Filename,
				"contentType": a.ContentType,
				"size":        a.Size,
				"contentRef":  a.ContentRef,
			})
		}
		doc["attachments"] = atts
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(eventSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", stderrors.NewMalformedEventError(err.Error()))
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return stderrors.NewMalformedEventError(strings.Join(msgs, "; "))
	}

	if ev.ReceivedAt.IsZero() {
		return stderrors.NewMalformedEventError("receivedAt is zero")
	}

	return nil
}

// ContentHash returns the deduplication hash for an event: the first 16 hex
// characters of sha256 over sender, subject and receipt time. Events already
// carrying a hash keep it.
func ContentHash(ev *models.ApplicationEvent) string {
	if ev.ContentHash != "" {
		return ev.ContentHash
	}
	payload := fmt.Sprintf("%s|%s|%s",
		strings.ToLower(strings.TrimSpace(ev.Sender)),
		ev.Subject,
		ev.ReceivedAt.UTC().Format(time.RFC3339),
	)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])[:16]
}
