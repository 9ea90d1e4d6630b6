// internal/intake/identity/identity.go
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"application-intake/internal/models"
)

// Derive turns an application event into its stable identity pair. Identity
// is a pure function of the input: the same sender in the same receipt year
// always yields the same application_id, so re-delivery resolves to a resume
// instead of a duplicate.
//
// A sender with no "@" cannot anchor identity, so the derivation falls back
// to a hash over the raw event content (sender, subject, body, attachment
// names). Derivation never fails.
func Derive(ev *models.ApplicationEvent) models.Identity {
	sender := normalize(ev.Sender)

	var digest string
	fallback := false
	if strings.Contains(sender, "@") {
		digest = hashHex(sender)
	} else {
		digest = hashHex(rawContent(ev))
		fallback = true
	}

	year := ev.ReceivedAt.UTC().Year()

	return models.Identity{
		ApplicationID: fmt.Sprintf("APP_%d_%s", year, digest[:12]),
		StudentID:     "STU_" + strings.ToUpper(digest[:8]),
		Fallback:      fallback,
	}
}

func normalize(sender string) string {
	return strings.ToLower(strings.TrimSpace(sender))
}

func rawContent(ev *models.ApplicationEvent) string {
	var b strings.Builder
	b.WriteString(ev.Sender)
	b.WriteString("|")
	b.WriteString(ev.Subject)
	b.WriteString("|")
	b.WriteString(ev.Body)
	for _, att := range ev.Attachments {
		b.WriteString("|")
		b.WriteString(att.Filename)
	}
	return b.String()
}

func hashHex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
