package pii

import (
	"encoding/json"
	"log/slog"
)

const RedactedPlaceholder = "[REDACTED]"

// Redactor scrubs sensitive fields from audit record details before they are
// persisted. Audit details are caller-supplied JSON and routinely carry
// contact emails and phone numbers from campaign payloads.
type Redactor struct {
	fieldsToRedact map[string]struct{} // Use a map for O(1) lookups
	logger         *slog.Logger
}

// NewRedactor creates a new Redactor instance with a given set of fields to redact.
func NewRedactor(fields []string, logger *slog.Logger) *Redactor {
	fieldSet := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		fieldSet[field] = struct{}{}
	}
	return &Redactor{
		fieldsToRedact: fieldSet,
		logger:         logger,
	}
}

// Redact returns a copy of details with configured top-level fields replaced
// by a placeholder. Non-object details are returned unchanged: there is
// nothing addressable to scrub in a bare array or scalar.
func (r *Redactor) Redact(details json.RawMessage) json.RawMessage {
	if len(r.fieldsToRedact) == 0 || len(details) == 0 {
		return details
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(details, &payload); err != nil {
		return details
	}

	redacted := false
	for field := range r.fieldsToRedact {
		if _, ok := payload[field]; ok {
			payload[field] = RedactedPlaceholder
			redacted = true
		}
	}
	if !redacted {
		return details
	}

	scrubbed, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error("failed to re-marshal details after redaction", "error", err)
		return details
	}
	return scrubbed
}
