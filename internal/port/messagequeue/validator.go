package messagequeue

import (
	"encoding/json"
	"fmt"

	"github.com/Strob0t/MailWarden/internal/validation"
)

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects only need to be
// well-formed JSON.
func Validate(subject string, data []byte) error {
	switch subject {
	case SubjectCoordinationRequest:
		if err := validation.CoordinationRequest(data); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		return nil
	case SubjectCoordinationCompleted:
		var p CoordinationCompletedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if p.EmailID == "" {
			return fmt.Errorf("schema validation failed for %s: email_id is required", subject)
		}
		return nil
	}
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}
	return nil
}
