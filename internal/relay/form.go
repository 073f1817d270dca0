package relay

import (
	"encoding/json"
	"strings"
)

// requiredFields lists the form keys every submission must carry
var requiredFields = []string{"name", "email", "message"}

// Submission is one validated contact form post
type Submission struct {
	Name    string
	Email   string
	Message string
	IP      string
}

// ParseSubmission decodes a request body and validates the form fields.
//
// A body that is not a JSON object, or that lacks any required key, yields
// ErrMissingFields. A key that is present but not a string, or is blank
// after trimming, yields ErrInvalidFields. Accepted values are kept as sent.
func ParseSubmission(body []byte, ip string) (*Submission, error) {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil || len(data) == 0 {
		return nil, ErrMissingFields
	}

	for _, key := range requiredFields {
		if _, ok := data[key]; !ok {
			return nil, ErrMissingFields
		}
	}

	values := make(map[string]string, len(requiredFields))
	for _, key := range requiredFields {
		s, ok := data[key].(string)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, ErrInvalidFields
		}
		values[key] = s
	}

	return &Submission{
		Name:    values["name"],
		Email:   values["email"],
		Message: values["message"],
		IP:      ip,
	}, nil
}
