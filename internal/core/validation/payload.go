package validation

import (
	"strings"
	"unicode/utf8"
)

// =============================================================================
// Schema Constants
// =============================================================================

const (
	// NameMinLength and NameMaxLength bound the repository name field.
	NameMinLength = 3
	NameMaxLength = 100

	// PrivateMarker is the literal sentinel carried by form-style payloads
	// when the private flag is set. Its presence means private; its absence
	// means public. Any other value is a schema violation.
	PrivateMarker = "on"
)

// =============================================================================
// Violations
// =============================================================================

// Violation describes a single schema violation in a payload.
type Violation struct {
	Field   string
	Message string
}

func (v Violation) String() string {
	return v.Field + " " + v.Message
}

// RenderViolations renders a list of violations as a single human-readable
// message.
func RenderViolations(violations []Violation) string {
	parts := make([]string, 0, len(violations))
	for _, v := range violations {
		parts = append(parts, v.String())
	}
	return strings.Join(parts, "; ")
}

// =============================================================================
// Create Organization Template Payload
// =============================================================================

// CreateOrganizationTemplateInput is the typed result of validating a
// create-organization-template payload. The private marker is collapsed to
// a boolean here; the web-form "on"/absent encoding does not leak further.
type CreateOrganizationTemplateInput struct {
	Name               string
	TemplateID         string
	Private            bool
	AppAuthorizationID string
}

// ParseCreateOrganizationTemplate validates an untyped payload against the
// schema {name: string 3..100, template_id: string, private: optional "on",
// app_authorization_id: string}. On success it returns the typed input; on
// failure it returns all schema violations found.
func ParseCreateOrganizationTemplate(payload any) (*CreateOrganizationTemplateInput, []Violation) {
	fields, ok := payload.(map[string]any)
	if !ok {
		return nil, []Violation{{Field: "payload", Message: "must be an object"}}
	}

	var violations []Violation
	input := &CreateOrganizationTemplateInput{}

	if name, v := requireString(fields, "name"); v != nil {
		violations = append(violations, *v)
	} else if utf8.RuneCountInString(name) < NameMinLength {
		violations = append(violations, Violation{Field: "name", Message: "must be at least 3 characters"})
	} else if utf8.RuneCountInString(name) > NameMaxLength {
		violations = append(violations, Violation{Field: "name", Message: "must be at most 100 characters"})
	} else {
		input.Name = name
	}

	if templateID, v := requireString(fields, "template_id"); v != nil {
		violations = append(violations, *v)
	} else {
		input.TemplateID = templateID
	}

	if authorizationID, v := requireString(fields, "app_authorization_id"); v != nil {
		violations = append(violations, *v)
	} else {
		input.AppAuthorizationID = authorizationID
	}

	if private, present := fields["private"]; present {
		if private == PrivateMarker {
			input.Private = true
		} else {
			violations = append(violations, Violation{Field: "private", Message: `must be "on" when present`})
		}
	}

	if len(violations) > 0 {
		return nil, violations
	}
	return input, nil
}

// requireString extracts a required non-empty string field.
func requireString(fields map[string]any, name string) (string, *Violation) {
	value, present := fields[name]
	if !present || value == nil {
		return "", &Violation{Field: name, Message: "is required"}
	}
	s, ok := value.(string)
	if !ok {
		return "", &Violation{Field: name, Message: "must be a string"}
	}
	if s == "" {
		return "", &Violation{Field: name, Message: "is required"}
	}
	return s, nil
}
