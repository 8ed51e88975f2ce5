// Package validation enforces the per-field rules of the contact form and
// produces the sanitized record handed to the notifier.
package validation

import (
	"fmt"
	"html"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

type Kind int

const (
	KindName Kind = iota
	KindEmail
	KindPhone
	KindText
)

// Field describes one form field. The set is fixed at compile time rather
// than driven by a string-keyed rule map.
type Field struct {
	Name      string
	Label     string
	Kind      Kind
	Required  bool
	MinLength int
	MaxLength int
}

// Fields is the contact form's rule table, in form order.
var Fields = []Field{
	{Name: "firstName", Label: "First Name", Kind: KindName, Required: true, MinLength: 2, MaxLength: 50},
	{Name: "lastName", Label: "Last Name", Kind: KindName, Required: true, MinLength: 2, MaxLength: 50},
	{Name: "email", Label: "Email", Kind: KindEmail, Required: true, MaxLength: 254},
	{Name: "phone", Label: "Phone", Kind: KindPhone, Required: true, MinLength: 10, MaxLength: 15},
	{Name: "message", Label: "Message", Kind: KindText, Required: true, MinLength: 10, MaxLength: 1000},
}

var (
	phonePattern    = regexp.MustCompile(`^[\d\s\-+()]{10,15}$`)
	namePattern     = regexp.MustCompile(`^[A-Za-z\s\-']{2,50}$`)
	phoneKeepChars  = regexp.MustCompile(`[^0-9+\-\s()]`)
	nameKeepChars   = regexp.MustCompile(`[^A-Za-z\s\-']`)
	emailStripChars = regexp.MustCompile("[^a-zA-Z0-9.!#$%&'*+\\-/=?^_`{|}~@\\[\\]]")
)

// Result carries every collected error plus the sanitized value of each
// field. A non-empty Errors map rejects the whole submission.
type Result struct {
	Errors    map[string]string
	Sanitized map[string]string
}

func (r Result) OK() bool {
	return len(r.Errors) == 0
}

// Validate runs the full rule table over the raw submission values. Errors do
// not short-circuit within a field's length checks, so a client sees every
// problem at once.
func Validate(values map[string]string) Result {
	res := Result{
		Errors:    make(map[string]string),
		Sanitized: make(map[string]string),
	}

	for _, field := range Fields {
		value := clean(values[field.Name])

		if value == "" {
			if field.Required {
				res.Errors[field.Name] = field.Label + " is required"
			}
			res.Sanitized[field.Name] = ""
			continue
		}

		length := utf8.RuneCountInString(value)
		if field.MinLength > 0 && length < field.MinLength {
			res.Errors[field.Name] = fmt.Sprintf("%s must be at least %d characters", field.Label, field.MinLength)
		}
		if field.MaxLength > 0 && length > field.MaxLength {
			res.Errors[field.Name] = fmt.Sprintf("%s must not exceed %d characters", field.Label, field.MaxLength)
		}

		switch field.Kind {
		case KindEmail:
			value = emailStripChars.ReplaceAllString(value, "")
			if _, err := mail.ParseAddress(value); err != nil {
				res.Errors[field.Name] = "Please enter a valid email address"
			}
		case KindPhone:
			value = phoneKeepChars.ReplaceAllString(value, "")
			if !phonePattern.MatchString(value) {
				res.Errors[field.Name] = "Please enter a valid phone number"
			}
		case KindName:
			value = nameKeepChars.ReplaceAllString(value, "")
			if !namePattern.MatchString(value) {
				res.Errors[field.Name] = "Please enter a valid " + strings.ToLower(field.Label)
			}
		case KindText:
			value = html.EscapeString(value)
		}

		res.Sanitized[field.Name] = value
	}

	return res
}

// clean strips NUL bytes and surrounding whitespace; it runs before every
// other check.
func clean(value string) string {
	return strings.TrimSpace(strings.ReplaceAll(value, "\x00", ""))
}
