package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

)

const (
	MaxTitleLength       = 120
	MaxDescriptionLength = 1000
	MaxOptionLength      = 80
	MinOptions           = 2
	MaxOptions           = 20
	MaxNameLength        = 50
)

var (
	ErrTitleRequired = errors.New("Title is required")
	ErrTooFewOptions = fmt.Errorf("Enter at least %d options", MinOptions)
)

// FieldErrors maps form field names to the message shown next to them
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, field := range []string{"title", "description", "options", "name", "credential"} {
		if msg, ok := e[field]; ok {
			parts = append(parts, field+": "+msg)
		}
	}
	return strings.Join(parts, "; ")
}

// ValidateRequired checks that a field is not blank
func ValidateRequired(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New(fieldName + " is required")
	}
	return nil
}

// ValidateMaxLength checks the length of a string in characters
func ValidateMaxLength(value string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(value) > maxLength {
		return fmt.Errorf("%s must be at most %d characters long", fieldName, maxLength)
	}
	return nil
}

// ValidateEmail checks for a single @ with something on both sides
func ValidateEmail(email string) error {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") || strings.ContainsAny(email, " \t\n") {
		return errors.New("email must have a valid format")
	}
	return nil
}

// FilledOptions trims labels and drops the blank ones
func FilledOptions(options []string) []string {
	filled := make([]string, 0, len(options))
	for _, o := range options {
		if o = strings.TrimSpace(o); o != "" {
			filled = append(filled, o)
		}
	}
	return filled
}

// EventValidation holds the rules of the create and edit event forms
type EventValidation struct{}

// Validate checks a whole form and reports every failing field
func (v EventValidation) Validate(title, description string, options []string) error {
	errs := FieldErrors{}

	if err := v.ValidateEventTitle(title); err != nil {
		errs["title"] = err.Error()
	}
	if err := v.ValidateEventDescription(description); err != nil {
		errs["description"] = err.Error()
	}
	if err := v.ValidateOptions(options); err != nil {
		errs["options"] = err.Error()
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateEventTitle requires a non-blank title
func (v EventValidation) ValidateEventTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrTitleRequired
	}
	return ValidateMaxLength(strings.TrimSpace(title), MaxTitleLength, "title")
}

// ValidateEventDescription allows an empty description
func (v EventValidation) ValidateEventDescription(description string) error {
	return ValidateMaxLength(strings.TrimSpace(description), MaxDescriptionLength, "description")
}

// ValidateOptions requires at least two non-blank labels
func (v EventValidation) ValidateOptions(options []string) error {
	filled := FilledOptions(options)
	if len(filled) < MinOptions {
		return ErrTooFewOptions
	}
	if len(filled) > MaxOptions {
		return fmt.Errorf("at most %d options are allowed", MaxOptions)
	}
	for _, o := range filled {
		if err := ValidateMaxLength(o, MaxOptionLength, "option"); err != nil {
			return err
		}
	}
	return nil
}

// UserValidation holds the rules of the profile form
type UserValidation struct{}

// ValidateUserName requires a non-blank name of bounded length
func (v UserValidation) ValidateUserName(name string) error {
	if err := ValidateRequired(name, "name"); err != nil {
		return err
	}
	return ValidateMaxLength(strings.TrimSpace(name), MaxNameLength, "name")
}
