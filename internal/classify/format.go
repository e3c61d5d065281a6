package classify

import (
	"errors"
	"strings"
)

// Format renders c for a terminal or log. Technical details are only
// included when verbose is set.
func Format(c Classification, verbose bool) string {
	var b strings.Builder
	b.WriteString("ERROR [")
	b.WriteString(string(c.Category))
	b.WriteString("]: ")
	b.WriteString(c.Message)
	b.WriteString("\nSuggestion: ")
	b.WriteString(c.Suggestion)
	if verbose {
		b.WriteString("\nTechnical details:\n  Type: ")
		b.WriteString(c.Type)
		b.WriteString("\n  Message: ")
		if c.Original != nil {
			b.WriteString(c.Original.Error())
		}
	}
	return b.String()
}

// ClassifiedError carries a classification through error returns.
type ClassifiedError struct {
	Classification
}

// Wrap classifies err and returns it as a *ClassifiedError. A nil err stays nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return err
	}
	return &ClassifiedError{Classification: Classify(err)}
}

func (e *ClassifiedError) Error() string {
	if e.Original == nil {
		return string(e.Category) + ": " + e.Message
	}
	return string(e.Category) + ": " + e.Message + ": " + e.Original.Error()
}

func (e *ClassifiedError) Unwrap() error { return e.Original }
