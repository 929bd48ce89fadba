package roadmap

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a raw model response could not become a roadmap.
type ErrorKind string

const (
	KindNoJSONFound     ErrorKind = "no_json_found"
	KindMalformedJSON   ErrorKind = "malformed_json"
	KindUpstreamRefusal ErrorKind = "upstream_refusal"
	KindSchemaViolation ErrorKind = "schema_violation"
)

var (
	// ErrNoJSONFound indicates the cleaned text holds no {...} span.
	ErrNoJSONFound = errors.New("no json object found in response")
	// ErrMalformedJSON indicates the candidate span is not valid JSON.
	ErrMalformedJSON = errors.New("response json is malformed")
	// ErrUpstreamRefusal indicates the model answered with an explicit error field.
	ErrUpstreamRefusal = errors.New("model declined to produce a roadmap")
	// ErrSchemaViolation indicates the JSON does not describe a valid roadmap.
	ErrSchemaViolation = errors.New("roadmap schema violation")
)

const maxSnippetLen = 160

// ParseError describes a failed Parse call.
type ParseError struct {
	Kind ErrorKind
	// Message is human readable. For refusals it is the model's own text.
	Message string
	// Path names the offending field for schema violations, e.g. levels[1].languages[0].url.
	Path string
	// Snippet holds a bounded excerpt of the offending input.
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case KindSchemaViolation:
		return fmt.Sprintf("%s: %s: %s", ErrSchemaViolation, e.Path, e.Message)
	case KindUpstreamRefusal:
		return fmt.Sprintf("%s: %s", ErrUpstreamRefusal, e.Message)
	case KindMalformedJSON:
		return fmt.Sprintf("%s: %s", ErrMalformedJSON, e.Message)
	default:
		return ErrNoJSONFound.Error()
	}
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is matches the package sentinels by kind.
func (e *ParseError) Is(target error) bool {
	switch target {
	case ErrNoJSONFound:
		return e.Kind == KindNoJSONFound
	case ErrMalformedJSON:
		return e.Kind == KindMalformedJSON
	case ErrUpstreamRefusal:
		return e.Kind == KindUpstreamRefusal
	case ErrSchemaViolation:
		return e.Kind == KindSchemaViolation
	}
	return false
}

// KindOf returns the kind of a ParseError anywhere in err's chain, or "" when there is none.
func KindOf(err error) ErrorKind {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Kind
	}
	return ""
}

func violation(path, message string) *ParseError {
	return &ParseError{Kind: KindSchemaViolation, Path: path, Message: message}
}

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= maxSnippetLen {
		return text
	}
	return string(runes[:maxSnippetLen]) + "…"
}
