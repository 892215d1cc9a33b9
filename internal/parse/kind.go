package parse

import (
	"mime"
	"strings"

	"github.com/sweeney/okay-to-wake/internal/schedule"
)

// Kind selects the parser for a payload.
type Kind string

const (
	KindText Kind = "text"
	KindJSON Kind = "json"
	KindYAML Kind = "yaml"
)

// ParseKind converts a configuration or query string into a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "txt", "":
		return KindText, nil
	case "json":
		return KindJSON, nil
	case "yaml", "yml":
		return KindYAML, nil
	}
	return "", &Error{Kind: ErrUnknownKind, Detail: s}
}

// KindFromContentType maps a MIME type to a Kind. Anything that is not
// JSON or YAML is treated as the text format.
func KindFromContentType(contentType string) Kind {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return KindText
	}
	switch {
	case mt == "application/json" || strings.HasSuffix(mt, "+json"):
		return KindJSON
	case mt == "application/yaml" || mt == "application/x-yaml" || mt == "text/yaml" || strings.HasSuffix(mt, "+yaml"):
		return KindYAML
	}
	return KindText
}

// Parse dispatches payload to the parser for kind.
func Parse(kind Kind, payload []byte) (schedule.Week, error) {
	switch kind {
	case KindText:
		return ParseText(payload)
	case KindJSON:
		return ParseDocument(payload)
	case KindYAML:
		return ParseYAML(payload)
	}
	return schedule.Week{}, &Error{Kind: ErrUnknownKind, Detail: string(kind)}
}
