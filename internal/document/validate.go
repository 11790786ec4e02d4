package document

import (
	"errors"
	"fmt"
	"strings"
)

// SchemaError reports where a document leaves the supported grammar.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	if e == nil {
		return ""
	}
	if e.Path == "" {
		return "schema error: " + e.Reason
	}
	return fmt.Sprintf("schema error at %s: %s", e.Path, e.Reason)
}

func schemaErr(path, reason string) *SchemaError {
	return &SchemaError{Path: path, Reason: reason}
}

// IsSchemaError reports whether err is or wraps a *SchemaError.
func IsSchemaError(err error) bool {
	var schemaErr *SchemaError
	return errors.As(err, &schemaErr)
}

// Validate checks a document built in code. Documents produced by Parse are
// already valid.
func Validate(doc Document) error {
	for i, p := range doc.Paragraphs {
		for j, run := range p.Runs {
			path := fmt.Sprintf("content[%d].content[%d]", i, j)
			if run.Text == "" {
				return schemaErr(path, "text cannot be empty")
			}
			seen := make(map[MarkKind]bool, len(run.Marks))
			for k, mark := range run.Marks {
				markPath := fmt.Sprintf("%s.marks[%d]", path, k)
				if !knownMark(mark.Kind) {
					return schemaErr(markPath, fmt.Sprintf("unsupported mark %q", mark.Kind))
				}
				if seen[mark.Kind] {
					return schemaErr(markPath, fmt.Sprintf("duplicate mark %q", mark.Kind))
				}
				seen[mark.Kind] = true
				if mark.Kind == MarkLink && !validHref(mark.Href) {
					return schemaErr(markPath, "link href must start with http:// or https://")
				}
			}
		}
	}
	return nil
}

// ValidateJSON is Parse without the result.
func ValidateJSON(raw []byte) error {
	_, err := Parse(raw)
	return err
}

func validHref(href string) bool {
	rest, ok := strings.CutPrefix(href, "https://")
	if !ok {
		rest, ok = strings.CutPrefix(href, "http://")
	}
	// a bare scheme is not a link
	return ok && rest != ""
}
