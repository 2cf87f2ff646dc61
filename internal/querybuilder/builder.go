// Package querybuilder turns a resource selection and an optional query
// suffix into a request descriptor. It never touches the network.
package querybuilder

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"apiquery/internal/model"
)

var (
	ErrMissingQueryPrefix = errors.New("query string must start with '?'")
	ErrEmptyQuery         = errors.New("query cannot be empty")
)

// ValidationError is returned for user input that must be edited before a
// request can be made.
type ValidationError struct {
	Input  string
	Reason error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid query %q: %v", e.Input, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Reason
}

// Build resolves base, resource and suffix into a descriptor.
// An empty or whitespace-only suffix adds nothing; any other suffix must
// start with '?'. Unknown resources panic: callers only offer known ones.
func Build(base string, resource model.Resource, suffix string) (model.RequestDescriptor, error) {
	info, ok := model.Resources[resource]
	if !ok {
		panic(fmt.Sprintf("querybuilder: unknown resource %q", resource))
	}

	target := strings.TrimRight(base, "/") + "/" + info.Path

	suffix = strings.TrimSpace(suffix)
	if suffix != "" {
		if !strings.HasPrefix(suffix, "?") {
			return model.RequestDescriptor{}, &ValidationError{Input: suffix, Reason: ErrMissingQueryPrefix}
		}
		target += suffix
	}

	return model.RequestDescriptor{Resource: resource, URL: target}, nil
}

// BuildRaw appends the URL-encoded raw query to a fixed prefix.
func BuildRaw(prefix, query string) (model.RequestDescriptor, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return model.RequestDescriptor{}, &ValidationError{Input: query, Reason: ErrEmptyQuery}
	}
	return model.RequestDescriptor{URL: prefix + url.QueryEscape(query)}, nil
}
