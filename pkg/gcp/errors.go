package gcp

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/api/googleapi"
)

// Kind classifies a cloud API failure. The reconciler surfaces the kind in
// the run report; it never retries.
type Kind string

const (
	KindQuota      Kind = "quota"
	KindPermission Kind = "permission"
	KindTransient  Kind = "transient"
	KindUnknown    Kind = "unknown"
)

// APIError wraps a failed cloud call with its classification.
type APIError struct {
	Kind    Kind
	Op      string
	Project string
	Err     error
}

func (e *APIError) Error() string {
	if e.Project != "" {
		return fmt.Sprintf("%s (%s) for project %s: %v", e.Op, e.Kind, e.Project, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// operationError carries the status of a failed long-running operation.
// Codes follow google.rpc.Code.
type operationError struct {
	code    int64
	message string
}

func (e *operationError) Error() string {
	return fmt.Sprintf("operation failed with code %d: %s", e.code, e.message)
}

// Classify maps an error from a Google API call to a Kind.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == 429:
			return KindQuota
		case gerr.Code == 401 || gerr.Code == 403:
			return KindPermission
		case gerr.Code >= 500:
			return KindTransient
		}
		return KindUnknown
	}

	var operr *operationError
	if errors.As(err, &operr) {
		switch operr.code {
		case 8: // RESOURCE_EXHAUSTED
			return KindQuota
		case 7, 16: // PERMISSION_DENIED, UNAUTHENTICATED
			return KindPermission
		case 4, 13, 14: // DEADLINE_EXCEEDED, INTERNAL, UNAVAILABLE
			return KindTransient
		}
		return KindUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransient
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return KindTransient
	}

	return KindUnknown
}

// KindOf returns the classification of an error, preferring the Kind
// already carried by an APIError in its chain.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return Classify(err)
}

// IsPermission reports whether the error is a permission failure.
func IsPermission(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind == KindPermission
	}
	return Classify(err) == KindPermission
}

func wrapErr(op, project string, err error) error {
	return &APIError{Kind: Classify(err), Op: op, Project: project, Err: err}
}
