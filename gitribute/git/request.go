package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	json "github.com/goccy/go-json"
)

// Error records a failed preliminary read: the
// builder that issued it, the HTTP status and the
// provider message.
type Error struct {
	Function string `json:"function"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
}

// Error implements the error interface.
func (e Error) Error() string {
	return fmt.Sprintf(
		"%s: status %d: %s", e.Function, e.Code, e.Message,
	)
}

// Request describes an HTTP request for the caller to
// issue. It is never persisted.
type Request struct {
	Method string
	URL    string
	Header http.Header
	// Body is encoded as JSON when non-nil.
	Body any

	// NewBranchAlreadyExists is set by CreateBranch
	// when the target branch was found. Creating it
	// again would fail.
	NewBranchAlreadyExists bool

	// Errors accumulates failed preliminary reads.
	Errors []Error
}

// NewRequest returns a Request with an empty header.
func NewRequest(method string, url string) *Request {
	return &Request{
		Method: method,
		URL:    url,
		Header: make(http.Header),
	}
}

// AddError records a failed preliminary read.
func (r *Request) AddError(
	function string,
	code int,
	message string,
) {
	slog.Warn(
		"preliminary read failed",
		"function", function,
		"code", code,
		"message", message,
	)

	r.Errors = append(r.Errors, Error{
		Function: function,
		Code:     code,
		Message:  message,
	})
}

// Err joins the recorded errors, or returns nil when
// there are none.
func (r *Request) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}

	errs := make([]error, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, e)
	}

	return errors.Join(errs...)
}

// HTTPRequest builds the *http.Request described by r.
func (r *Request) HTTPRequest(
	ctx context.Context,
) (*http.Request, error) {
	const errCtx = "building http request"

	var body io.Reader

	if r.Body != nil {
		payload, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: marshal body: %w", errCtx, err,
			)
		}

		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(
		ctx, r.Method, r.URL, body,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	for key, vals := range r.Header {
		req.Header[key] = slices.Clone(vals)
	}

	return req, nil
}

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError is returned by Do for non-2xx responses.
type StatusError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}

// Do issues r with doer (http.DefaultClient when nil)
// and returns the response body. Non-2xx responses
// yield a wrapped *StatusError along with the body.
func Do(
	ctx context.Context,
	doer Doer,
	r *Request,
) ([]byte, error) {
	const errCtx = "executing request"

	if doer == nil {
		doer = http.DefaultClient
	}

	req, err := r.HTTPRequest(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	resp, err := doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %s %s: %w", errCtx, r.Method, r.URL, err,
		)
	}

	defer resp.Body.Close() //nolint:errcheck

	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: read body: %w", errCtx, err,
		)
	}

	slog.Debug(
		"provider response",
		"method", r.Method,
		"url", r.URL,
		"status", resp.Status,
	)

	if resp.StatusCode < http.StatusOK ||
		resp.StatusCode >= http.StatusMultipleChoices {
		return rb, fmt.Errorf(
			"%s: %s %s: %w",
			errCtx, r.Method, r.URL,
			&StatusError{
				Code:    resp.StatusCode,
				Message: MessageOf(rb),
			},
		)
	}

	return rb, nil
}

// MessageOf extracts the "message" (GitHub, GitLab) or
// "error" field of an error body, falling back to the
// raw text.
func MessageOf(body []byte) string {
	var payload struct {
		Message any    `json:"message"`
		Error   string `json:"error"`
	}

	if err := json.Unmarshal(body, &payload); err == nil {
		switch msg := payload.Message.(type) {
		case nil:
		case string:
			if msg != "" {
				return msg
			}
		default:
			// GitLab validation errors are objects.
			if b, err := json.Marshal(msg); err == nil {
				return string(b)
			}
		}

		if payload.Error != "" {
			return payload.Error
		}
	}

	return strings.TrimSpace(string(body))
}
