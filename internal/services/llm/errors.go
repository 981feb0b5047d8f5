package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Class buckets failures by whether a retry can help.
type Class int

const (
	ClassPermanent Class = iota
	ClassTransient
)

func (c Class) String() string {
	if c == ClassTransient {
		return "transient"
	}
	return "permanent"
}

// Error is the classified failure of a single completion attempt.
type Error struct {
	Class      Class
	StatusCode int
	Op         string
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(e.Op)
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, ": http %d", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Transient reports whether the failure may succeed on retry.
func (e *Error) Transient() bool {
	return e != nil && e.Class == ClassTransient
}

var (
	// ErrEmptyContent reports a response that decoded but carried no text.
	ErrEmptyContent = errors.New("empty content")
	// ErrInvalidRequest reports a request rejected before it was sent.
	ErrInvalidRequest = errors.New("invalid request")
)

type emptyContentError struct {
	FinishReason string
	Choices      int
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("%s (finish_reason=%q, choices=%d)", ErrEmptyContent, e.FinishReason, e.Choices)
}

func (e *emptyContentError) Is(target error) bool {
	return target == ErrEmptyContent
}

// Classify maps err onto a retry class. A nil error is permanent.
func Classify(err error) Class {
	if err == nil {
		return ClassPermanent
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Class
	}
	return classify(err)
}

// IsTransient is shorthand for Classify(err) == ClassTransient.
func IsTransient(err error) bool {
	return Classify(err) == ClassTransient
}

// StatusCode extracts the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var classified *Error
	if errors.As(err, &classified) && classified.StatusCode > 0 {
		return classified.StatusCode
	}
	return statusOf(err)
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}
	return &Error{Class: classify(err), StatusCode: statusOf(err), Op: op, Err: err}
}

func classify(err error) Class {
	switch {
	case errors.Is(err, context.Canceled):
		return ClassPermanent
	case errors.Is(err, context.DeadlineExceeded):
		return ClassTransient
	case errors.Is(err, ErrInvalidRequest):
		return ClassPermanent
	case errors.Is(err, ErrEmptyContent):
		return ClassTransient
	}

	if status := statusOf(err); status > 0 {
		return classifyStatus(status)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassTransient
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ClassTransient
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return ClassTransient
	}
	return ClassPermanent
}

func classifyStatus(status int) Class {
	switch {
	case status == http.StatusRequestTimeout,
		status == http.StatusConflict,
		status == http.StatusTooManyRequests,
		status >= http.StatusInternalServerError:
		return ClassTransient
	default:
		return ClassPermanent
	}
}

func statusOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
