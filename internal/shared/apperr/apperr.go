package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	Invalid             Kind = "invalid"
	NotFound            Kind = "not_found"
	Unauthorized        Kind = "unauthorized"
	Forbidden           Kind = "forbidden"
	Conflict            Kind = "conflict"
	UpstreamUnavailable Kind = "upstream_unavailable"
	BadUpstream         Kind = "bad_upstream"
	Internal            Kind = "internal"
)

const genericMsg = "Unexpected error, please try again later."

func (e *AppError) Error() string {
	if e.Err != nil {
		if e.PublicMsg != "" {
			return fmt.Sprintf("%s: %s: %v", e.Kind, e.PublicMsg, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	if e.PublicMsg != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.PublicMsg)
	}
	return string(e.Kind)
}

func (e *AppError) Unwrap() error { return e.Err }

// WithCause attaches an internal cause without changing the public message.
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// Constructors. PublicMsg must be short and safe to return to clients.
func InvalidErr(publicMsg string, fields map[string]string) *AppError {
	return &AppError{Kind: Invalid, PublicMsg: publicMsg, Fields: fields}
}
func NotFoundErr(publicMsg string) *AppError {
	return &AppError{Kind: NotFound, PublicMsg: publicMsg}
}
func UnauthorizedErr(publicMsg string) *AppError {
	return &AppError{Kind: Unauthorized, PublicMsg: publicMsg}
}
func ForbiddenErr(publicMsg string) *AppError {
	return &AppError{Kind: Forbidden, PublicMsg: publicMsg}
}
func ConflictErr(publicMsg string) *AppError {
	return &AppError{Kind: Conflict, PublicMsg: publicMsg}
}
func UpstreamUnavailableErr(publicMsg string, cause error) *AppError {
	return &AppError{Kind: UpstreamUnavailable, PublicMsg: publicMsg, Err: cause}
}
func BadUpstreamErr(publicMsg string, cause error) *AppError {
	return &AppError{Kind: BadUpstream, PublicMsg: publicMsg, Err: cause}
}

// Wrap hides an internal error behind the generic message (500).
// Storage failures go through here so driver detail never reaches the caller.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if ae, ok := As(err); ok {
		return ae
	}
	return &AppError{Kind: Internal, PublicMsg: genericMsg, Err: err}
}

func As(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf returns Internal for anything that is not an *AppError.
func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return Internal
}

func HTTPStatus(err error) int {
	if ae, ok := As(err); ok {
		switch ae.Kind {
		case Invalid:
			return http.StatusBadRequest
		case Unauthorized:
			return http.StatusUnauthorized
		case Forbidden:
			return http.StatusForbidden
		case NotFound:
			return http.StatusNotFound
		case Conflict:
			return http.StatusConflict
		case UpstreamUnavailable:
			return http.StatusServiceUnavailable
		case BadUpstream:
			return http.StatusBadGateway
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

func PublicMessage(err error) string {
	if ae, ok := As(err); ok && ae.PublicMsg != "" {
		return ae.PublicMsg
	}
	return genericMsg
}
