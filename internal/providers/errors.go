package providers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
)

// Remote error kinds
var (
	ErrSuggestionFailed = errors.New("caption suggestion failed")
	ErrNoImageReturned  = errors.New("no image returned")
	ErrKeyInvalid       = errors.New("API key was rejected")
	ErrRemoteTransport  = errors.New("remote generation service error")
)

// message fragments the service uses when it refuses a credential
var keyInvalidSignatures = []string{
	"requested entity was not found",
	"api key not valid",
	"api_key_invalid",
	"incorrect api key",
	"invalid api key",
}

// Classify wraps a remote call error with its kind. Errors already
// carrying a kind are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{ErrKeyInvalid, ErrNoImageReturned, ErrSuggestionFailed, ErrRemoteTransport} {
		if errors.Is(err, kind) {
			return err
		}
	}
	if IsKeyInvalid(err) {
		return fmt.Errorf("%w: %w", ErrKeyInvalid, err)
	}
	return fmt.Errorf("%w: %w", ErrRemoteTransport, err)
}

// IsKeyInvalid reports whether err looks like a credential rejection
func IsKeyInvalid(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrKeyInvalid) {
		return true
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, sig := range keyInvalidSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// StatusError is a non-200 response from a REST provider
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("received non-200 status code: %d - %s", e.Code, e.Body)
}

// ClassifyStatus maps an HTTP status to an error kind
func ClassifyStatus(code int, body string) error {
	err := &StatusError{Code: code, Body: body}
	if code == http.StatusUnauthorized || code == http.StatusForbidden || IsKeyInvalid(err) {
		return fmt.Errorf("%w: %w", ErrKeyInvalid, err)
	}
	return fmt.Errorf("%w: %w", ErrRemoteTransport, err)
}
