package drive

import (
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
)

var (
	// ErrDiscovery marks a folder that could not be listed.
	ErrDiscovery = errors.New("drive: discovery failed")

	// ErrTooLarge is returned when a download exceeds the configured limit.
	ErrTooLarge = errors.New("drive: file exceeds download limit")
)

// IsNotFound returns true if the error indicates a missing file or folder.
func IsNotFound(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusNotFound
	}
	return false
}

// IsServerError returns true for 5xx answers from Google.
func IsServerError(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code >= http.StatusInternalServerError
	}
	return false
}

// IsRateLimited returns true if Google answered with a rate limit error.
func IsRateLimited(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusTooManyRequests {
			return true
		}
		if gerr.Code == http.StatusForbidden {
			for _, e := range gerr.Errors {
				if e.Reason == "rateLimitExceeded" || e.Reason == "userRateLimitExceeded" {
					return true
				}
			}
		}
	}
	return false
}
