package service

import (
	"fmt"
	"strings"
)

type MissingCredentialsError struct {
	Missing []string
}

func (e *MissingCredentialsError) Error() string {
	return fmt.Sprintf("missing Nextcloud credentials or domain in environment variables: %s", strings.Join(e.Missing, ", "))
}

type InvalidPathError struct {
	Path string
	Err  error
}

func (e *InvalidPathError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid Nautilus WebDAV file path %q: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("invalid Nautilus WebDAV file path %q", e.Path)
}

func (e *InvalidPathError) Unwrap() error {
	return e.Err
}

// NetworkError is a transport failure or a non-2xx HTTP status.
// StatusCode is zero when no response was received.
type NetworkError struct {
	Status     string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("network request failed: %v", e.Err)
	}
	return fmt.Sprintf("network response was not ok: %s", e.Status)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

type ShareCreationError struct {
	Code    int
	Message string
}

func (e *ShareCreationError) Error() string {
	return fmt.Sprintf("failed to create share link: %s", e.Message)
}
