package errors

import (
	"errors"
	"fmt"
	"time"
)

// ReadinessTimeoutError indicates the readiness marker was not observed before the deadline.
type ReadinessTimeoutError struct {
	Service string
	Marker  string
	Timeout time.Duration
}

func NewReadinessTimeoutError(service, marker string, timeout time.Duration) *ReadinessTimeoutError {
	return &ReadinessTimeoutError{Service: service, Marker: marker, Timeout: timeout}
}

func (e *ReadinessTimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for %q in logs of %s", e.Timeout, e.Marker, e.Service)
}

// IsReadinessTimeoutError checks if the error is a ReadinessTimeoutError.
func IsReadinessTimeoutError(err error) bool {
	var e *ReadinessTimeoutError
	return errors.As(err, &e)
}

// ServiceFailedError indicates the service logged a failure marker instead of becoming ready.
type ServiceFailedError struct {
	Service string
	Marker  string
}

func NewServiceFailedError(service, marker string) *ServiceFailedError {
	return &ServiceFailedError{Service: service, Marker: marker}
}

func (e *ServiceFailedError) Error() string {
	return fmt.Sprintf("service %s reported failure: %q", e.Service, e.Marker)
}

// IsServiceFailedError checks if the error is a ServiceFailedError.
func IsServiceFailedError(err error) bool {
	var e *ServiceFailedError
	return errors.As(err, &e)
}

// ExpectationMismatchError indicates a live value diverged from the expectation table.
type ExpectationMismatchError struct {
	Category string
	Resource string
	Expected string
	Actual   string
}

func NewExpectationMismatchError(category, resource, expected, actual string) *ExpectationMismatchError {
	return &ExpectationMismatchError{
		Category: category,
		Resource: resource,
		Expected: expected,
		Actual:   actual,
	}
}

func (e *ExpectationMismatchError) Error() string {
	return fmt.Sprintf("%s %q: expected %s, got %s", e.Category, e.Resource, e.Expected, e.Actual)
}

func IsExpectationMismatchError(err error) bool {
	var e *ExpectationMismatchError
	return errors.As(err, &e)
}

// ResourceNotFoundError indicates a required resource is absent from the server.
type ResourceNotFoundError struct {
	Kind string
	Name string
}

func NewResourceNotFoundError(kind, name string) *ResourceNotFoundError {
	return &ResourceNotFoundError{Kind: kind, Name: name}
}

func NewPluginNotFoundError(name string) *ResourceNotFoundError {
	return NewResourceNotFoundError("plugin", name)
}

func NewQualityGateNotFoundError(name string) *ResourceNotFoundError {
	return NewResourceNotFoundError("quality gate", name)
}

func NewQualityProfileNotFoundError(name string) *ResourceNotFoundError {
	return NewResourceNotFoundError("quality profile", name)
}

func NewContainerNotFoundError(name string) *ResourceNotFoundError {
	return NewResourceNotFoundError("container", name)
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

func IsResourceNotFoundError(err error) bool {
	var e *ResourceNotFoundError
	return errors.As(err, &e)
}

// UnexpectedStatusError indicates the server answered with a status code the check does not accept.
type UnexpectedStatusError struct {
	Endpoint   string
	StatusCode int
	Expected   int
}

func NewUnexpectedStatusError(endpoint string, statusCode, expected int) *UnexpectedStatusError {
	return &UnexpectedStatusError{Endpoint: endpoint, StatusCode: statusCode, Expected: expected}
}

func (e *UnexpectedStatusError) Error() string {
	if e.Expected == 0 {
		return fmt.Sprintf("%s: unexpected status code %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: expected status code %d, got %d", e.Endpoint, e.Expected, e.StatusCode)
}

func IsUnexpectedStatusError(err error) bool {
	var e *UnexpectedStatusError
	return errors.As(err, &e)
}

// HostPreconditionError indicates the host is not able to run the service.
type HostPreconditionError struct {
	Setting string
	Value   string
	Hint    string
}

func NewHostPreconditionError(setting, value, hint string) *HostPreconditionError {
	return &HostPreconditionError{Setting: setting, Value: value, Hint: hint}
}

func (e *HostPreconditionError) Error() string {
	return fmt.Sprintf("host precondition failed: %s=%s (hint: %s)", e.Setting, e.Value, e.Hint)
}

func IsHostPreconditionError(err error) bool {
	var e *HostPreconditionError
	return errors.As(err, &e)
}
