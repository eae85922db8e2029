package core

import (
	"errors"
	"fmt"
)

// ErrUnauthorized marks a command sender that is not in the directory.
var ErrUnauthorized = errors.New("sender is not a registered recipient")

// UpstreamError reports a failed call to an external service: network
// failure or a non-2xx response from the exchange or the bot platform.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// DataShapeError reports an upstream response that does not match the
// expected record shape.
type DataShapeError struct {
	Field string
	Value string
	Err   error
}

func (e *DataShapeError) Error() string {
	return fmt.Sprintf("unexpected %s value %q: %v", e.Field, e.Value, e.Err)
}

func (e *DataShapeError) Unwrap() error { return e.Err }

// DeliveryError reports a failed send to a single recipient.
type DeliveryError struct {
	RecipientID string
	Err         error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s failed: %v", e.RecipientID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
