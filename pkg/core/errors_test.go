package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")

	upstream := &UpstreamError{Service: "binance", Err: cause}
	require.ErrorIs(t, upstream, cause)
	require.Contains(t, upstream.Error(), "binance")

	shape := &DataShapeError{Field: "quoteVolume", Value: "oops", Err: cause}
	require.ErrorIs(t, shape, cause)
	require.Contains(t, shape.Error(), `"oops"`)

	delivery := &DeliveryError{RecipientID: "42", Err: cause}
	require.ErrorIs(t, delivery, cause)
	require.Contains(t, delivery.Error(), "42")
}

func TestErrorAsTargets(t *testing.T) {
	var wrapped error = &UpstreamError{Service: "telegram", Err: errors.New("timeout")}

	var upstream *UpstreamError
	require.ErrorAs(t, wrapped, &upstream)
	require.Equal(t, "telegram", upstream.Service)
}
