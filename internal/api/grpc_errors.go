package api

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/meshlink-planner/core"
	"github.com/signalsfoundry/meshlink-planner/radio"
)

// ErrNonFiniteResult is returned instead of a summary containing NaN or
// Inf values.
var ErrNonFiniteResult = errors.New("estimation produced non-finite values")

// Code classifies err into the gRPC code used on both transports.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if st, ok := status.FromError(err); ok {
		return st.Code()
	}

	switch {
	case errors.Is(err, radio.ErrUnknownVariant):
		return codes.NotFound
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, core.ErrInvalidParameter),
		errors.Is(err, core.ErrInvalidMode):
		return codes.InvalidArgument
	case errors.Is(err, ErrNonFiniteResult):
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}

// ToStatusError maps estimator errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(Code(err), err.Error())
}

// HTTPStatus maps estimator errors onto REST status codes.
func HTTPStatus(err error) int {
	switch Code(err) {
	case codes.OK:
		return http.StatusOK
	case codes.NotFound:
		return http.StatusNotFound
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.FailedPrecondition:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
