package failure

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure is a wrapper for error messages and codes using standard HTTP response codes.
type Failure struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

var InvalidPageParam = &Failure{Code: http.StatusBadRequest, Message: "invalid page parameter"}
var InvalidLimitParam = &Failure{Code: http.StatusBadRequest, Message: "invalid limit parameter"}
var ForbiddenError = &Failure{Code: http.StatusForbidden, Message: "You don't have the required permissions"}
var ResourceRestrictedError = &Failure{Code: http.StatusForbidden, Message: "You don't have permission to access this resource"}
var UnauthenticatedError = &Failure{Code: http.StatusUnauthorized, Message: "Authentication required"}

// Sentinels returned by the reservation and booking services. Compare with errors.Is.
var (
	ErrRoomNotFound            = &Failure{Code: http.StatusNotFound, Message: "Room not found"}
	ErrHoldNotFound            = &Failure{Code: http.StatusNotFound, Message: "Pending booking not found"}
	ErrBookingNotFound         = &Failure{Code: http.StatusNotFound, Message: "Booking not found"}
	ErrBookingAlreadyCancelled = &Failure{Code: http.StatusBadRequest, Message: "Booking is already cancelled"}
	ErrRoomBusy                = &Failure{Code: http.StatusConflict, Message: "room is busy, please retry"}
	ErrStaleRoom               = &Failure{Code: http.StatusConflict, Message: "room was modified concurrently, please retry"}
)

// Error returns the error code and message in a formatted string.
func (e *Failure) Error() string {
	return e.Message
}

// BadRequest returns a new Failure with code for bad requests.
func BadRequest(err error) error {
	if err != nil {
		return &Failure{
			Code:    http.StatusBadRequest,
			Message: err.Error(),
		}
	}

	return nil
}

// BadRequestFromString returns a new Failure with code for bad requests with message set from string.
func BadRequestFromString(msg string) error {
	return &Failure{
		Code:    http.StatusBadRequest,
		Message: msg,
	}
}

// BadRequestf formats the message like fmt.Sprintf.
func BadRequestf(format string, args ...any) error {
	return &Failure{
		Code:    http.StatusBadRequest,
		Message: fmt.Sprintf(format, args...),
	}
}

// Unauthorized returns a new Failure with code for unauthorized requests.
func Unauthorized(msg string) error {
	return &Failure{
		Code:    http.StatusUnauthorized,
		Message: msg,
	}
}

// Conflict returns a new Failure with code for conflict situations.
func Conflict(message string) error {
	return &Failure{
		Code:    http.StatusConflict,
		Message: message,
	}
}

func Forbidden(msg string) error {
	return &Failure{
		Code:    http.StatusForbidden,
		Message: msg,
	}
}

// GetCode returns the error code of an error interface.
func GetCode(err error) int {
	var fail *Failure
	if errors.As(err, &fail) {
		return fail.Code
	}

	return http.StatusInternalServerError
}

// GetMessage returns the client facing message. Anything that is not a Failure is reported generically.
func GetMessage(err error) string {
	var fail *Failure
	if errors.As(err, &fail) {
		return fail.Message
	}

	return http.StatusText(http.StatusInternalServerError)
}

// IsClientError reports whether err is a Failure below 500.
func IsClientError(err error) bool {
	var fail *Failure
	if errors.As(err, &fail) {
		return fail.Code < http.StatusInternalServerError
	}

	return false
}
