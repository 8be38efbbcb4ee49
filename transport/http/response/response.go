package response

import (
	"encoding/json"
	"net/http"
	"strconv"

	"lodge/shared/constant"
	"lodge/shared/failure"
	"lodge/shared/logger"
)

// retryAfterSeconds is the hint sent with 409 responses caused by a contended room.
const retryAfterSeconds = 1

type Data[T any] struct {
	Data *T `json:"data,omitempty"`
}

type Error struct {
	Error *string `json:"error,omitempty"`
}

type Message struct {
	Message *string `json:"message,omitempty"`
}

func WithMessage(writer http.ResponseWriter, code int, message string) {
	write(writer, code, Message{Message: &message})
}

func WithJSON(writer http.ResponseWriter, code int, payload any) {
	write(writer, code, Data[any]{Data: &payload})
}

// WithError maps err to its Failure code. Anything that is not a Failure is answered
// as a bare 500 so internal error text never reaches the client.
func WithError(writer http.ResponseWriter, err error) {
	code := failure.GetCode(err)
	msg := failure.GetMessage(err)

	if code == http.StatusConflict {
		writer.Header().Set(constant.ResponseHeaderRetryAfter, strconv.Itoa(retryAfterSeconds))
	}

	write(writer, code, Error{Error: &msg})
}

func WithRequestLimitExceeded(writer http.ResponseWriter) {
	WithMessage(writer, http.StatusTooManyRequests, constant.ResponseErrorRequestLimitExceeded)
}

func WithPreparingShutdown(writer http.ResponseWriter) {
	WithMessage(writer, http.StatusServiceUnavailable, constant.ResponseErrorPrepareShutdown)
}

func WithUnhealthy(writer http.ResponseWriter) {
	WithMessage(writer, http.StatusServiceUnavailable, constant.ResponseErrorUnhealthy)
}

func write(writer http.ResponseWriter, code int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.ErrorWithStack(err)
		writer.WriteHeader(http.StatusInternalServerError)

		return
	}

	writer.Header().Set(constant.RequestHeaderContentType, constant.ContentTypeJSON)
	writer.WriteHeader(code)

	if _, err := writer.Write(body); err != nil {
		logger.ErrorWithStack(err)
	}
}
