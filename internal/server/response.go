package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Code is the numeric status carried in every response envelope.
type Code int

const (
	CodeSuccess       Code = 10000
	CodeInternal      Code = 10001
	CodeInvalidParams Code = 10002
	CodeNotFound      Code = 10003
	CodeTooLarge      Code = 10004
	CodeUnavailable   Code = 10007
)

// HTTPStatus maps a code to its HTTP status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParams:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Response is the JSON envelope of every API response.
type Response struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "Success",
		Data:    data,
		TraceID: traceID(c),
	})
}

func fail(c *gin.Context, code Code, message string) {
	c.JSON(code.HTTPStatus(), Response{
		Code:    code,
		Message: message,
		TraceID: traceID(c),
	})
}

func abort(c *gin.Context, code Code, message string) {
	fail(c, code, message)
	c.Abort()
}
