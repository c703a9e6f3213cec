// Package response writes the {data, error} envelope every HTTP endpoint
// answers with.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error is the error half of the envelope.
type Error struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Body is the standard API response envelope. Exactly one of Data and Error
// is meaningful; both keys are always present.
type Body struct {
	Data  interface{} `json:"data"`
	Error *Error      `json:"error"`
	Count *int        `json:"count,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Data: data})
}

// OKWithCount sends a 200 JSON response with data and an exact row count.
func OKWithCount(c *gin.Context, data interface{}, count *int) {
	c.JSON(http.StatusOK, Body{Data: data, Count: count})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Data: data})
}

// Fail sends status with a coded error.
func Fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, Body{Error: &Error{Code: code, Message: message}})
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string) {
	Fail(c, http.StatusBadRequest, "", err)
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, err string) {
	Fail(c, http.StatusUnauthorized, "", err)
}

// NotFound sends 404.
func NotFound(c *gin.Context, err string) {
	Fail(c, http.StatusNotFound, "", err)
}

// Internal sends 500.
func Internal(c *gin.Context, err string) {
	Fail(c, http.StatusInternalServerError, "", err)
}
