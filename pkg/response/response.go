// Package response writes the JSON envelope every console endpoint answers with.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool              `json:"success"`
	Data    interface{}       `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func succeed(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Body{Success: true, Data: data})
}

func fail(c *gin.Context, status int, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	c.JSON(status, Body{Error: msg})
}

// OK sends 200 with data.
func OK(c *gin.Context, data interface{}) { succeed(c, http.StatusOK, data) }

// Created sends 201 with the new resource.
func Created(c *gin.Context, data interface{}) { succeed(c, http.StatusCreated, data) }

// Accepted sends 202 for work that finishes in the background.
func Accepted(c *gin.Context, data interface{}) { succeed(c, http.StatusAccepted, data) }

// NoContent sends 204.
func NoContent(c *gin.Context) { c.Status(http.StatusNoContent) }

func BadRequest(c *gin.Context, msg string) { fail(c, http.StatusBadRequest, msg) }
func Unauthorized(c *gin.Context, msg string) { fail(c, http.StatusUnauthorized, msg) }
func Forbidden(c *gin.Context, msg string) { fail(c, http.StatusForbidden, msg) }
func NotFound(c *gin.Context, msg string) { fail(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string) { fail(c, http.StatusConflict, msg) }
func ServiceUnavailable(c *gin.Context, msg string) { fail(c, http.StatusServiceUnavailable, msg) }
func Internal(c *gin.Context, msg string) { fail(c, http.StatusInternalServerError, msg) }

// Error sends any error status. An empty msg falls back to the status text.
func Error(c *gin.Context, status int, msg string) { fail(c, status, msg) }

// Invalid sends 400 with one message per rejected field.
func Invalid(c *gin.Context, fields map[string]string) {
	c.JSON(http.StatusBadRequest, Body{Error: "validation failed", Fields: fields})
}

// File sends data as a download named filename. The extended filename* parameter
// keeps non-ASCII names intact.
func File(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s",
		filename, url.PathEscape(filename)))
	c.Header("Content-Length", strconv.Itoa(len(data)))
	c.Data(http.StatusOK, contentType, data)
}

// BindJSON decodes the request body into obj and checks its binding tags. On failure
// it answers 400, with one message per field when the tags rejected the body, and
// returns false.
func BindJSON(c *gin.Context, obj interface{}) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		BadRequest(c, "invalid request body")
		return false
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := jsonName(obj, fe.StructField())
		if _, seen := fields[name]; !seen {
			fields[name] = fieldMessage(name, fe)
		}
	}
	Invalid(c, fields)
	return false
}

func jsonName(obj interface{}, field string) string {
	t := reflect.TypeOf(obj)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		if sf, ok := t.FieldByName(field); ok {
			if name, _, _ := strings.Cut(sf.Tag.Get("json"), ","); name != "" && name != "-" {
				return name
			}
		}
	}
	return strings.ToLower(field)
}

func fieldMessage(name string, fe validator.FieldError) string {
	label := strings.ReplaceAll(name, "_", " ")
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "oneof":
		return label + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "eqfield":
		return label + " does not match"
	case "email":
		return label + " is not a valid email address"
	case "max":
		return label + " must be at most " + fe.Param() + " characters"
	}
	return label + " is invalid"
}
