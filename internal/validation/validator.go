// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

// Package validation wraps a shared go-playground/validator instance.
//
// Field names in errors use the json tag, so messages match what clients
// sent. A custom "devicekey" tag checks device keys taken from URL paths.
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    respondAPIError(w, r, http.StatusBadRequest, verr.ToAPIError(), nil)
//	    return
//	}
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/follow/internal/models"
)

// CodeValidation is the API error code for rejected input.
const CodeValidation = "VALIDATION_ERROR"

// deviceKeyPattern matches the keys the follow backend hands out.
var deviceKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

var shared = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	err := v.RegisterValidation("devicekey", func(fl validator.FieldLevel) bool {
		return deviceKeyPattern.MatchString(fl.Field().String())
	})
	if err != nil {
		panic("validation: register devicekey: " + err.Error())
	}
	return v
})

// GetValidator returns the shared validator.
func GetValidator() *validator.Validate { return shared() }

// FieldError describes one rejected field.
type FieldError struct {
	Field   string
	Tag     string
	Param   string
	Value   any
	Message string
}

// Error holds every rejected field of one value, in validator order.
type Error struct {
	fields []FieldError
}

func (e *Error) Errors() []FieldError { return e.fields }

func (e *Error) Error() string {
	if len(e.fields) == 0 {
		return "validation failed"
	}
	var b strings.Builder
	for i, f := range e.fields {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(f.Message)
	}
	return b.String()
}

// ToAPIError renders e as a VALIDATION_ERROR. A single failure reports
// its field, tag and value; several failures are listed under "fields".
func (e *Error) ToAPIError() *models.APIError {
	apiErr := &models.APIError{Code: CodeValidation, Message: e.Error()}
	switch len(e.fields) {
	case 0:
		apiErr.Message = "Validation failed"
	case 1:
		f := e.fields[0]
		apiErr.Details = map[string]interface{}{"field": f.Field, "tag": f.Tag, "value": f.Value}
	default:
		list := make([]map[string]interface{}, 0, len(e.fields))
		for _, f := range e.fields {
			list = append(list, map[string]interface{}{"field": f.Field, "tag": f.Tag, "message": f.Message})
		}
		apiErr.Details = map[string]interface{}{"fields": list}
	}
	return apiErr
}

// ValidateStruct validates s and returns nil when it passes.
func ValidateStruct(s any) *Error {
	return fromValidator(shared().Struct(s), "")
}

// ValidateDeviceKey checks a device key taken from a URL path.
func ValidateDeviceKey(key string) *Error {
	return fromValidator(shared().Var(key, "required,devicekey"), "key")
}

// fromValidator converts err; name labels failures of bare values, which
// carry no field name of their own.
func fromValidator(err error, name string) *Error {
	if err == nil {
		return nil
	}
	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return &Error{fields: []FieldError{{Field: "unknown", Tag: "unknown", Message: err.Error()}}}
	}

	out := &Error{fields: make([]FieldError, 0, len(invalid))}
	for _, fe := range invalid {
		field := fe.Field()
		if field == "" {
			field = name
		}
		out.fields = append(out.fields, FieldError{
			Field:   field,
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Value:   fe.Value(),
			Message: describe(field, fe),
		})
	}
	return out
}

// describe phrases a failure for API clients.
func describe(field string, fe validator.FieldError) string {
	p := fe.Param()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "uuid":
		return field + " must be a valid UUID"
	case "latitude":
		return field + " must be a valid latitude (-90 to 90)"
	case "longitude":
		return field + " must be a valid longitude (-180 to 180)"
	case "devicekey":
		return field + " must be 1-128 letters, digits, '-' or '_'"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, p)
	case "gt":
		return fmt.Sprintf("%s must be above %s", field, p)
	case "gte":
		return fmt.Sprintf("%s must be %s or more", field, p)
	case "lt":
		return fmt.Sprintf("%s must be below %s", field, p)
	case "lte":
		return fmt.Sprintf("%s must be %s or less", field, p)
	case "min", "max":
		bound := "at least"
		if fe.Tag() == "max" {
			bound = "at most"
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be %s %s characters", field, bound, p)
		}
		return fmt.Sprintf("%s must be %s %s", field, bound, p)
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
