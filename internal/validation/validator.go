// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/policestats/internal/naming"
)

// PeriodLayout is the reference layout of a monthly period label ("2024-10").
const PeriodLayout = "2006-01"

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is one failed rule on one config key.
type FieldError struct {
	Field   string // e.g. "Periods[1]"
	Tag     string // e.g. "period"
	Param   string // e.g. "1" for min=1
	Value   interface{}
	Message string
}

func (e FieldError) Error() string {
	return e.Message
}

// StructValidationError collects every field error found in one struct.
type StructValidationError struct {
	Errs []FieldError
}

// Errors returns the field errors in declaration order.
func (ve *StructValidationError) Errors() []FieldError {
	return ve.Errs
}

// Fields returns the failing field names, in order.
func (ve *StructValidationError) Fields() []string {
	fields := make([]string, len(ve.Errs))
	for i, e := range ve.Errs {
		fields[i] = e.Field
	}
	return fields
}

// Has reports whether field failed any rule.
func (ve *StructValidationError) Has(field string) bool {
	for _, e := range ve.Errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func (ve *StructValidationError) Error() string {
	if len(ve.Errs) == 0 {
		return "validation failed"
	}
	var b strings.Builder
	for i, e := range ve.Errs {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(e.Message)
	}
	return b.String()
}

// GetValidator returns the shared validator with the custom tags registered.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Registration only fails for empty tags or nil funcs.
		_ = validate.RegisterValidation("period", func(fl validator.FieldLevel) bool {
			return isPeriod(fl.Field().String())
		})
		_ = validate.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
			return naming.Normalize(fl.Field().String()) != ""
		})
	})
	return validate
}

func isPeriod(s string) bool {
	if len(s) != len(PeriodLayout) {
		return false
	}
	_, err := time.Parse(PeriodLayout, s)
	return err == nil
}

// ValidatePeriod reports whether s is a well-formed "YYYY-MM" period.
func ValidatePeriod(s string) error {
	if !isPeriod(s) {
		return fmt.Errorf("invalid period %q: must be YYYY-MM", s)
	}
	return nil
}

// ValidateStruct validates s and returns nil or every field error found.
//
//	if verr := validation.ValidateStruct(&cfg.Pipeline); verr != nil {
//	    return fmt.Errorf("pipeline config: %w", verr)
//	}
func ValidateStruct(s interface{}) *StructValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		// InvalidValidationError: s was not a struct
		return &StructValidationError{Errs: []FieldError{{
			Field:   "unknown",
			Tag:     "unknown",
			Message: err.Error(),
		}}}
	}

	out := &StructValidationError{Errs: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		name := fieldName(fe)
		out.Errs = append(out.Errs, FieldError{
			Field:   name,
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Value:   fe.Value(),
			Message: message(name, fe.Tag(), fe.Param(), fe.Kind().String()),
		})
	}
	return out
}

// fieldName drops the root struct name from the namespace, so
// "PipelineConfig.Periods[2]" becomes "Periods[2]".
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// message renders the error text for one failed tag. kind is the
// reflect.Kind name of the field.
func message(field, tag, param, kind string) string {
	switch tag {
	case "required":
		return field + " is required"
	case "period":
		return field + " must be a month in YYYY-MM format"
	case "identifier":
		return field + " must contain at least one letter or digit"
	case "dir":
		return field + " must be an existing directory"
	case "file":
		return field + " must be an existing file"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, param)
	case "min", "max":
		bound := "at least"
		if tag == "max" {
			bound = "at most"
		}
		switch kind {
		case "string":
			return fmt.Sprintf("%s must be %s %s characters", field, bound, param)
		case "slice", "array", "map":
			return fmt.Sprintf("%s must contain %s %s entries", field, bound, param)
		}
		return fmt.Sprintf("%s must be %s %s", field, bound, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}
