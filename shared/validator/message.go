package validator

import (
	"errors"
	"strings"

	val "github.com/go-playground/validator/v10"
)

const (
	placeholderField = "{field}"
	placeholderParam = "{param}"
)

var templates = map[string]string{
	"required":         "{field} is required",
	"required_with":    "{field} is required when {param} is present",
	"required_without": "{field} is required when {param} is missing",
	"oneof":            "{field} must be one of {param}",
	"email":            "{field} must be a valid email address",

	"gte": "{field} must be greater than or equal to {param}",
	"min": "{field} must be greater than or equal to {param}",
	"lte": "{field} must be less than or equal to {param}",
	"max": "{field} must be less than or equal to {param}",
	"gt":  "{field} must be greater than {param}",

	"staydate":    "{field} must be a date in YYYY-MM-DD or RFC3339 format",
	"mimetypes":   "{field} must be one of {param}",
	"maxfilesize": "{field} must not exceed {param} MB",
}

// message renders the first field error that has a template, falling back to the raw text.
func message(err error) string {
	var fieldErrors val.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err.Error()
	}

	for _, fieldErr := range fieldErrors {
		tmpl, ok := templates[fieldErr.Tag()]
		if !ok {
			continue
		}

		return strings.NewReplacer(
			placeholderField, fieldErr.Field(),
			placeholderParam, fieldErr.Param(),
		).Replace(tmpl)
	}

	return fieldErrors.Error()
}
