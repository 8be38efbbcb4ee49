package validator

import (
	"encoding/json"
	"fmt"
	"io"
	"lodge/shared/constant"
	"lodge/shared/failure"
	"lodge/shared/timezone"
	"mime/multipart"
	"reflect"
	"slices"
	"strconv"
	"strings"

	val "github.com/go-playground/validator/v10"
)

var validate *val.Validate

func fileHeader(field val.FieldLevel) (*multipart.FileHeader, bool) {
	switch file := field.Field().Interface().(type) {
	case multipart.FileHeader:
		return &file, true
	case *multipart.FileHeader:
		return file, file != nil
	default:
		return nil, false
	}
}

func registerMimetypeValidation(field val.FieldLevel) bool {
	file, ok := fileHeader(field)
	if !ok {
		return false
	}

	allowedTypes := strings.Split(field.Param(), " ")

	return slices.Contains(allowedTypes, file.Header.Get(constant.RequestHeaderContentType))
}

func registerFileSizeValidation(field val.FieldLevel) bool {
	file, ok := fileHeader(field)
	if !ok {
		return false
	}

	maxSizeMB, err := strconv.ParseFloat(field.Param(), 64)
	if err != nil {
		return false
	}

	bytesConversion := 1024.0
	maxSizeBytes := int64(maxSizeMB * bytesConversion * bytesConversion)

	return file.Size <= maxSizeBytes
}

// registerStayDateValidation accepts YYYY-MM-DD or RFC3339 in the app timezone.
func registerStayDateValidation(field val.FieldLevel) bool {
	value, ok := field.Field().Interface().(string)
	if !ok {
		return false
	}

	_, err := timezone.ParseDate(value)

	return err == nil
}

func init() {
	validate = val.New(val.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0] //nolint:mnd
		if name == "-" || name == "" {
			return field.Name
		}

		return name
	})

	err := validate.RegisterValidation("empty", func(fl val.FieldLevel) bool {
		return fl.Field().IsZero()
	})
	if err != nil {
		panic(err)
	}

	err = validate.RegisterValidation("mimetypes", registerMimetypeValidation)
	if err != nil {
		panic(err)
	}

	err = validate.RegisterValidation("maxfilesize", registerFileSizeValidation)
	if err != nil {
		panic(err)
	}

	err = validate.RegisterValidation("staydate", registerStayDateValidation)
	if err != nil {
		panic(err)
	}
}

// Validate decodes the JSON body into data and validates it.
// https://github.com/go-playground/validator
func Validate[T any](r io.Reader, data *T) error {
	decoder := json.NewDecoder(r)
	err := decoder.Decode(data)

	if err != nil {
		return failure.BadRequest(fmt.Errorf("failed to decode request body: %w", err)) //nolint:wrapcheck
	}

	return ValidateStruct(data)
}

func ValidateStruct[T any](data *T) error {
	err := validate.Struct(data)

	if err != nil {
		msg := message(err)

		return failure.BadRequestFromString(msg) //nolint:wrapcheck
	}

	return nil
}

func ValidateVar(field any, tag string) error {
	err := validate.Var(field, tag)

	if err != nil {
		msg := message(err)

		return failure.BadRequestFromString(msg) //nolint:wrapcheck
	}

	return nil
}
