package validation

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/mediaflow/errors"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// FieldError describes one failed field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = validate.RegisterValidation("objectkey", isObjectKey)
	})
	return validate
}

// isObjectKey accepts storage keys that name an object rather than a prefix.
func isObjectKey(fl validator.FieldLevel) bool {
	key := fl.Field().String()
	if key == "" || strings.HasSuffix(key, "/") || strings.HasPrefix(key, "/") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." {
			return false
		}
	}
	return true
}

// Validate checks s against its `validate` tags and returns an
// INVALID_INPUT AppError listing every failed field.
func Validate(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Validation("validation failed").WithCause(err)
	}

	fieldErrors := make([]FieldError, 0, len(validationErrors))
	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		fe := FieldError{Field: e.Field(), Message: message(e)}
		fieldErrors = append(fieldErrors, fe)
		messages = append(messages, fe.Field+": "+fe.Message)
	}
	return errors.Validation(strings.Join(messages, "; ")).WithDetail("fields", fieldErrors)
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	case "url":
		return "must be a valid URL"
	case "objectkey":
		return "must be an object key, not a prefix or relative path"
	default:
		return "is invalid"
	}
}
