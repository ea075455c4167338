package pipeline

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ConfigError reports a missing or invalid task configuration field.
// It is always returned before any warehouse call.
type ConfigError struct {
	Task   string
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Task == "" {
		return fmt.Sprintf("invalid task config: %s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("task %s: invalid config: %s %s", e.Task, e.Field, e.Reason)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return strings.ToLower(f.Name)
		}
		return name
	})
	_ = v.RegisterValidation("json_mapping", func(fl validator.FieldLevel) bool {
		return ValidJSONMapping(fl.Field().String())
	})
	return v
}

// ValidJSONMapping reports whether m is "auto", "auto ignorecase" or an
// s3:// JSONPaths document.
func ValidJSONMapping(m string) bool {
	switch m {
	case "auto", "auto ignorecase":
		return true
	}
	return strings.HasPrefix(m, "s3://") && len(m) > len("s3://")
}

func validateStruct(task string, s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return &ConfigError{Task: task, Field: fieldPath(fe), Reason: reason(fe)}
}

// fieldPath drops the struct name prefix: "StageConfig.table" -> "table".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must have at least " + fe.Param() + " entries"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "json_mapping":
		return "must be auto, auto ignorecase or an s3:// JSONPaths document"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// Validator returns the validator used for pipeline configuration, with the
// json_mapping rule registered.
func Validator() *validator.Validate {
	return validate
}

// ValidateStruct validates any struct carrying validate tags, such as a
// Definition embedded in a larger config, and reports the first failure as
// a *ConfigError.
func ValidateStruct(s any) error {
	return validateStruct("", s)
}
