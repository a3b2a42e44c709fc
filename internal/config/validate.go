package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks `validate` struct tags and renders failures as
// "<field> is required" style lines.
func Validate(prefix string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	var errs []error
	for _, fe := range verrs {
		field := prefix + "." + fe.Field()
		switch fe.Tag() {
		case "required":
			errs = append(errs, fmt.Errorf("%s is required", field))
		default:
			errs = append(errs, fmt.Errorf("%s: failed %q check", field, fe.Tag()))
		}
	}
	return joinErrors(errs)
}

func joinErrors(errs []error) error {
	var filtered []string
	for _, e := range errs {
		if e != nil {
			filtered = append(filtered, e.Error())
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return errors.New(strings.Join(filtered, "\n"))
}

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}
