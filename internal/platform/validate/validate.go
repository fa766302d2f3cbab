package validate

import (
	"errors"
	"fmt"
	"sync"

	goValidator "github.com/go-playground/validator/v10"
)

// ErrInvalidConfig is returned when a tunable struct fails validation
var ErrInvalidConfig = errors.New("invalid configuration")

var (
	once     sync.Once
	instance *goValidator.Validate
)

func get() *goValidator.Validate {
	once.Do(func() {
		instance = goValidator.New()
	})
	return instance
}

// Struct validates v against its `validate` tags.
// Failures wrap ErrInvalidConfig and name every offending field.
func Struct(v interface{}) error {
	err := get().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs goValidator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		msg := ""
		for i, fe := range fieldErrs {
			if i > 0 {
				msg += "; "
			}
			msg += fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
	}
	return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
}
