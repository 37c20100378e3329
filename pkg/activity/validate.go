package activity

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/errors"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/types"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks a record received from outside the process. It rejects
// malformed cart lines and duplicate cart ids. Lists longer than their caps
// are accepted since merging truncates them.
func (r Record) Validate() error {
	return validateTarget(r, r.Cart)
}

// ValidateCart applies the cart rules of Validate to a bare list of lines.
func ValidateCart(lines []CartLine) error {
	return validateTarget(cartPayload{Cart: lines}, lines)
}

type cartPayload struct {
	Cart []CartLine `json:"cart" validate:"dive"`
}

func validateTarget(target any, cart []CartLine) error {
	var fields []types.FieldError

	if err := getValidator().Struct(target); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid activity payload")
		}
		for _, fe := range verrs {
			fields = append(fields, types.FieldError{
				Field:   fieldPath(fe.Namespace()),
				Message: describe(fe),
			})
		}
	}

	seen := make(map[string]int, len(cart))
	for i, line := range cart {
		if line.ID == "" {
			continue
		}
		if first, dup := seen[line.ID]; dup {
			fields = append(fields, types.FieldError{
				Field:   fmt.Sprintf("cart[%d].id", i),
				Message: fmt.Sprintf("duplicates cart[%d].id", first),
			})
			continue
		}
		seen[line.ID] = i
	}

	if len(fields) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid activity payload").WithDetails(fields)
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
