// Package validation maps gin binding failures to field errors keyed by
// JSON path, e.g. "items[0].qty".
package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/shared/apperr"
)

type FieldErrors map[string]string

var once sync.Once

// useJSONNames makes validator report json (or form) tag names instead
// of Go field names.
func useJSONNames() {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, key := range []string{"json", "form"} {
				name, _, _ := strings.Cut(f.Tag.Get(key), ",")
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
	})
}

// BindJSON decodes the body into dst and returns an Invalid app error
// carrying field messages when decoding or validation fails.
func BindJSON(c *gin.Context, dst any) error {
	useJSONNames()
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperr.InvalidErr("Invalid request body", FromBindError(err)).WithCause(err)
	}
	return nil
}

func BindQuery(c *gin.Context, dst any) error {
	useJSONNames()
	if err := c.ShouldBindQuery(dst); err != nil {
		return apperr.InvalidErr("Invalid query", FromBindError(err)).WithCause(err)
	}
	return nil
}

func FromBindError(err error) FieldErrors {
	out := FieldErrors{}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			out[fieldKey(fe.Namespace())] = messageForTag(fe.Tag(), fe.Param())
		}
		return out
	}

	out["_"] = "Malformed JSON body."
	return out
}

// fieldKey drops the root struct name from a validator namespace.
func fieldKey(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func messageForTag(tag, param string) string {
	switch tag {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + param
	case "gte", "min":
		return "must be at least " + param
	case "lte", "max":
		return "must be at most " + param
	case "email":
		return "must be a valid email"
	case "oneof":
		return "must be one of: " + param
	default:
		return "is invalid"
	}
}
