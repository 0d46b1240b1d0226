package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"tastefun/crypto"
	"tastefun/native/settlement"
)

const maxRequestBytes = 1 << 20 // 1 MiB

var errInvalidBody = errors.New("invalid request body")

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("address", validateAddress)
	_ = v.RegisterValidation("votingmode", validateVotingMode)
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateAddress(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true
	}
	_, err := crypto.ParseAddress(raw)
	return err == nil
}

func validateVotingMode(fl validator.FieldLevel) bool {
	_, err := settlement.ParseMode(fl.Field().String())
	return err == nil
}

// decode reads a JSON body into dst and checks its validation tags.
func (s *Server) decode(r *http.Request, dst interface{}) (map[string]string, error) {
	body := io.LimitReader(r.Body, maxRequestBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	if err := s.validate.Struct(dst); err != nil {
		return formatValidationError(err), errInvalidBody
	}
	return nil, nil
}

func formatValidationError(err error) map[string]string {
	out := make(map[string]string)
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		out["error"] = "invalid request format"
		return out
	}
	for _, e := range validationErrors {
		field := e.Field()
		switch e.Tag() {
		case "required":
			out[field] = "required"
		case "address":
			out[field] = "invalid address"
		case "votingmode":
			out[field] = "invalid voting mode"
		case "max", "lte":
			out[field] = fmt.Sprintf("must be at most %s", e.Param())
		case "min", "gte", "gt":
			out[field] = fmt.Sprintf("must be %s %s", e.Tag(), e.Param())
		case "len":
			out[field] = fmt.Sprintf("must have length %s", e.Param())
		case "oneof":
			out[field] = fmt.Sprintf("must be one of %s", e.Param())
		default:
			out[field] = "invalid value"
		}
	}
	return out
}
