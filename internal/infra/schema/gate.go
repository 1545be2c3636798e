// Package schema is the input gate in front of the pipeline: it bounds the
// body size, decodes JSON into the typed snapshot and applies per-dimension
// type, range and length rules.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"identiscope/internal/domain"

	"github.com/go-playground/validator/v10"
)

// MaxPayloadBytes is the default body ceiling for fingerprint submissions.
const MaxPayloadBytes = 50 * 1024

const maxExtraValueBytes = 2048

type Gate struct {
	validate *validator.Validate
	maxBytes int64
}

func NewGate(maxBytes int64) *Gate {
	if maxBytes <= 0 {
		maxBytes = MaxPayloadBytes
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Gate{validate: v, maxBytes: maxBytes}
}

func (g *Gate) MaxBytes() int64 {
	return g.maxBytes
}

// ReadBody reads at most MaxBytes from r and fails with ErrPayloadTooLarge
// past the ceiling.
func (g *Gate) ReadBody(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, g.maxBytes+1))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, domain.ErrPayloadTooLarge
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > g.maxBytes {
		return nil, domain.ErrPayloadTooLarge
	}
	return body, nil
}

// DecodeFingerprint parses and validates a submission body.
func (g *Gate) DecodeFingerprint(body []byte) (domain.FingerprintSnapshot, error) {
	var fp domain.FingerprintSnapshot
	if err := Decode(body, &fp); err != nil {
		return domain.FingerprintSnapshot{}, err
	}
	if err := g.Struct(fp); err != nil {
		return domain.FingerprintSnapshot{}, err
	}
	var extraErrs []domain.FieldError
	for key, value := range fp.Extra {
		if len(key) > 64 {
			extraErrs = append(extraErrs, domain.FieldError{Field: domain.TruncateUTF8(key, 64), Rule: "max", Message: "unknown field name too long"})
			continue
		}
		if len(value) > maxExtraValueBytes {
			extraErrs = append(extraErrs, domain.FieldError{Field: key, Rule: "max", Message: fmt.Sprintf("value must be at most %d bytes", maxExtraValueBytes)})
		}
	}
	if len(extraErrs) > 0 {
		return domain.FingerprintSnapshot{}, &domain.ValidationError{Fields: extraErrs}
	}
	return fp, nil
}

// Decode unmarshals a JSON object, turning type mismatches into field errors.
func Decode(body []byte, out any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("%w: body must be a JSON object", domain.ErrInvalidJSON)
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return verr
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			field := typeErr.Field
			if field == "" {
				field = "body"
			}
			return domain.NewValidationError(field, "type", "expected "+typeErr.Type.String()+", got "+typeErr.Value)
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidJSON, err)
	}
	return nil
}

// Struct runs the validate tags of v and reports violations as a
// *domain.ValidationError.
func (g *Gate) Struct(v any) error {
	err := g.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	out := &domain.ValidationError{Fields: make([]domain.FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, domain.FieldError{
			Field:   fieldPath(fe),
			Rule:    fe.Tag(),
			Message: describe(fe),
		})
	}
	return out
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " bytes"
		}
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map {
			return "must have at most " + fe.Param() + " entries"
		}
		return "must be at most " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "hexadecimal":
		return "must be hexadecimal"
	case "email":
		return "must be a valid email address"
	default:
		return "failed " + fe.Tag() + " rule"
	}
}
