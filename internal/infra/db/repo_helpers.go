package db

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var errDBUnavailable = errors.New("db unavailable")

func NewUUID() string {
	return uuid.NewString()
}

func copyBytes(in []byte) []byte {
	if in == nil {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

func stringPtrIfNotEmpty(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func timePtr(value time.Time) *time.Time {
	v := value.UTC()
	return &v
}
