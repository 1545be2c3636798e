package schema

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"identiscope/internal/domain"
)

func TestGate_DecodeFingerprint_KeepsUnknownFields(t *testing.T) {
	gate := NewGate(0)
	fp, err := gate.DecodeFingerprint([]byte(`{"hw_canvas_hash":"abc","hw_cpu_cores":8,"custom_signal":{"a":1}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fp.HWCanvasHash == nil || *fp.HWCanvasHash != "abc" {
		t.Fatalf("unexpected canvas hash: %v", fp.HWCanvasHash)
	}
	if fp.HWCPUCores == nil || *fp.HWCPUCores != 8 {
		t.Fatalf("unexpected cpu cores: %v", fp.HWCPUCores)
	}
	if string(fp.Extra["custom_signal"]) != `{"a":1}` {
		t.Fatalf("expected extra field preserved verbatim, got %q", fp.Extra["custom_signal"])
	}
	if _, ok := fp.Extra["hw_canvas_hash"]; ok {
		t.Fatal("known fields must not leak into extras")
	}
}

func TestGate_DecodeFingerprint_RangeViolation(t *testing.T) {
	gate := NewGate(0)
	_, err := gate.DecodeFingerprint([]byte(`{"hw_cpu_cores":5000,"sw_timezone_offset":-1000}`))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Rule
	}
	if fields["hw_cpu_cores"] != "lte" {
		t.Fatalf("expected hw_cpu_cores lte violation, got %v", fields)
	}
	if fields["sw_timezone_offset"] != "gte" {
		t.Fatalf("expected sw_timezone_offset gte violation, got %v", fields)
	}
}

func TestGate_DecodeFingerprint_TypeMismatch(t *testing.T) {
	gate := NewGate(0)
	_, err := gate.DecodeFingerprint([]byte(`{"hw_cpu_cores":"eight"}`))
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Fields[0].Field != "hw_cpu_cores" || verr.Fields[0].Rule != "type" {
		t.Fatalf("unexpected field error: %+v", verr.Fields[0])
	}
}

func TestGate_DecodeFingerprint_MalformedJSON(t *testing.T) {
	gate := NewGate(0)
	for _, body := range []string{`{"hw_cpu_cores":`, `[1,2]`, ``} {
		if _, err := gate.DecodeFingerprint([]byte(body)); !errors.Is(err, domain.ErrInvalidJSON) {
			t.Fatalf("body %q: expected invalid json, got %v", body, err)
		}
	}
}

func TestGate_ReadBody_Ceiling(t *testing.T) {
	gate := NewGate(16)
	if _, err := gate.ReadBody(strings.NewReader(strings.Repeat("a", 16))); err != nil {
		t.Fatalf("body at the ceiling must pass: %v", err)
	}
	if _, err := gate.ReadBody(strings.NewReader(strings.Repeat("a", 17))); !errors.Is(err, domain.ErrPayloadTooLarge) {
		t.Fatalf("expected payload too large, got %v", err)
	}
}

func TestGate_Struct_DeletionStyleTags(t *testing.T) {
	type request struct {
		HashType  string `json:"hash_type" validate:"required,oneof=hardware software full"`
		HashValue string `json:"hash_value" validate:"required,len=64,hexadecimal"`
	}
	gate := NewGate(0)
	err := gate.Struct(request{HashType: "device", HashValue: "zz"})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(verr.Fields) != 2 {
		t.Fatalf("expected 2 field errors, got %+v", verr.Fields)
	}
	if verr.Fields[0].Field != "hash_type" {
		t.Fatalf("expected json field names, got %q", verr.Fields[0].Field)
	}
}

func TestGate_DecodeFingerprint_RejectsCaseVariantOfKnownField(t *testing.T) {
	gate := NewGate(0)
	_, err := gate.DecodeFingerprint([]byte(`{"hw_canvas_hash":"abc","HW_CANVAS_HASH":"zzz"}`))
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(verr.Fields) != 1 || verr.Fields[0].Field != "HW_CANVAS_HASH" || verr.Fields[0].Rule != "case" {
		t.Fatalf("unexpected field errors: %+v", verr.Fields)
	}
}

func TestGate_DecodeFingerprint_CaseVariantAloneIsRejected(t *testing.T) {
	gate := NewGate(0)
	_, err := gate.DecodeFingerprint([]byte(`{"Hw_Cpu_Cores":8}`))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGate_DecodeFingerprint_LongKeyEchoIsValidUTF8(t *testing.T) {
	gate := NewGate(0)
	key := strings.Repeat("k", 63) + "é" + "tail"
	_, err := gate.DecodeFingerprint([]byte(`{"` + key + `":1}`))
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	field := verr.Fields[0].Field
	if !utf8.ValidString(field) || field != strings.Repeat("k", 63) {
		t.Fatalf("expected key echoed up to the rune boundary, got %q", field)
	}
}
