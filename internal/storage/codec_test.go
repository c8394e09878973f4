package storage

import (
	"errors"
	"testing"

	"banditlab/internal/model"
)

func TestKeyDependsOnNameAndArgs(t *testing.T) {
	a, err := Key("simulate", []any{"rw", 0.1, 10})
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	b, _ := Key("simulate", []any{"rw", 0.1, 10})
	c, _ := Key("simulate", []any{"rw", 0.2, 10})
	d, _ := Key("fit", []any{"rw", 0.1, 10})
	if a != b {
		t.Fatal("expected equal keys for equal calls")
	}
	if a == c || a == d {
		t.Fatal("expected distinct keys for distinct calls")
	}
	if len(a) != 64 {
		t.Fatalf("expected sha256 hex key, got %q", a)
	}
}

func TestKeyRejectsUnencodableArgs(t *testing.T) {
	if _, err := Key("bad", func() {}); err == nil {
		t.Fatal("expected encode error")
	}
}

func TestRecordRoundTrip(t *testing.T) {
	record, err := NewRecord("k", "compare", model.ComparisonRecord{Models: []string{"rw"}, BIC: []float64{12.5}})
	if err != nil {
		t.Fatalf("new record: %v", err)
	}
	data, err := EncodeRecord(record)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeRecord(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var cmp model.ComparisonRecord
	if err := DecodeValue(decoded, &cmp); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	if cmp.Models[0] != "rw" || cmp.BIC[0] != 12.5 {
		t.Fatalf("unexpected comparison %+v", cmp)
	}
}

func TestDecodeRecordVersionMismatch(t *testing.T) {
	data, err := EncodeRecord(model.CacheRecord{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion + 1, CodecVersion: CurrentCodecVersion},
		Key:             "k",
		Payload:         []byte(`1`),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeRecord(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}
}
