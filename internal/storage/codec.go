package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"banditlab/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Key hashes a function name together with its JSON-encoded arguments.
func Key(name string, args any) (string, error) {
	encoded, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encode %s args: %w", name, err)
	}
	sum := sha256.New()
	sum.Write([]byte(name))
	sum.Write(encoded)
	return hex.EncodeToString(sum.Sum(nil)), nil
}

// NewRecord encodes value into a record stamped with the current versions.
func NewRecord(key, name string, value any) (model.CacheRecord, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return model.CacheRecord{}, fmt.Errorf("encode %s result: %w", name, err)
	}
	return model.CacheRecord{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		Key:             key,
		Name:            name,
		Payload:         payload,
	}, nil
}

func EncodeRecord(r model.CacheRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRecord(data []byte) (model.CacheRecord, error) {
	var record model.CacheRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.CacheRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.CacheRecord{}, err
	}
	return record, nil
}

// DecodeValue unpacks a record payload into out after checking versions.
func DecodeValue(r model.CacheRecord, out any) error {
	if err := checkVersion(r.VersionedRecord); err != nil {
		return err
	}
	return json.Unmarshal(r.Payload, out)
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
