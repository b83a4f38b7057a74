// Package kv defines the flat key-value contract every actor persists
// through, plus helpers for JSON values and raw backups.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/linkdex/internal/domain"
)

// Store is a persistent string key-value store.
//
// Keys are namespaced by prefix: every actor owns exactly one prefix and
// never reads or writes outside of it.
type Store interface {
	// Get returns the value at key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	SetMany(ctx context.Context, entries map[string]string) error
	Delete(ctx context.Context, keys ...string) error

	// Scan returns every entry whose key starts with prefix, keys unmodified.
	Scan(ctx context.Context, prefix string) (map[string]string, error)

	// ReplacePrefix atomically deletes every key under prefix and writes
	// entries (keys already prefixed).
	ReplacePrefix(ctx context.Context, prefix string, entries map[string]string) error

	Ping(ctx context.Context) error
	Close() error
}

// idEscaper keeps ids from producing a separator inside a namespace.
var idEscaper = strings.NewReplacer("%", "%25", "|", "%7C")

// Namespace returns the key prefix owned by the entity id of kind, e.g.
// "user:u1|". The separator never occurs in an escaped id, so no prefix is
// a prefix of another entity's keys.
func Namespace(kind, id string) string {
	return kind + ":" + idEscaper.Replace(id) + "|"
}

// GetJSON decodes the value at key into v. ok is false when the key is absent.
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

// Marshal encodes v for storage.
func Marshal(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal value: %w", err)
	}
	return string(data), nil
}

// SetJSON encodes v and stores it at key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, raw)
}

// Dump returns a literal copy of everything under prefix with the prefix
// stripped from the keys. That is the backup wire format.
func Dump(ctx context.Context, s Store, prefix string) (map[string]string, error) {
	entries, err := s.Scan(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to dump %s: %w", prefix, err)
	}
	out := make(map[string]string, len(entries))
	for k, v := range entries {
		out[strings.TrimPrefix(k, prefix)] = v
	}
	return out, nil
}

// Restore replaces everything under prefix with dump.
func Restore(ctx context.Context, s Store, prefix string, dump map[string]string) error {
	if err := ValidateDump(dump); err != nil {
		return err
	}
	entries := make(map[string]string, len(dump))
	for k, v := range dump {
		entries[prefix+k] = v
	}
	if err := s.ReplacePrefix(ctx, prefix, entries); err != nil {
		return fmt.Errorf("failed to restore %s: %w", prefix, err)
	}
	return nil
}

// ParseDump decodes a backup payload. Anything that is not a JSON object of
// string values is rejected with domain.ErrRestoreFailed.
func ParseDump(data []byte) (map[string]string, error) {
	var dump map[string]string
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRestoreFailed, err)
	}
	if dump == nil {
		return nil, fmt.Errorf("%w: payload is not an object", domain.ErrRestoreFailed)
	}
	if err := ValidateDump(dump); err != nil {
		return nil, err
	}
	return dump, nil
}

// ValidateDump rejects nil dumps and empty keys.
func ValidateDump(dump map[string]string) error {
	if dump == nil {
		return fmt.Errorf("%w: empty payload", domain.ErrRestoreFailed)
	}
	for k := range dump {
		if k == "" {
			return fmt.Errorf("%w: empty key", domain.ErrRestoreFailed)
		}
	}
	return nil
}

// ValidateJSON checks that raw decodes into v, wrapping failures as
// domain.ErrRestoreFailed. Stores use it to vet restored records.
func ValidateJSON(key, raw string, v any) error {
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("%w: key %q: %v", domain.ErrRestoreFailed, key, err)
	}
	return nil
}

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("kv store closed")
