// Package database holds what the storage backends share: sentinel errors and
// the two-level (namespace, id) key scheme used to partition one store.
package database

import (
	"fmt"
	"strings"
)

// Separator joins a namespace and an id in a rendered key.
const Separator = ":"

// Namespace partitions unrelated records that share one store.
type Namespace string

const (
	// NamespaceURL holds signed URL envelopes keyed by token.
	NamespaceURL Namespace = "url"
	// NamespaceStats holds per-token visitor counters.
	NamespaceStats Namespace = "stats"
)

// Key builds the key for id within the namespace.
func (n Namespace) Key(id string) Key {
	return Key{Namespace: n, ID: id}
}

// Prefix returns the rendered prefix shared by every key in the namespace.
func (n Namespace) Prefix() string {
	return string(n) + Separator
}

// Pattern returns a glob matching every key in the namespace.
func (n Namespace) Pattern() string {
	return n.Prefix() + "*"
}

// Key addresses a single record as (namespace, id).
type Key struct {
	Namespace Namespace
	ID        string
}

func (k Key) String() string {
	return k.Namespace.Prefix() + k.ID
}

// ParseKey splits a rendered key at the first separator.
func ParseKey(s string) (Key, error) {
	const op = "database.ParseKey"

	ns, id, ok := strings.Cut(s, Separator)
	if !ok || ns == "" {
		return Key{}, fmt.Errorf("%s: %w: %q", op, ErrInvalidKey, s)
	}

	return Key{Namespace: Namespace(ns), ID: id}, nil
}
