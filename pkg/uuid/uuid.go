// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package uuid provides opaque, non-time-ordered identifiers for generated
SQL table and column names.

Unlike [github.com/anchorgraph/corestack/pkg/uuidv7], these identifiers carry
no ordering information on purpose: the opaque table name minted for a new
time-series must not leak its creation order into the database's physical
layout, since the lookup table, not the table name, is the source of truth
for series identity.
*/
package uuid

import "github.com/google/uuid"

// # Generators

// New generates a new opaque UUIDv4 string, suitable for a generated table
// or column name.
func New() string {
	return uuid.NewString()
}

// Must is an alias for [New] kept for call-site consistency with Go's "Must"
// pattern; generation never fails.
func Must() string {
	return New()
}
