// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package uuidv7 wraps google/uuid to generate time-ordered identifiers.
// The derived-quantity metadata store uses it to mint fresh time-position
// entities: one when a derived node is initialised, and one when a
// timestamp is written for an instance that has no time-position yet.
// Derived-output entities are named by the agent, not minted here.
//
// # Why UUIDv7?
//
// Time-sortable identifiers let a caller order time-position entities by
// creation time without reading their numeric positions.
package uuidv7

import "github.com/google/uuid"

// New generates a new UUIDv7 string.
//
// # Safety
//
// It panics only if the OS random source is unavailable (extremely rare).
// This is acceptable as OS entropy failure is an unrecoverable system-level error.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("uuidv7: failed to generate UUID: " + err.Error())
	}

	return id.String()
}

// Must generates a new UUIDv7 or panics.
//
// This is an alias for [New] kept for readability and consistency with
// Go's "Must" pattern in call sites.
func Must() string {
	return New()
}
