// Package model defines the records persisted by the scribe store.
//
// This package contains type definitions only. Every other internal package
// imports model; model imports nothing internal.
//
// Records are plain values. Copies handed out by the store are independent
// snapshots: mutating one never changes on-disk state.
package model
