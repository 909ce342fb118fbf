// Package form holds the per-entity Form Container. A container owns one
// Form State, moves between the loading-record, ready and submitting phases
// and delegates persistence to a caller-supplied submit handler.
package form
