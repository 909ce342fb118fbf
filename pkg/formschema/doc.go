// Package formschema composes field descriptors into the validation and cast
// contract of an entity form. A Schema owns the identifier descriptor and the
// ordered value descriptors; order drives rendering only.
//
// InitialValues turns a (possibly empty) record into form state, Validate
// answers per-field questions for inline errors and Cast validates every
// field before producing the canonical payload. Cast never fails fast: all
// field and cross-field failures are collected into a *ValidationError keyed
// by field name.
package formschema
