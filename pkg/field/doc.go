// Package field declares the static field descriptors that make up an entity
// form. Each descriptor is a tagged variant (text, textarea, select, date,
// files, images, autocomplete, multi-select, numbers and the identifier)
// implementing the same capability set: Describe for renderers, Validate for
// inline and submit-time checks, Cast for the canonical payload sent to the
// API and Empty for initial values. Descriptors are values built at package
// init; nothing in this package mutates them.
package field
