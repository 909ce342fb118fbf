// Package autocomplete serves JSON options for relation inputs.
//
// The handler responds to GET and HEAD requests with {"data":[{"value","label"}]}.
// Records are looked up through a Source, normally the service directory, so
// every renderer searches related entities the same way.
package autocomplete
