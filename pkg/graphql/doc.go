// Package graphql is a small client for the admin's single GraphQL endpoint.
// Operations are named and their result is read from data.<operation>.
// Errors carrying field information implement FieldErrors so form containers
// can place server messages next to the offending inputs.
package graphql
