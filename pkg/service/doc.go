// Package service holds the remote access services of the boarding admin.
// Every call is a single named GraphQL operation and returns a
// graphql.Result; escalation of failed reads is an explicit Policy.
package service
