// Package client talks to the PuffPass backend.
//
// # Overview
//
// The package provides:
//  1. Transport-agnostic contracts for the two remote tables (Users,
//     Entries, combined as RemoteTable) and for the auth API (Auth).
//  2. A REST implementation (RESTClient) for PostgREST/GoTrue style
//     backends. It injects the api key and the bearer token, refreshes an
//     expired access token once per request and retries idempotent reads
//     on transport failures.
//
// A direct PostgreSQL implementation of RemoteTable lives in the pgtables
// subpackage.
//
// # Error Handling
//
// Every method returns *common.Error values; match them with errors.Is
// against the common sentinels (common.ErrTransportTimeout,
// common.ErrRemoteRejected, ...).
//
// RESTClient is safe for concurrent use. All operations honor context
// cancellation.
package client
