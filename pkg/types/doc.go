// Package types defines shared Go types used by both the daemon and the CLI.
// These are the canonical in-memory representations of service health data,
// independent of how a surface (HTTP, websocket, terminal) renders them.
package types
