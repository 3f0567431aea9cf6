// Package ws implements the websocket hub of accd.
//
// Hub pushes the current service snapshot to every connected client when it
// connects, after every poll (the poller calls Broadcast) and every interval
// (default 5s) in between.
//
// Message format sent to clients:
//
//	{
//	  "event": "snapshot",
//	  "cause": "connect" | "poll" | "tick",
//	  "data":  { /* same schema as GET /api/v1/snapshot */ }
//	}
//
// The endpoint is mounted at /ws/stream.
package ws
