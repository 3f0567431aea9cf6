// Package routing loads, saves and validates the two documents that drive
// request routing: the gateway config (model list plus opaque gateway
// settings) and the routing policy (privacy, complexity and injection
// rules).
//
// Both documents are treated as mostly opaque. Fields this package does not
// interpret are kept verbatim, at every level that carries an Extra map, so a
// load followed by a save never drops keys a newer gateway release added.
package routing
