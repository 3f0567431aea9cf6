// Package store keeps the latest polled health of every service in memory,
// together with an uptime percentage over the most recent polls. Entries not
// refreshed within the TTL are evicted by a background loop.
package store
