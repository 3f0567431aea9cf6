// Package config loads accd's settings from command-center.yaml in the
// config directory. The file is optional; a missing file yields defaults.
//
// Sections:
//   - server.listen         address for the HTTP API and websocket (default 127.0.0.1:7777)
//   - server.poll_interval  health poll period (default 15s)
//   - server.ws_interval    websocket snapshot push period (default 5s)
//   - server.snapshot.ttl   how long a polled status stays live (default 5m)
//   - probes.timeout        per-probe timeout (default 5s)
//   - probes.services.<id>  url / command / expect / ca_file overrides per service
//   - logging               level and rotated file output
//   - alerts                rules and webhook delivery targets
//
// Load(path) applies defaults before unmarshalling, then validates. Watch
// reloads on change and keeps the previous config when a reload fails.
package config
