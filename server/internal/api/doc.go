// Package api implements the local HTTP API of accd.
//
// New(deps) returns a chi router that serves:
//
//	GET    /api/v1/health              fresh probe of all five services
//	GET    /api/v1/health/{service}    fresh probe of one service; 404 if unknown
//	GET    /api/v1/snapshot            last polled status with uptime and diagnostics
//	GET    /api/v1/logs/{service}      tail of a service log (?lines=N, default 100)
//	GET    /api/v1/config              routing config
//	PUT    /api/v1/config              replace routing config
//	POST   /api/v1/config/validate     validate a routing config without saving
//	GET    /api/v1/policy              routing policy
//	PUT    /api/v1/policy              replace routing policy
//	GET    /api/v1/models              model runner inventory
//	POST   /api/v1/models/pull         pull a model ({"name": "..."})
//	DELETE /api/v1/models/{name}       remove a model
//	GET    /api/v1/alerts              firing and recently resolved alerts
//
// All endpoints respond with Content-Type: application/json. Errors use
// {"error": "..."}: 404 for missing documents or unknown services, 422 for
// documents that fail to parse, 400 for malformed request bodies and 500 for
// write failures.
package api
