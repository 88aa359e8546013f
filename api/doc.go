// Package api describes the public surface of the Erflog interview service.
//
// # API Overview
//
//   - WebSocket interview channels (voice PCM and text), see package api/ws
//   - HTTP chat turns for clients without a socket
//   - Interview history per user
//   - Live session inspection
//   - Health, readiness, version and Prometheus metrics
//
// # Authentication
//
// When API keys are configured, HTTP endpoints require the X-API-Key header.
// When a JWT secret is configured, a bearer token is required and its subject
// becomes the interview user id:
//
//	Authorization: Bearer <token>
//
// WebSocket clients that cannot set headers may pass ?token= when
// auth.allow_query_token is enabled.
//
// # Base URL
//
//	http://localhost:8080
package api
