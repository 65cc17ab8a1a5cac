// Package app wires the Linka server together and manages its lifecycle.
//
// NewApplication resolves paths, starts OpenTelemetry, opens the dashboard
// store and builds the services, the websocket hub and the chi router.
// Run restores datasets found in the uploads directory, serves HTTP and
// shuts everything down on SIGINT or SIGTERM.
//
// # Middleware order
//
//	RequestID → RealIP → /ws (upgrade, no response wrapping)
//	OTel → StructuredLogger → Recovery → SecureHeaders → CORS → RateLimit → Audit
//	/api: JSON content type → StripSlashes → Timeout → ErrorMiddleware
//
// /metrics is served outside the group so scrapes are not rate limited.
package app
