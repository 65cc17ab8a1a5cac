// Package websocket pushes dataset and dashboard events to browser
// clients.
//
// A single Hub goroutine owns the client set. Services publish through the
// Publisher interface; Publish never blocks, so a stalled socket cannot slow
// down an upload or a dashboard save. Each Client runs a read pump (which
// only keeps the connection alive) and a write pump (which drains its send
// queue and pings).
//
//	hub := websocket.NewHub(logger, metrics)
//	hub.Start()
//	defer hub.Stop()
//	r.Handle("/ws", websocket.NewHandler(hub, websocket.HandlerConfig{AllowedOrigins: origins}, logger))
package websocket
