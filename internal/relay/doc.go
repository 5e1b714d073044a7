// Package relay pushes camera notifications to websocket clients.
//
// A Hub subscribes to a camera as its Observer and broadcasts every event as
// a JSON Message. Clients connecting late first receive the latest message
// of each state type, so they start from the current picture. Clients may
// send Commands ({"command":"mode","arg":"play"}); Run executes them on the
// goroutine that drives the camera and drains after each one.
//
// # Usage Example
//
//	hub := relay.NewHub()
//	server := relay.NewServer(&relay.Config{Listen: ":8765"}, hub)
//	go func() { _ = relay.Run(ctx, cam, hub, 0) }()
//	if err := server.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Wire Format
//
//	{"type":"cam_mode_changed","time":"...","endpoint":"switch_cammode","cam_mode":"play"}
//	{"type":"error","time":"...","error":"Camera not responding (timeout)"}
package relay
