// Package camera implements a control-plane client for Wi-Fi cameras that
// speak the OI.Share CGI protocol.
//
// The camera exposes one HTTP endpoint per operation (get_caminfo.cgi,
// switch_cammode.cgi, ...). Replies come back as XML, CRLF separated image
// listings, JPEG bytes, or empty acknowledgements, and the only reliable
// discriminator is the declared Content-Type together with the body size.
//
// # Request Flow
//
//  1. A logical operation (RequestCamInfo, SwitchCamMode, ...) builds an
//     Operation and issues it. Issuing never blocks.
//  2. The HTTP exchange runs on its own goroutine and posts its result to
//     the camera's completion queue.
//  3. Drain processes completions on the caller's goroutine until every
//     request issued before the call has completed.
//  4. Each completion is classified (Classify) and handed to the parser for
//     its endpoint, which updates DeviceState and notifies observers.
//
// # Usage Example
//
//	cam := camera.New(camera.DefaultAddress, camera.DefaultPort)
//	defer cam.Close()
//
//	cam.Subscribe(camera.ObserverFunc(func(e camera.Event) {
//	    fmt.Println(e.Kind)
//	}))
//
//	_ = cam.RequestCamInfo()
//	_ = cam.SwitchCamMode(camera.ModePlay)
//	if err := cam.Drain(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cam.Model(), cam.CamMode())
//
// # Mode Switches
//
// switch_cammode is acknowledged with an empty body, so the requested mode
// travels on the Operation and is committed only when that acknowledgement
// arrives. A failed switch leaves CamMode untouched.
//
// # Thread Safety
//
// A Camera is not safe for concurrent use. Drive it from one goroutine;
// observers run on that goroutine too.
//
// # Error Handling
//
// Failures while handling a reply never escape Drain. They are logged and
// passed to Camera.OnError as *DeviceError values.
package camera
