// Package discovery finds cameras on the local network.
//
// Two mechanisms are combined:
//  1. mDNS browsing for "_http._tcp" services whose hostnames look like a
//     camera (OLYMPUS-*, E-M*, OM-D*, PEN*, TG-*)
//  2. A direct probe: TCP connect followed by get_caminfo, used on the
//     default access point address when mDNS finds nothing
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	devices, err := scanner.Discover(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, d := range devices {
//	    fmt.Println(d)
//	}
//
// # Network Requirements
//
// mDNS needs multicast on the interface and UDP port 5353 open. Cameras
// running their own access point usually do not advertise at all, which is
// what the probe fallback is for.
package discovery
