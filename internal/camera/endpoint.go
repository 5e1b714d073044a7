package camera

import (
	"net/url"
	"path"
	"strings"
)

// Endpoint identifies one CGI operation exposed by the camera.
type Endpoint int

const (
	EndpointUnknown Endpoint = iota
	EndpointCamInfo
	EndpointUnusedCapacity
	EndpointConnectMode
	EndpointCommandList
	EndpointGetCamProp
	EndpointSetCamProp
	EndpointImageList
	EndpointReservedImageList
	EndpointSwitchCamMode
	EndpointTakeMotion
	EndpointTakeMisc
	EndpointPowerOff

	// EndpointImage is a plain file fetch under /DCIM, not a CGI call.
	EndpointImage
)

var endpointNames = map[Endpoint]string{
	EndpointCamInfo:           "get_caminfo",
	EndpointUnusedCapacity:    "get_unusedcapacity",
	EndpointConnectMode:       "get_connectmode",
	EndpointCommandList:       "get_commandlist",
	EndpointGetCamProp:        "get_camprop",
	EndpointSetCamProp:        "set_camprop",
	EndpointImageList:         "get_imglist",
	EndpointReservedImageList: "get_rsvimglist",
	EndpointSwitchCamMode:     "switch_cammode",
	EndpointTakeMotion:        "exec_takemotion",
	EndpointTakeMisc:          "exec_takemisc",
	EndpointPowerOff:          "exec_pwoff",
}

var endpointsByName = func() map[string]Endpoint {
	m := make(map[string]Endpoint, len(endpointNames))
	for e, name := range endpointNames {
		m[name] = e
	}
	return m
}()

// Name returns the CGI base name (without ".cgi")
func (e Endpoint) Name() string {
	if e == EndpointImage {
		return "image"
	}
	if name, ok := endpointNames[e]; ok {
		return name
	}
	return "unknown"
}

// String implements fmt.Stringer
func (e Endpoint) String() string {
	return e.Name()
}

// ParseEndpoint maps a CGI base name to its Endpoint.
func ParseEndpoint(name string) Endpoint {
	if e, ok := endpointsByName[name]; ok {
		return e
	}
	return EndpointUnknown
}

// endpointFromURL recovers the endpoint from a completed request URL.
// The returned name is the file base name without extension, which is what
// gets reported for endpoints this client does not know.
func endpointFromURL(u *url.URL) (Endpoint, string) {
	if u == nil {
		return EndpointUnknown, ""
	}
	base := path.Base(u.Path)
	name := strings.TrimSuffix(base, path.Ext(base))

	if strings.HasPrefix(u.Path, dcimPrefix) {
		return EndpointImage, name
	}
	return ParseEndpoint(name), name
}
