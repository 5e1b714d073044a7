package camera

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/beevik/etree"
)

const (
	// DefaultUserAgent is the user agent the camera firmware expects
	DefaultUserAgent = "libqt-omd v0.1"

	// dcimPrefix is the path under which the camera serves image files
	dcimPrefix = "/DCIM/"

	// DefaultImageDir is the directory listed when no directory is given
	DefaultImageDir = "/DCIM/100OLYMP"
)

// Param is a single query parameter. Operations keep params in a slice
// because the order reaches the wire.
type Param struct {
	Key   string
	Value string
}

// Operation describes one logical request to the camera.
type Operation struct {
	Endpoint Endpoint
	Params   []Param
	Method   string

	// Body is serialized as the request body for POST operations.
	Body *etree.Document

	// Mode is the requested mode of a switch_cammode operation. The camera
	// acknowledges with an empty body, so this is the only record of it.
	Mode CamMode

	// path overrides the CGI path for plain file fetches.
	path string
}

// NewGet returns a GET operation for the endpoint.
func NewGet(endpoint Endpoint, params ...Param) *Operation {
	return &Operation{Endpoint: endpoint, Params: params, Method: http.MethodGet}
}

// NewPost returns a POST operation carrying an XML body.
func NewPost(endpoint Endpoint, body *etree.Document, params ...Param) *Operation {
	return &Operation{Endpoint: endpoint, Params: params, Method: http.MethodPost, Body: body}
}

// newImageFetch returns the operation for /DCIM/100OLYMP/<name>.JPG
func newImageFetch(name string) *Operation {
	return &Operation{
		Endpoint: EndpointImage,
		Method:   http.MethodGet,
		path:     DefaultImageDir + "/" + name + ".JPG",
	}
}

// Path returns the URL path of the operation
func (op *Operation) Path() string {
	if op.path != "" {
		return op.path
	}
	return "/" + op.Endpoint.Name() + ".cgi"
}

// Query serializes the params in wire order.
func (op *Operation) Query() string {
	params := op.Params

	// The firmware's switch_cammode parser wants the first param last.
	if op.Endpoint == EndpointSwitchCamMode && len(params) > 1 {
		reordered := make([]Param, 0, len(params))
		reordered = append(reordered, params[1:]...)
		params = append(reordered, params[0])
	}

	pairs := make([]string, 0, len(params))
	for _, p := range params {
		pairs = append(pairs, escapeQuery(p.Key)+"="+escapeQuery(p.Value))
	}
	return strings.Join(pairs, "&")
}

// URL returns the fully qualified request URL for the given base
// (e.g. "http://192.168.0.10").
func (op *Operation) URL(baseURL string) string {
	u := strings.TrimSuffix(baseURL, "/") + op.Path()
	if q := op.Query(); q != "" {
		u += "?" + q
	}
	return u
}

// Request builds the transport-ready HTTP request.
func (op *Operation) Request(baseURL string, userAgent string) (*http.Request, error) {
	method := op.Method
	if method == "" {
		method = http.MethodGet
	}

	var body *bytes.Reader
	if method == http.MethodPost && op.Body != nil {
		data, err := op.Body.WriteToBytes()
		if err != nil {
			return nil, fmt.Errorf("failed to serialize %s body: %w", op.Endpoint, err)
		}
		body = bytes.NewReader(data)
	}

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, op.URL(baseURL), body)
	} else {
		req, err = http.NewRequest(method, op.URL(baseURL), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", op.Endpoint, err)
	}

	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "text/xml")
	}

	return req, nil
}

// escapeQuery percent-encodes s for a query component. Existing %XX escapes
// are passed through untouched; callers pre-encode '/' in directory values.
func escapeQuery(s string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isUnreserved(c):
			b.WriteByte(c)
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteString(s[i : i+3])
			i += 2
		default:
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0x0F])
		}
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' ||
		c == '-' || c == '_' || c == '.' || c == '~'
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}
