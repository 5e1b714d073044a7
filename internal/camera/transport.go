package camera

import (
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// Doer performs a single HTTP exchange. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Envelope is a completed response as seen by the router.
type Envelope struct {
	Endpoint     Endpoint
	EndpointName string
	Params       []Param
	ContentType  string
	Body         []byte
	Size         int
	URL          string
	StatusCode   int

	// Err is set when the exchange failed before a response could be
	// classified. The other fields may be partially filled.
	Err error
}

// execute runs req and packs the outcome into an Envelope. Endpoint name and
// params are recovered from the request URL.
func execute(doer Doer, req *http.Request) *Envelope {
	endpoint, name := endpointFromURL(req.URL)
	env := &Envelope{
		Endpoint:     endpoint,
		EndpointName: name,
		Params:       paramsFromQuery(req.URL.RawQuery),
		URL:          req.URL.String(),
	}

	resp, err := doer.Do(req)
	if err != nil {
		env.Err = NewTransportError(name, env.URL, err)
		return env
	}
	defer func() { _ = resp.Body.Close() }()

	env.StatusCode = resp.StatusCode
	env.ContentType = mediaType(resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		env.Err = NewTransportError(name, env.URL, err)
		return env
	}
	env.Body = body
	env.Size = len(body)

	if resp.StatusCode >= http.StatusBadRequest {
		env.Err = NewHTTPError(name, env.URL, resp.StatusCode)
	}

	return env
}

// mediaType strips parameters such as charset from a Content-Type value.
func mediaType(value string) string {
	if value == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(value)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(value))
	}
	return mt
}

// paramsFromQuery splits a raw query into ordered params.
func paramsFromQuery(rawQuery string) []Param {
	if rawQuery == "" {
		return nil
	}

	pairs := strings.Split(rawQuery, "&")
	params := make([]Param, 0, len(pairs))
	for _, pair := range pairs {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		params = append(params, Param{Key: unescape(key), Value: unescape(value)})
	}
	return params
}

func unescape(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}
