package camera

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
)

// ErrorType is the category of a DeviceError.
type ErrorType int

const (
	ErrTypeNetwork           ErrorType = iota // reset, unreachable, anything else below HTTP
	ErrTypeTimeout                            // request or drain deadline
	ErrTypeConnectionRefused                  // nothing listening on the camera port
	ErrTypeDNS                                // host name did not resolve
	ErrTypeHTTP                               // camera answered with an error status
	ErrTypeMalformedBody                      // body does not parse as declared
	ErrTypeUnclassifiable                     // content type and size match no category
	ErrTypeImageDecode                        // JPEG bytes fail to decode
	ErrTypeUnknown
)

var errorTypeNames = [...]string{
	ErrTypeNetwork:           "Network Error",
	ErrTypeTimeout:           "Timeout",
	ErrTypeConnectionRefused: "Connection Refused",
	ErrTypeDNS:               "DNS Error",
	ErrTypeHTTP:              "HTTP Error",
	ErrTypeMalformedBody:     "Malformed Body",
	ErrTypeUnclassifiable:    "Unclassifiable Response",
	ErrTypeImageDecode:       "Image Decode Error",
	ErrTypeUnknown:           "Unknown Error",
}

func (et ErrorType) String() string {
	if et >= 0 && int(et) < len(errorTypeNames) {
		return errorTypeNames[et]
	}
	return fmt.Sprintf("ErrorType(%d)", int(et))
}

// NetworkErrorSubtype refines ErrTypeNetwork and friends.
type NetworkErrorSubtype int

const (
	NetworkErrorGeneral NetworkErrorSubtype = iota
	NetworkErrorTimeout
	NetworkErrorConnectionRefused
	NetworkErrorDNS
	NetworkErrorHostUnreachable
	NetworkErrorNetworkUnreachable
)

// DeviceError is returned for every failure talking to the camera or
// interpreting one of its replies.
type DeviceError struct {
	Type           ErrorType
	Message        string
	Endpoint       string // endpoint name as recovered from the URL
	ContentType    string
	Size           int
	URL            string
	StatusCode     int
	Err            error
	NetworkSubtype NetworkErrorSubtype
}

func (e *DeviceError) Error() string {
	msg := e.Type.String() + ": " + e.Message
	if e.Endpoint != "" {
		msg += " [endpoint=" + e.Endpoint + "]"
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Err)
	}
	return msg
}

func (e *DeviceError) Unwrap() error { return e.Err }

// socket-level failures, checked in order against the wrapped errno
var errnoClasses = []struct {
	errno   syscall.Errno
	typ     ErrorType
	subtype NetworkErrorSubtype
	message string
}{
	{syscall.ECONNREFUSED, ErrTypeConnectionRefused, NetworkErrorConnectionRefused, "Camera refused connection"},
	{syscall.EHOSTUNREACH, ErrTypeNetwork, NetworkErrorHostUnreachable, "Host unreachable"},
	{syscall.ENETUNREACH, ErrTypeNetwork, NetworkErrorNetworkUnreachable, "Network unreachable"},
}

// ClassifyNetworkError wraps a transport error in a DeviceError carrying
// its category. A nil error yields nil.
func ClassifyNetworkError(err error) *DeviceError {
	if err == nil {
		return nil
	}
	classified := &DeviceError{
		Type:           ErrTypeNetwork,
		Message:        "Network error occurred",
		Err:            err,
		NetworkSubtype: NetworkErrorGeneral,
	}

	var dnsErr *net.DNSError
	switch {
	case os.IsTimeout(err), errors.Is(err, os.ErrDeadlineExceeded):
		classified.Type, classified.NetworkSubtype = ErrTypeTimeout, NetworkErrorTimeout
		classified.Message = "Request timed out"
	case errors.As(err, &dnsErr):
		classified.Type, classified.NetworkSubtype = ErrTypeDNS, NetworkErrorDNS
		classified.Message = "DNS resolution failed for " + dnsErr.Name
	default:
		for _, c := range errnoClasses {
			if errors.Is(err, c.errno) {
				classified.Type, classified.NetworkSubtype = c.typ, c.subtype
				classified.Message = c.message
				break
			}
		}
	}
	return classified
}

// NewTransportError classifies err and attaches the request context
func NewTransportError(endpoint, rawURL string, err error) *DeviceError {
	classified := ClassifyNetworkError(err)
	classified.Endpoint = endpoint
	classified.URL = rawURL
	return classified
}

// NewHTTPError creates an error for a camera that answered with an error status
func NewHTTPError(endpoint, rawURL string, statusCode int) *DeviceError {
	return &DeviceError{
		Type:       ErrTypeHTTP,
		Message:    fmt.Sprintf("camera returned %d %s", statusCode, http.StatusText(statusCode)),
		Endpoint:   endpoint,
		URL:        rawURL,
		StatusCode: statusCode,
	}
}

// NewMalformedBodyError creates an error for a body that does not parse
func NewMalformedBodyError(endpoint, message string, err error) *DeviceError {
	return &DeviceError{
		Type:     ErrTypeMalformedBody,
		Message:  message,
		Endpoint: endpoint,
		Err:      err,
	}
}

// NewUnclassifiableError creates an error for a response whose content type
// and size match no known category
func NewUnclassifiableError(endpoint, contentType string, size int, rawURL string) *DeviceError {
	return &DeviceError{
		Type:        ErrTypeUnclassifiable,
		Message:     fmt.Sprintf("failed to classify reply: Content-Type = %q, Size = %d, URL = %s", contentType, size, rawURL),
		Endpoint:    endpoint,
		ContentType: contentType,
		Size:        size,
		URL:         rawURL,
	}
}

// NewImageDecodeError creates an error for JPEG bytes that fail to decode
func NewImageDecodeError(endpoint string, size int, err error) *DeviceError {
	return &DeviceError{
		Type:     ErrTypeImageDecode,
		Message:  "failed to decode image",
		Endpoint: endpoint,
		Size:     size,
		Err:      err,
	}
}

func errorType(err error) (ErrorType, bool) {
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return devErr.Type, true
	}
	return ErrTypeUnknown, false
}

// IsTransportError checks if an error happened before a response could be
// classified (network, timeout, refused, DNS, HTTP status)
func IsTransportError(err error) bool {
	t, ok := errorType(err)
	if !ok {
		return false
	}
	switch t {
	case ErrTypeNetwork, ErrTypeTimeout, ErrTypeConnectionRefused, ErrTypeDNS, ErrTypeHTTP:
		return true
	}
	return false
}

// IsTimeout checks if an error is a timeout
func IsTimeout(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeTimeout
}

// IsMalformedBody checks if an error is a malformed body error
func IsMalformedBody(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeMalformedBody
}

// IsUnclassifiable checks if an error is an unclassifiable response error
func IsUnclassifiable(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeUnclassifiable
}

// IsImageDecodeError checks if an error is an image decode error
func IsImageDecodeError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeImageDecode
}

type advice struct {
	summary string
	steps   []string
}

func (a advice) String() string {
	if len(a.steps) == 0 {
		return a.summary
	}
	var b strings.Builder
	b.WriteString(a.summary)
	b.WriteString("\nTroubleshooting:")
	for _, s := range a.steps {
		b.WriteString("\n  • ")
		b.WriteString(s)
	}
	return b.String()
}

var (
	adviceByType = map[ErrorType]advice{
		ErrTypeTimeout: {"The camera did not respond in time.", []string{
			"Check that the camera is switched on and its Wi-Fi is enabled",
			"Verify you're connected to the camera's access point",
			"Try increasing --timeout",
		}},
		ErrTypeConnectionRefused: {"The camera refused the connection.", []string{
			"Start the camera's smartphone connection mode",
			"Verify the address (default is " + DefaultAddress + ")",
			"Verify the port number (default is 80)",
		}},
		ErrTypeDNS: {"Could not resolve the camera hostname.", []string{
			"Use the IP address instead of a hostname",
			"Verify you're on the camera's network",
		}},
		ErrTypeMalformedBody: {"The camera's response could not be understood. " +
			"Its firmware may not be supported; rerun with --log-level debug to see the raw reply.", nil},
		ErrTypeImageDecode: {"The image data was incomplete or not a JPEG. Try fetching it again.", nil},
	}

	adviceBySubtype = map[NetworkErrorSubtype]advice{
		NetworkErrorHostUnreachable: {"The camera is not reachable on the network.", []string{
			"Verify the camera address is correct",
			"Check that you're on the camera's Wi-Fi network",
		}},
		NetworkErrorNetworkUnreachable: {"Your computer cannot reach the camera's network.", []string{
			"Connect to the camera's Wi-Fi access point",
			"Verify Wi-Fi is enabled on your computer",
		}},
		NetworkErrorGeneral: {"Network communication failed.", []string{
			"Check your network connection",
			"Verify the camera is switched on",
		}},
	}
)

func init() {
	adviceByType[ErrTypeUnclassifiable] = adviceByType[ErrTypeMalformedBody]
}

// GetTroubleshootingHint returns multi-line advice for err. It never
// returns an empty string.
func GetTroubleshootingHint(err error) string {
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		return "An unexpected error occurred. Please try again."
	}
	if devErr.Type == ErrTypeHTTP {
		return fmt.Sprintf("The camera returned HTTP error %d. The command may not be supported "+
			"in the current mode; try switching modes first.", devErr.StatusCode)
	}
	if devErr.Type == ErrTypeNetwork {
		if a, ok := adviceBySubtype[devErr.NetworkSubtype]; ok {
			return a.String()
		}
		return adviceBySubtype[NetworkErrorGeneral].String()
	}
	if a, ok := adviceByType[devErr.Type]; ok {
		return a.String()
	}
	return "An error occurred. Please check the error message for details."
}

var shortMessages = map[ErrorType]string{
	ErrTypeTimeout:           "Camera not responding (timeout)",
	ErrTypeConnectionRefused: "Camera refused connection - is Wi-Fi mode active?",
	ErrTypeDNS:               "Cannot resolve camera hostname",
	ErrTypeMalformedBody:     "Failed to parse camera response",
	ErrTypeImageDecode:       "Failed to decode image",
}

// GetShortErrorMessage condenses err to a single line for status output.
// Errors that are not DeviceErrors are returned verbatim.
func GetShortErrorMessage(err error) string {
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		return err.Error()
	}
	if msg, ok := shortMessages[devErr.Type]; ok {
		return msg
	}
	switch devErr.Type {
	case ErrTypeNetwork:
		switch devErr.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			return "Camera unreachable - check network connection"
		case NetworkErrorNetworkUnreachable:
			return "Network unreachable - check Wi-Fi connection"
		}
		return "Network error - check connection"
	case ErrTypeHTTP:
		return fmt.Sprintf("Camera error (HTTP %d)", devErr.StatusCode)
	case ErrTypeUnclassifiable:
		return fmt.Sprintf("Unexpected %q response from %s", devErr.ContentType, devErr.Endpoint)
	}
	return devErr.Message
}
