package core

import "net/http"

// Media types used on the wire.
const (
	MediaTypeJSON = "application/json"
)

// Request is a fully formed HTTP request descriptor handed to the transport.
// It is built fresh for every call and owned by the caller that built it.
type Request struct {
	Method      string
	URL         string
	Accept      string
	ContentType string
	Body        []byte
	Auth        AuthDecision
}

// Response is what the transport returns for a completed request.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Location returns the Location header of the response, if any.
func (r *Response) Location() string {
	if r == nil || r.Header == nil {
		return ""
	}
	return r.Header.Get("Location")
}
