package gopher

import (
	"bytes"
	"crypto/tls"
	"time"
)

// Gopher+ status lines that change where the body ends.
var (
	headerTerminated = []byte("+-1")
	headerToClose    = []byte("+-2")

	bodyTerminator = []byte(CRLF + LastLine)
)

// Response represents the response from a Gopher request.
//
// The whole stream is read before a Response is returned: Gopher has no
// length framing apart from the optional Gopher+ size header, so the end of
// a response is the server closing the connection.
type Response struct {
	// Raw is the stream exactly as it was read.
	Raw []byte

	// Header is the Gopher+ status line without its CRLF, e.g. "+-1".
	// It is empty for RFC1436 responses and for Gopher+ responses that
	// carried no status line.
	Header []byte

	// Body is the payload with the Gopher+ framing removed. Binary items
	// pass through unmodified.
	Body []byte

	Protocol Protocol
	Timing   TimingInfo

	// TLS contains information about the TLS connection on which the
	// response was received. It is nil for unencrypted responses.
	TLS *tls.ConnectionState

	// TLSFallback records why TLS could not be used when the request
	// preferred TLS and the response came over plaintext instead.
	TLSFallback error

	// Request is the request that was sent to obtain this Response.
	Request *Request
}

func newResponse(raw []byte, protocol Protocol, timing TimingInfo) *Response {
	header, body := Frame(raw, protocol)
	return &Response{
		Raw:      raw,
		Header:   header,
		Body:     body,
		Protocol: protocol,
		Timing:   timing,
	}
}

// Frame separates a raw response into the Gopher+ status line and the body.
//
// RFC1436 responses are all body. A Gopher+ response is split at the first
// CRLF; without one the whole buffer is treated as body. A "+-1" body ends
// with CRLF "." CRLF, which is removed. Every other status runs to the end of
// the stream.
func Frame(raw []byte, protocol Protocol) (header, body []byte) {
	if protocol != GopherPlus {
		return []byte{}, raw
	}
	end := bytes.Index(raw, []byte(CRLF))
	if end < 0 {
		return []byte{}, raw
	}
	header, body = raw[:end], raw[end+len(CRLF):]
	if bytes.Equal(header, headerTerminated) {
		if bytes.Equal(body, []byte(LastLine)) {
			return header, []byte{}
		}
		body = bytes.TrimSuffix(body, bodyTerminator)
	}
	return header, body
}

// TLSUsed reports whether the response came over TLS.
func (r *Response) TLSUsed() bool {
	return r.TLS != nil
}

// Failed reports whether a Gopher+ server answered with an error status.
func (r *Response) Failed() bool {
	return len(r.Header) > 0 && r.Header[0] == '-'
}

// Terminated reports whether the body was framed by a "+-1" header.
func (r *Response) Terminated() bool {
	return bytes.Equal(r.Header, headerTerminated)
}

// ToClose reports whether the body was framed by a "+-2" header.
func (r *Response) ToClose() bool {
	return bytes.Equal(r.Header, headerToClose)
}

func (r *Response) HeaderSize() int { return len(r.Header) }
func (r *Response) BodySize() int   { return len(r.Body) }

// Size is HeaderSize plus BodySize. Framing bytes (the CRLF after the status
// line and a stripped terminator) are not counted; len(Raw) includes them.
func (r *Response) Size() int { return r.HeaderSize() + r.BodySize() }

// TimingInfo holds the checkpoints of one request. They never decrease:
// Start <= WriteStart <= ReadStart <= ReadComplete.
type TimingInfo struct {
	// Start is taken before the connection is dialed.
	Start time.Time
	// WriteStart is taken once connected, before the selector is written.
	WriteStart time.Time
	// ReadStart is taken when the first bytes arrive.
	ReadStart time.Time
	// ReadComplete is taken when the server closed the stream.
	ReadComplete time.Time
}

// ConnectionWait is the time spent dialing, including TLS negotiation and fallback.
func (t TimingInfo) ConnectionWait() time.Duration { return nonNegative(t.WriteStart.Sub(t.Start)) }

// FirstByteWait is the time between writing the selector and the first bytes arriving.
func (t TimingInfo) FirstByteWait() time.Duration { return nonNegative(t.ReadStart.Sub(t.WriteStart)) }

// Receiving is the time spent reading after the first bytes arrived.
func (t TimingInfo) Receiving() time.Duration { return nonNegative(t.ReadComplete.Sub(t.ReadStart)) }

func (t TimingInfo) Total() time.Duration { return nonNegative(t.ReadComplete.Sub(t.Start)) }

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
