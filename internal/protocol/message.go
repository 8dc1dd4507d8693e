// Package protocol implements the framed JSON wire protocol shared by the
// relay server and relay client: a length-prefixed envelope carrying one
// tagged message per frame.
package protocol

import (
	"encoding/json"
	"fmt"
)

// ClientMessage is sent from a relay client to the relay server.
type ClientMessage interface {
	clientMessage()
}

// Register claims a slug immediately after the TCP connection is opened.
type Register struct {
	Slug  string
	Token string
}

// Response carries the local HTTP response for a previously forwarded Request.
type Response struct {
	ID      string
	Status  uint16
	Headers map[string]string
	BodyB64 string
}

// Heartbeat acknowledges a server Ping.
type Heartbeat struct{}

func (Register) clientMessage()  {}
func (Response) clientMessage()  {}
func (Heartbeat) clientMessage() {}

// ServerMessage is sent from the relay server to a relay client.
type ServerMessage interface {
	serverMessage()
}

// Registered confirms or rejects a Register message.
type Registered struct {
	OK    bool
	Error string // empty when OK is true
}

// Request is an HTTP request the client must forward to its local server.
type Request struct {
	ID      string
	Method  string
	Path    string
	Headers map[string]string
	BodyB64 string
}

// Ping is a server-initiated keep-alive.
type Ping struct{}

func (Registered) serverMessage() {}
func (Request) serverMessage()    {}
func (Ping) serverMessage()       {}

// wire shapes below mirror spec.md §4.1 and §9 ("encoders must never emit
// additional fields beyond those specified"): each has exactly the fields
// its type needs, nothing more.

type wireTag struct {
	Type string `json:"type"`
}

type wireRegister struct {
	Type  string `json:"type"`
	Slug  string `json:"slug"`
	Token string `json:"token"`
}

type wireResponse struct {
	Type    string            `json:"type"`
	ID      string            `json:"id"`
	Status  uint16            `json:"status"`
	Headers map[string]string `json:"headers"`
	BodyB64 string            `json:"body_b64"`
}

type wireHeartbeat struct {
	Type string `json:"type"`
}

type wireRegistered struct {
	Type  string  `json:"type"`
	OK    bool    `json:"ok"`
	Error *string `json:"error,omitempty"`
}

type wireRequest struct {
	Type    string            `json:"type"`
	ID      string            `json:"id"`
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Headers map[string]string `json:"headers"`
	BodyB64 string            `json:"body_b64"`
}

type wirePing struct {
	Type string `json:"type"`
}

const (
	tagRegister   = "register"
	tagResponse   = "response"
	tagHeartbeat  = "heartbeat"
	tagRegistered = "registered"
	tagRequest    = "request"
	tagPing       = "ping"
)

// EncodeClientMessage renders a ClientMessage to its wire JSON form.
func EncodeClientMessage(msg ClientMessage) ([]byte, error) {
	switch m := msg.(type) {
	case Register:
		return json.Marshal(wireRegister{Type: tagRegister, Slug: m.Slug, Token: m.Token})
	case Response:
		return json.Marshal(wireResponse{
			Type:    tagResponse,
			ID:      m.ID,
			Status:  m.Status,
			Headers: m.Headers,
			BodyB64: m.BodyB64,
		})
	case Heartbeat:
		return json.Marshal(wireHeartbeat{Type: tagHeartbeat})
	default:
		return nil, ErrEncodeUnknownMessage
	}
}

// DecodeClientMessage parses a wire-form client message, rejecting unknown tags.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var tag wireTag
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, &DecodeError{Err: err}
	}
	switch tag.Type {
	case tagRegister:
		var w wireRegister
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, &DecodeError{Err: err}
		}
		return Register{Slug: w.Slug, Token: w.Token}, nil
	case tagResponse:
		var w wireResponse
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, &DecodeError{Err: err}
		}
		return Response{ID: w.ID, Status: w.Status, Headers: w.Headers, BodyB64: w.BodyB64}, nil
	case tagHeartbeat:
		return Heartbeat{}, nil
	default:
		return nil, &DecodeError{Err: fmt.Errorf("unknown client message type %q", tag.Type)}
	}
}

// EncodeServerMessage renders a ServerMessage to its wire JSON form.
func EncodeServerMessage(msg ServerMessage) ([]byte, error) {
	switch m := msg.(type) {
	case Registered:
		w := wireRegistered{Type: tagRegistered, OK: m.OK}
		if m.Error != "" {
			w.Error = &m.Error
		}
		return json.Marshal(w)
	case Request:
		return json.Marshal(wireRequest{
			Type:    tagRequest,
			ID:      m.ID,
			Method:  m.Method,
			Path:    m.Path,
			Headers: m.Headers,
			BodyB64: m.BodyB64,
		})
	case Ping:
		return json.Marshal(wirePing{Type: tagPing})
	default:
		return nil, ErrEncodeUnknownMessage
	}
}

// DecodeServerMessage parses a wire-form server message, rejecting unknown tags.
func DecodeServerMessage(data []byte) (ServerMessage, error) {
	var tag wireTag
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, &DecodeError{Err: err}
	}
	switch tag.Type {
	case tagRegistered:
		var w wireRegistered
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, &DecodeError{Err: err}
		}
		r := Registered{OK: w.OK}
		if w.Error != nil {
			r.Error = *w.Error
		}
		return r, nil
	case tagRequest:
		var w wireRequest
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, &DecodeError{Err: err}
		}
		return Request{ID: w.ID, Method: w.Method, Path: w.Path, Headers: w.Headers, BodyB64: w.BodyB64}, nil
	case tagPing:
		return Ping{}, nil
	default:
		return nil, &DecodeError{Err: fmt.Errorf("unknown server message type %q", tag.Type)}
	}
}
