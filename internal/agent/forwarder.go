package agent

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nexusnode/relay/internal/hopbyhop"
	"github.com/nexusnode/relay/internal/protocol"
)

// localTimeout bounds how long a forwarder waits on the local backend.
// It is longer than the relay server's reply timeout (10s): a local request
// that takes between 10s and 12s is answered with a 504 by the relay, and the
// Response the agent sends afterwards is discarded there.
const localTimeout = 12 * time.Second

var httpClient = &http.Client{Timeout: localTimeout}

// forward executes req against the local backend on localPort and builds
// the Response to send back over the tunnel. It never returns an error:
// local failures are turned into a synthesized 502 response, matching how
// the relay side never hears about transport errors directly.
func forward(ctx context.Context, localPort uint16, req protocol.Request) protocol.Response {
	body, err := base64.StdEncoding.DecodeString(req.BodyB64)
	if err != nil {
		body = nil
	}

	url := fmt.Sprintf("http://127.0.0.1:%d%s", localPort, req.Path)
	ctx, cancel := context.WithTimeout(ctx, localTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, bytes.NewReader(body))
	if err != nil {
		// unknown/unparseable method string: fall back to GET rather than
		// failing the request outright.
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodGet, url, bytes.NewReader(body))
		if err != nil {
			return badGateway(req.ID, "Invalid request")
		}
	}
	for k, v := range req.Headers {
		if hopbyhop.Is(k) {
			continue
		}
		httpReq.Header.Set(k, v)
	}
	httpReq.Host = fmt.Sprintf("localhost:%d", localPort)

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		log.Warn().Err(err).Str("path", req.Path).Msg("agent: local request failed")
		return badGateway(req.ID, "Local server unreachable")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return badGateway(req.ID, "Failed to read local response")
	}

	return protocol.Response{
		ID:      req.ID,
		Status:  uint16(resp.StatusCode),
		Headers: hopbyhop.Filter(resp.Header),
		BodyB64: base64.StdEncoding.EncodeToString(respBody),
	}
}

func badGateway(id, message string) protocol.Response {
	return protocol.Response{
		ID:      id,
		Status:  uint16(http.StatusBadGateway),
		Headers: map[string]string{"content-type": "text/plain"},
		BodyB64: base64.StdEncoding.EncodeToString([]byte(message)),
	}
}
