// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package agent implements the HTTP Agent Caller collaborator.

A derivation agent is a remote HTTP service that materialises a derived
node's outputs from its declared inputs. Per the redesign note carried into
this implementation, the call is issued as POST rather than GET-with-body —
several HTTP stacks reject a GET request carrying an entity body — but the
wire JSON shape is unchanged and remains the normative contract.
*/
package agent

import (
	"bytes"
	stdctx "context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/anchorgraph/corestack/internal/platform/constants"
)

// Request is the wire body sent to a derivation agent.
type Request struct {
	DerivedAgentInput []string `json:"derived_agent_input"`
}

// Response is the wire body returned by a derivation agent.
type Response struct {
	DerivedAgentOutput []string `json:"derived_agent_output"`
}

// Caller invokes a derivation agent over HTTP and decodes its response.
type Caller interface {
	Call(ctx stdctx.Context, url string, body Request) (*Response, error)
}

// HTTPCaller is the default [Caller] implementation.
type HTTPCaller struct {
	httpClient *http.Client
}

// NewHTTPCaller constructs a [Caller] with the platform's default agent-call
// timeout.
func NewHTTPCaller() *HTTPCaller {
	return &HTTPCaller{httpClient: &http.Client{Timeout: constants.AgentCallTimeout}}
}

// Call posts body as JSON to url and decodes the agent's JSON response.
// Transient transport failures and 5xx responses are retried with bounded
// backoff; a malformed request or a 4xx rejection is not.
func (c *HTTPCaller) Call(ctx stdctx.Context, url string, body Request) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("agent: encoding request: %w", err)
	}

	var decoded Response
	err = retry.Do(
		func() error {
			request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("agent: building request: %w", err))
			}
			request.Header.Set("Content-Type", "application/json")
			request.Header.Set("Accept", "application/json")

			response, err := c.httpClient.Do(request)
			if err != nil {
				return fmt.Errorf("agent: call failed: %w", err)
			}
			defer response.Body.Close()

			respBody, err := io.ReadAll(response.Body)
			if err != nil {
				return fmt.Errorf("agent: reading response: %w", err)
			}

			if response.StatusCode >= 500 {
				return fmt.Errorf("agent: endpoint returned %d: %s", response.StatusCode, string(respBody))
			}
			if response.StatusCode >= 400 {
				return retry.Unrecoverable(fmt.Errorf("agent: rejected with %d: %s", response.StatusCode, string(respBody)))
			}

			if err := json.Unmarshal(respBody, &decoded); err != nil {
				return retry.Unrecoverable(fmt.Errorf("agent: decoding response: %w", err))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(constants.AgentCallMaxRetries),
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(300*time.Millisecond),
	)
	if err != nil {
		return nil, err
	}

	return &decoded, nil
}
