// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package sparql implements the Triple-Store Gateway collaborator.

It is pure wire transport against a configured SPARQL Protocol endpoint: no
SPARQL engine, query planner, or federation logic lives here, matching the
explicit non-goal in scope. internal/timeseries and internal/derived build
query/update strings themselves and hand them to this package as opaque text.
*/
package sparql

import (
	stdctx "context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/anchorgraph/corestack/internal/platform/constants"
)

// Binding is a single variable->RDF-term mapping within one SPARQL results row.
type Binding struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// sparqlResults mirrors the W3C SPARQL 1.1 Query Results JSON Format.
type sparqlResults struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]Binding `json:"bindings"`
	} `json:"results"`
	Boolean *bool `json:"boolean"`
}

// Client is the Triple-Store Gateway: SPARQL query/ask/update transport
// against a named endpoint pair. Updates are atomic per call, guaranteed by
// the remote triple store, not by this client.
type Client interface {
	// Query executes a SPARQL SELECT and returns its result bindings.
	Query(ctx stdctx.Context, query string) ([]map[string]Binding, error)
	// Ask executes a SPARQL ASK and returns its single boolean result.
	Ask(ctx stdctx.Context, query string) (bool, error)
	// Update executes a SPARQL update (INSERT/DELETE). It is atomic per call.
	Update(ctx stdctx.Context, update string) error
}

// HTTPClient is the default [Client] implementation, posting SPARQL
// Protocol requests to configured query/update endpoints over HTTP.
type HTTPClient struct {
	queryEndpoint  string
	updateEndpoint string
	httpClient     *http.Client
}

// NewHTTPClient constructs a [Client] bound to the given query and update
// endpoints.
func NewHTTPClient(queryEndpoint, updateEndpoint string) *HTTPClient {
	return &HTTPClient{
		queryEndpoint:  queryEndpoint,
		updateEndpoint: updateEndpoint,
		httpClient: &http.Client{
			Timeout: constants.SparqlCallTimeout,
		},
	}
}

// Query executes a SPARQL SELECT against the query endpoint.
func (c *HTTPClient) Query(ctx stdctx.Context, query string) ([]map[string]Binding, error) {
	results, err := c.execQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return results.Results.Bindings, nil
}

// Ask executes a SPARQL ASK against the query endpoint.
func (c *HTTPClient) Ask(ctx stdctx.Context, query string) (bool, error) {
	results, err := c.execQuery(ctx, query)
	if err != nil {
		return false, err
	}
	if results.Boolean == nil {
		return false, fmt.Errorf("sparql: ASK response carried no boolean field")
	}
	return *results.Boolean, nil
}

// execQuery posts a single SPARQL query, retrying transient transport
// failures with bounded backoff. A rejection from the store itself (HTTP
// 4xx) is not retried.
func (c *HTTPClient) execQuery(ctx stdctx.Context, query string) (*sparqlResults, error) {
	var parsed sparqlResults

	err := retry.Do(
		func() error {
			form := url.Values{"query": {query}}
			request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.queryEndpoint, strings.NewReader(form.Encode()))
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("sparql: building query request: %w", err))
			}
			request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			request.Header.Set("Accept", "application/sparql-results+json")

			response, err := c.httpClient.Do(request)
			if err != nil {
				return fmt.Errorf("sparql: query transport failure: %w", err)
			}
			defer response.Body.Close()

			body, err := io.ReadAll(response.Body)
			if err != nil {
				return fmt.Errorf("sparql: reading query response: %w", err)
			}

			if response.StatusCode >= 500 {
				return fmt.Errorf("sparql: query endpoint returned %d: %s", response.StatusCode, string(body))
			}
			if response.StatusCode >= 400 {
				return retry.Unrecoverable(fmt.Errorf("sparql: query rejected with %d: %s", response.StatusCode, string(body)))
			}

			if err := json.Unmarshal(body, &parsed); err != nil {
				return retry.Unrecoverable(fmt.Errorf("sparql: decoding query response: %w", err))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(constants.SparqlCallMaxRetries),
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(200*time.Millisecond),
	)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// Update executes a SPARQL update (INSERT/DELETE) against the update
// endpoint. It is atomic per call: the remote store either applies the
// whole update or rejects it outright.
func (c *HTTPClient) Update(ctx stdctx.Context, update string) error {
	return retry.Do(
		func() error {
			form := url.Values{"update": {update}}
			request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.updateEndpoint, strings.NewReader(form.Encode()))
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("sparql: building update request: %w", err))
			}
			request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

			response, err := c.httpClient.Do(request)
			if err != nil {
				return fmt.Errorf("sparql: update transport failure: %w", err)
			}
			defer response.Body.Close()

			body, _ := io.ReadAll(response.Body)

			if response.StatusCode >= 500 {
				return fmt.Errorf("sparql: update endpoint returned %d: %s", response.StatusCode, string(body))
			}
			if response.StatusCode >= 400 {
				return retry.Unrecoverable(fmt.Errorf("sparql: update rejected with %d: %s", response.StatusCode, string(body)))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(constants.SparqlCallMaxRetries),
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(200*time.Millisecond),
	)
}
