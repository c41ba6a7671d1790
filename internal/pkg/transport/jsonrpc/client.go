// Package jsonrpc is a minimal JSON-RPC 2.0 client over HTTP.
package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
)

// ErrProviderReturnedError matches every *Error returned by Fetch.
var ErrProviderReturnedError = errors.New("provider error")

// Error is a failure reported by the remote side. Code is either the code of the JSON-RPC
// error object or, when the server answered with a non-2xx status and no usable body, the
// HTTP status code.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: [%d] - %s", ErrProviderReturnedError, e.Code, e.Message)
}

// ErrorCode exposes the code to retry classifiers.
func (e *Error) ErrorCode() int {
	return e.Code
}

// Is reports whether target is ErrProviderReturnedError.
func (e *Error) Is(target error) bool {
	return target == ErrProviderReturnedError
}

type response struct {
	JsonRPC string          `json:"jsonrpc"`
	Error   *Error          `json:"error"`
	Result  json.RawMessage `json:"result"`
}

// Client sends JSON-RPC calls.
type Client interface {
	// Fetch calls method with params and returns the raw result.
	Fetch(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

type client struct {
	providerEndpoint string
	httpClient       *http.Client
}

var _ Client = (*client)(nil)

// Fetch implements Client. Request ids are random UUIDs.
func (c *client) Fetch(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}

	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      uuid.NewString(),
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.providerEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	var data response
	if err := json.Unmarshal(raw, &data); err != nil {
		if res.StatusCode >= http.StatusBadRequest {
			return nil, &Error{Code: res.StatusCode, Message: http.StatusText(res.StatusCode)}
		}
		return nil, err
	}

	if data.Error != nil {
		return nil, data.Error
	}

	if res.StatusCode >= http.StatusBadRequest {
		return nil, &Error{Code: res.StatusCode, Message: http.StatusText(res.StatusCode)}
	}

	return data.Result, nil
}

// NewClient returns a Client posting to providerEndpoint through httpClient.
func NewClient(httpClient *http.Client, providerEndpoint string) *client {
	return &client{
		providerEndpoint: providerEndpoint,
		httpClient:       httpClient,
	}
}
