package jsonrpc

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	t.Run("should expose the code and match the sentinel", func(t *testing.T) {
		var err error = &Error{Code: -32603, Message: "request timed out"}

		assert.ErrorIs(t, err, ErrProviderReturnedError)
		assert.Equal(t, "provider error: [-32603] - request timed out", err.Error())

		var coder interface{ ErrorCode() int }
		require.True(t, errors.As(err, &coder))
		assert.Equal(t, -32603, coder.ErrorCode())
	})
}

func TestClient_Fetch(t *testing.T) {
	t.Run("should send a JSON-RPC 2.0 request and return the result", func(t *testing.T) {
		var request map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &request)

			_ = json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0",
				"result":  "0x10",
				"id":      request["id"],
			})
		}))
		defer server.Close()

		c := NewClient(server.Client(), server.URL)

		result, err := c.Fetch(t.Context(), "eth_getBlockByNumber", "0x10", false)

		require.NoError(t, err)
		assert.JSONEq(t, `"0x10"`, string(result))
		assert.Equal(t, "2.0", request["jsonrpc"])
		assert.Equal(t, "eth_getBlockByNumber", request["method"])
		assert.Equal(t, []any{"0x10", false}, request["params"])
		assert.NotEmpty(t, request["id"])
	})

	t.Run("should send an empty params array when none are given", func(t *testing.T) {
		var request map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &request)
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":"1","result":"0x1"}`))
		}))
		defer server.Close()

		_, err := NewClient(server.Client(), server.URL).Fetch(t.Context(), "eth_blockNumber")

		require.NoError(t, err)
		assert.Equal(t, []any{}, request["params"])
	})

	t.Run("should return the JSON-RPC error object", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":"1","error":{"code":-32601,"message":"method not found"}}`))
		}))
		defer server.Close()

		result, err := NewClient(server.Client(), server.URL).Fetch(t.Context(), "nonexistent_method")

		assert.Nil(t, result)
		var rpcErr *Error
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, -32601, rpcErr.Code)
		assert.Equal(t, "method not found", rpcErr.Message)
	})

	t.Run("should map an HTTP 429 to an error with that code", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte("slow down"))
		}))
		defer server.Close()

		_, err := NewClient(server.Client(), server.URL).Fetch(t.Context(), "eth_blockNumber")

		var rpcErr *Error
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, http.StatusTooManyRequests, rpcErr.ErrorCode())
		assert.Equal(t, "Too Many Requests", rpcErr.Message)
	})

	t.Run("should prefer the error object over the HTTP status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":"1","error":{"code":-32603,"message":"timeout"}}`))
		}))
		defer server.Close()

		_, err := NewClient(server.Client(), server.URL).Fetch(t.Context(), "eth_blockNumber")

		var rpcErr *Error
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, -32603, rpcErr.Code)
	})

	t.Run("should fail on a malformed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("this is not json"))
		}))
		defer server.Close()

		result, err := NewClient(server.Client(), server.URL).Fetch(t.Context(), "bad_json")

		assert.Nil(t, result)
		assert.ErrorContains(t, err, "invalid character")
		assert.NotErrorIs(t, err, ErrProviderReturnedError)
	})

	t.Run("should fail when the server is down", func(t *testing.T) {
		server := httptest.NewServer(nil)
		server.Close()

		result, err := NewClient(http.DefaultClient, server.URL).Fetch(t.Context(), "network_failure")

		assert.Error(t, err)
		assert.Nil(t, result)
	})
}
