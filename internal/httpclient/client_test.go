package httpclient_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fd1az/swap-router/internal/httpclient"
)

func TestCallRPC(t *testing.T) {
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Api-Key")
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"method":"eth_chainId"`) {
			t.Errorf("unexpected body %s", body)
		}
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x8f"}`))
	}))
	defer srv.Close()

	client, err := httpclient.New(
		httpclient.WithProviderName("node"),
		httpclient.WithHeaders(map[string]string{"X-Api-Key": "secret"}),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	res, err := httpclient.CallRPC(context.Background(), client, srv.URL, "eth_chainId")
	if err != nil {
		t.Fatalf("call: %v", err)
	}

	var chainID string
	if err := json.Unmarshal(res, &chainID); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if chainID != "0x8f" {
		t.Errorf("expected 0x8f, got %s", chainID)
	}
	if gotHeader != "secret" {
		t.Errorf("expected default header to be sent, got %q", gotHeader)
	}
}

func TestCallRPC_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`))
	}))
	defer srv.Close()

	client, err := httpclient.New()
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = httpclient.CallRPC(context.Background(), client, srv.URL, "eth_nope")
	rpcErr, ok := err.(*httpclient.RPCError)
	if !ok {
		t.Fatalf("expected *RPCError, got %T %v", err, err)
	}
	if rpcErr.Code != -32601 {
		t.Errorf("unexpected code %d", rpcErr.Code)
	}
}

func TestCallRPC_HTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, _ := httpclient.New()
	if _, err := httpclient.CallRPC(context.Background(), client, srv.URL, "eth_chainId"); err == nil {
		t.Error("expected error on 502")
	}
}
