package nearrpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// byteArray renders data the way the query endpoint encodes view results,
// as a JSON array of byte values.
func byteArray(data []byte) []int {
	out := make([]int, len(data))
	for i, b := range data {
		out[i] = int(b)
	}
	return out
}

// viewServer serves call_function queries, returning resultJSON as the
// view result for every call.
func viewServer(t *testing.T, wantMethod string, resultJSON []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		if req.Method != "query" {
			t.Errorf("expected method query, got %s", req.Method)
		}
		params := req.Params.(map[string]interface{})
		if params["request_type"] != "call_function" {
			t.Errorf("expected call_function, got %v", params["request_type"])
		}
		if wantMethod != "" && params["method_name"] != wantMethod {
			t.Errorf("expected method_name %s, got %v", wantMethod, params["method_name"])
		}
		if _, err := base64.StdEncoding.DecodeString(params["args_base64"].(string)); err != nil {
			t.Errorf("args_base64 not base64: %v", err)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"result":       byteArray(resultJSON),
				"logs":         []string{},
				"block_height": int64(190000000),
				"block_hash":   "9wVFMRgq1XWsBroGE5iZxNc3Hp36VdopX4PPqaydzdcE",
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestClient_CallFunction(t *testing.T) {
	server := viewServer(t, "ft_total_supply", []byte(`"1000000000000000000000000000000000"`))
	defer server.Close()

	client := NewClient(server.URL)
	res, err := client.CallFunction(context.Background(), "itlx.brainstems.testnet", "ft_total_supply", nil, FinalityFinal)
	if err != nil {
		t.Fatalf("CallFunction: %v", err)
	}

	if string(res.Result) != `"1000000000000000000000000000000000"` {
		t.Errorf("unexpected result %s", res.Result)
	}
	if res.BlockHeight != 190000000 {
		t.Errorf("block height %d", res.BlockHeight)
	}
}

func TestClient_RPCErrorNotRetried(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error": map[string]interface{}{
				"code":    -32000,
				"message": "Server error",
				"data":    "UNKNOWN_ACCOUNT",
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithRetryDelay(time.Millisecond))
	_, err := client.ViewAccount(context.Background(), "missing.testnet")
	if err == nil {
		t.Fatal("expected RPC error")
	}
	if calls.Load() != 1 {
		t.Errorf("RPC error must not retry, got %d calls", calls.Load())
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"chain_id": "testnet",
				"sync_info": map[string]interface{}{
					"latest_block_height": int64(190000123),
					"latest_block_hash":   "abc",
					"syncing":             false,
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithRetryDelay(time.Millisecond))
	status, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("Status after retries: %v", err)
	}
	if status.ChainID != "testnet" || status.LatestBlockHeight != 190000123 {
		t.Errorf("unexpected status %+v", status)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestClient_MaxRetriesExceeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithMaxRetries(1), WithRetryDelay(time.Millisecond))
	_, err := client.Status(context.Background())
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestViewAccount_HasContract(t *testing.T) {
	deployed := AccountView{CodeHash: "9wVFMRgq1XWsBroGE5iZxNc3Hp36VdopX4PPqaydzdcE"}
	if !deployed.HasContract() {
		t.Error("real code hash should report a contract")
	}

	fresh := AccountView{CodeHash: "11111111111111111111111111111111"}
	if fresh.HasContract() {
		t.Error("all-ones hash means no contract")
	}
}

func TestValidateCryptoHash(t *testing.T) {
	// 32-byte base58 hash
	if err := ValidateCryptoHash("9wVFMRgq1XWsBroGE5iZxNc3Hp36VdopX4PPqaydzdcE"); err != nil {
		t.Errorf("valid hash rejected: %v", err)
	}
	if err := ValidateCryptoHash("abc"); err == nil {
		t.Error("short hash accepted")
	}
	if err := ValidateCryptoHash("0OIl"); err == nil {
		t.Error("non-base58 hash accepted")
	}
}
