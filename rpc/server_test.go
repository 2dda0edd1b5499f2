package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"liqmine/core/state"
	"liqmine/native/common"
	"liqmine/native/liquidity"
	"liqmine/rpc/middleware"
	"liqmine/storage"
)

const (
	testSourceHex   = "0x00000000000000000000000000000000000000aa"
	testProviderHex = "0x0000000000000000000000000000000000000001"
)

func newTestServer(t *testing.T, auth *middleware.Authenticator) *httptest.Server {
	t.Helper()
	source, err := parseAddress(testSourceHex)
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	engine := liquidity.NewEngine()
	engine.SetState(state.NewManager(storage.NewMemDB()))
	engine.SetAuthorizer(common.StaticSource(source))

	hub := NewHub()
	engine.SetEmitter(hub)
	server := NewServer(engine, source, nil, hub)
	ts := httptest.NewServer(server.Router(auth, nil, nil))
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, payload any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, buf.Bytes()
}

func TestNotificationFlow(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, body := postJSON(t, ts.URL+"/v1/notify/before-add", notifyLiquidityRequest{
		Provider:  testProviderHex,
		Pool:      "pool-1",
		Amount:    "500",
		Timestamp: 1,
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("before-add: %d %s", resp.StatusCode, body)
	}

	resp, body = postJSON(t, ts.URL+"/v1/notify/after-add", notifyLiquidityRequest{
		Provider:  testProviderHex,
		Pool:      "pool-1",
		Timestamp: 1 + 86_400,
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("after-add: %d %s", resp.StatusCode, body)
	}
	var reward rewardResponse
	if err := json.Unmarshal(body, &reward); err != nil {
		t.Fatalf("decode reward: %v", err)
	}
	if reward.Reward == "0" || reward.Reward == "" {
		t.Fatalf("expected non-zero reward, got %q", reward.Reward)
	}

	getResp, err := http.Get(ts.URL + "/v1/pools/pool-1/rewards")
	if err != nil {
		t.Fatalf("get pool: %v", err)
	}
	defer getResp.Body.Close()
	var pool poolResponse
	if err := json.NewDecoder(getResp.Body).Decode(&pool); err != nil {
		t.Fatalf("decode pool: %v", err)
	}
	if pool.Rewards != reward.Reward {
		t.Fatalf("accumulator %s != returned reward %s", pool.Rewards, reward.Reward)
	}

	provResp, err := http.Get(ts.URL + "/v1/providers/" + testProviderHex)
	if err != nil {
		t.Fatalf("get provider: %v", err)
	}
	defer provResp.Body.Close()
	var prov providerResponse
	if err := json.NewDecoder(provResp.Body).Decode(&prov); err != nil {
		t.Fatalf("decode provider: %v", err)
	}
	if prov.TotalLiquidity != "500" || prov.ConsecutiveDays != 1 {
		t.Fatalf("unexpected provider state: %+v", prov)
	}
}

func TestRemovalValidationSurfaced(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, body := postJSON(t, ts.URL+"/v1/notify/before-remove", notifyLiquidityRequest{
		Provider:  testProviderHex,
		Pool:      "pool-1",
		Amount:    "10",
		Timestamp: 5,
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for over-removal, got %d %s", resp.StatusCode, body)
	}
	var fail errorResponse
	if err := json.Unmarshal(body, &fail); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if fail.Error == "" {
		t.Fatal("expected error message in response")
	}
}

func TestProtectedRoutesRequireCredential(t *testing.T) {
	auth := middleware.NewAuthenticator(middleware.AuthConfig{Mode: "token", Token: "sekrit"}, nil)
	ts := newTestServer(t, auth)

	resp, _ := postJSON(t, ts.URL+"/v1/lock", lockRequest{
		Provider:  testProviderHex,
		Duration:  86_400,
		Timestamp: 1,
	}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credential, got %d", resp.StatusCode)
	}

	resp, body := postJSON(t, ts.URL+"/v1/lock", lockRequest{
		Provider:  testProviderHex,
		Duration:  86_400,
		Timestamp: 1,
	}, map[string]string{"Authorization": "Bearer sekrit"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with credential, got %d %s", resp.StatusCode, body)
	}

	// Reads stay open to observers.
	getResp, err := http.Get(fmt.Sprintf("%s/v1/providers/%s", ts.URL, testProviderHex))
	if err != nil {
		t.Fatalf("get provider: %v", err)
	}
	getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("read accessor gated: %d", getResp.StatusCode)
	}
}

func TestHubDropsSlowSubscribers(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe()
	defer cancel()

	for i := 0; i < subscriberDepth+10; i++ {
		hub.Emit(testEvent{})
	}
	// The buffer holds at most subscriberDepth events; the overflow was
	// dropped rather than blocking the emitter.
	if len(ch) != subscriberDepth {
		t.Fatalf("expected full buffer of %d, got %d", subscriberDepth, len(ch))
	}
}

type testEvent struct{}

func (testEvent) EventType() string { return "test.event" }
