package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/wrapnzap"
	"github.com/xraph/wrapnzap/api"
	"github.com/xraph/wrapnzap/ledger"
	"github.com/xraph/wrapnzap/store/memory"
	"github.com/xraph/wrapnzap/wrapper/wrappertest"
)

var (
	zapperAddr = common.HexToAddress("0xCf7Ed3AccA5a467e9e704C703E8D87F634fB0Fc9")
	zappee     = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	wethAddr   = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	payer      = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
)

type fixture struct {
	srv    *httptest.Server
	ledger *memory.Store
	mock   *wrappertest.Mock
}

// newHandler builds a Handler backed by a memory ledger.
func newHandler(t *testing.T, opts ...api.Option) (*api.Handler, *memory.Store, *wrappertest.Mock) {
	t.Helper()

	l := memory.New()
	w := wrappertest.New(wethAddr)
	z, err := wrapnzap.New(wrapnzap.Config{
		Address:   zapperAddr,
		Recipient: zappee,
		Wrapper:   wethAddr,
	}, wrapnzap.WithLedger(l), wrapnzap.WithWrapper(w))
	if err != nil {
		t.Fatal(err)
	}
	return api.NewHandler(z, l, opts...), l, w
}

// testServer serves a memory-backed Handler over HTTP.
func testServer(t *testing.T, opts ...api.Option) *fixture {
	t.Helper()

	h, l, w := newHandler(t, opts...)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, ledger: l, mock: w}
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("expected %d, got %d: %s", want, resp.StatusCode, body)
	}
}

func (f *fixture) fund(t *testing.T, addr common.Address, amount int64) {
	t.Helper()
	if err := ledger.Fund(context.Background(), f.ledger, addr, big.NewInt(amount)); err != nil {
		t.Fatal(err)
	}
}

// --- Config ---

func TestGetConfig(t *testing.T) {
	f := testServer(t)

	resp := doJSON(t, "GET", f.srv.URL+"/config", nil)
	expectStatus(t, resp, http.StatusOK)

	var body map[string]string
	decodeBody(t, resp, &body)
	if body["recipient"] != zappee.Hex() {
		t.Fatalf("expected recipient %s, got %s", zappee.Hex(), body["recipient"])
	}
	if body["wrapper"] != wethAddr.Hex() {
		t.Fatalf("expected wrapper %s, got %s", wethAddr.Hex(), body["wrapper"])
	}
	if body["address"] != zapperAddr.Hex() {
		t.Fatalf("expected address %s, got %s", zapperAddr.Hex(), body["address"])
	}
	if body["token"] != "WETH" {
		t.Fatalf("expected token WETH, got %s", body["token"])
	}
}

// --- Pay ---

func TestPayForwards(t *testing.T) {
	f := testServer(t)
	f.fund(t, payer, 1000)

	resp := doJSON(t, "POST", f.srv.URL+"/pay", map[string]string{
		"from":   payer.Hex(),
		"amount": "200",
	})
	expectStatus(t, resp, http.StatusCreated)

	var receipt map[string]any
	decodeBody(t, resp, &receipt)
	if receipt["amount"] != "200" || receipt["forwarded"] != true {
		t.Fatalf("unexpected receipt %v", receipt)
	}
	if receipt["trigger"] != "receive" {
		t.Fatalf("expected receive trigger, got %v", receipt["trigger"])
	}

	resp = doJSON(t, "GET", f.srv.URL+"/balances/"+zappee.Hex(), nil)
	expectStatus(t, resp, http.StatusOK)
	var acct map[string]string
	decodeBody(t, resp, &acct)
	if acct["token"] != "200" {
		t.Fatalf("expected zappee token 200, got %v", acct)
	}

	resp = doJSON(t, "GET", f.srv.URL+"/balance", nil)
	expectStatus(t, resp, http.StatusOK)
	var bal map[string]string
	decodeBody(t, resp, &bal)
	if bal["native"] != "0" {
		t.Fatalf("expected zapper balance 0, got %v", bal)
	}
}

func TestPayTransferFailed(t *testing.T) {
	f := testServer(t)
	f.fund(t, payer, 1000)
	f.mock.TransferReturns(false)

	resp := doJSON(t, "POST", f.srv.URL+"/pay", map[string]string{
		"from":   payer.Hex(),
		"amount": "200",
	})
	expectStatus(t, resp, http.StatusUnprocessableEntity)

	var body map[string]string
	decodeBody(t, resp, &body)
	if body["error"] != "wrapnzap: transfer failed" {
		t.Fatalf("unexpected error %q", body["error"])
	}
}

func TestPayValidation(t *testing.T) {
	f := testServer(t)

	cases := []map[string]string{
		{"from": "nope", "amount": "1"},
		{"from": payer.Hex(), "amount": "1.5"},
		{"from": payer.Hex(), "amount": "-3"},
		{"from": "0x0000000000000000000000000000000000000000", "amount": "1"},
	}
	for _, body := range cases {
		resp := doJSON(t, "POST", f.srv.URL+"/pay", body)
		expectStatus(t, resp, http.StatusBadRequest)
		resp.Body.Close()
	}
}

func TestPayRejectsZapperAndWrapperAsPayer(t *testing.T) {
	f := testServer(t)
	f.fund(t, zapperAddr, 50)
	f.fund(t, wethAddr, 50)

	for _, from := range []string{zapperAddr.Hex(), wethAddr.Hex()} {
		resp := doJSON(t, "POST", f.srv.URL+"/pay", map[string]string{
			"from":   from,
			"amount": "50",
		})
		expectStatus(t, resp, http.StatusBadRequest)
		resp.Body.Close()
	}
	if f.mock.DepositCalls() != 0 {
		t.Fatalf("expected no deposit calls, got %d", f.mock.DepositCalls())
	}
}

func TestPayInsufficientFunds(t *testing.T) {
	f := testServer(t)

	resp := doJSON(t, "POST", f.srv.URL+"/pay", map[string]string{
		"from":   payer.Hex(),
		"amount": "5",
	})
	expectStatus(t, resp, http.StatusPaymentRequired)
	resp.Body.Close()
}

func TestPayZeroIsAccepted(t *testing.T) {
	f := testServer(t)

	resp := doJSON(t, "POST", f.srv.URL+"/pay", map[string]string{
		"from":   payer.Hex(),
		"amount": "0",
	})
	expectStatus(t, resp, http.StatusOK)

	var receipt map[string]any
	decodeBody(t, resp, &receipt)
	if receipt["forwarded"] != false {
		t.Fatalf("expected no-op receipt, got %v", receipt)
	}
	if f.mock.DepositCalls() != 0 {
		t.Fatal("zero payment must not reach the wrapper")
	}
}

// --- Poke ---

func TestPokeNoBalance(t *testing.T) {
	f := testServer(t)

	resp := doJSON(t, "POST", f.srv.URL+"/poke", nil)
	expectStatus(t, resp, http.StatusConflict)

	var body map[string]string
	decodeBody(t, resp, &body)
	if body["error"] != "wrapnzap: no balance" {
		t.Fatalf("unexpected error %q", body["error"])
	}
}

func TestPokeFlushesForcedBalance(t *testing.T) {
	f := testServer(t)
	f.fund(t, zapperAddr, 500)

	resp := doJSON(t, "POST", f.srv.URL+"/poke", nil)
	expectStatus(t, resp, http.StatusCreated)

	var receipt map[string]any
	decodeBody(t, resp, &receipt)
	if receipt["amount"] != "500" || receipt["trigger"] != "poke" {
		t.Fatalf("unexpected receipt %v", receipt)
	}
}

func TestPokeRateLimited(t *testing.T) {
	f := testServer(t, api.WithPokeRateLimit(1))

	resp := doJSON(t, "POST", f.srv.URL+"/poke", nil)
	expectStatus(t, resp, http.StatusConflict)
	resp.Body.Close()

	resp = doJSON(t, "POST", f.srv.URL+"/poke", nil)
	expectStatus(t, resp, http.StatusTooManyRequests)
	resp.Body.Close()
}

// --- Fund ---

func TestFundDisabledByDefault(t *testing.T) {
	f := testServer(t)

	resp := doJSON(t, "POST", f.srv.URL+"/fund", map[string]string{
		"address": payer.Hex(),
		"amount":  "10",
	})
	if resp.StatusCode != http.StatusNotFound && resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected fund route to be absent, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestFundThenPoke(t *testing.T) {
	f := testServer(t, api.WithFaucet(true))

	resp := doJSON(t, "POST", f.srv.URL+"/fund", map[string]string{
		"address": zapperAddr.Hex(),
		"amount":  "42",
	})
	expectStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	resp = doJSON(t, "POST", f.srv.URL+"/poke", nil)
	expectStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = doJSON(t, "GET", f.srv.URL+"/balances/"+zappee.Hex(), nil)
	expectStatus(t, resp, http.StatusOK)
	var acct map[string]string
	decodeBody(t, resp, &acct)
	if acct["token"] != "42" {
		t.Fatalf("expected zappee token 42, got %v", acct)
	}
}

func TestBalancesRejectsBadAddress(t *testing.T) {
	f := testServer(t)

	resp := doJSON(t, "GET", f.srv.URL+"/balances/xyz", nil)
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()
}

func TestPayRejectsOversizedBody(t *testing.T) {
	h, _, mock := newHandler(t)

	body := `{"from":"` + strings.Repeat("a", 2<<20) + `","amount":"1"}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/pay", strings.NewReader(body)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if mock.DepositCalls() != 0 {
		t.Fatal("oversized body must not reach the wrapper")
	}
}

// --- Access log ---

func TestAccessLogRecordsRoute(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h, _, _ := newHandler(t, api.WithLogger(logger))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/poke", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line["route"] != "POST /poke" {
		t.Fatalf("expected route POST /poke, got %v", line["route"])
	}
	if line["level"] != "WARN" {
		t.Fatalf("expected WARN for a 409, got %v", line["level"])
	}
	if line["status"] != float64(http.StatusConflict) {
		t.Fatalf("expected status 409, got %v", line["status"])
	}
}
