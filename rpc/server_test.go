package rpc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"moneymarket/crypto"
	"moneymarket/native/overseer"
	"moneymarket/storage"
)

func newTestServer(t *testing.T) (*httptest.Server, crypto.Address) {
	t.Helper()
	owner := crypto.MustNewAddress(crypto.MMPrefix, bytes.Repeat([]byte{0x01}, crypto.AddressLength))
	oracle := crypto.MustNewAddress(crypto.MMPrefix, bytes.Repeat([]byte{0x02}, crypto.AddressLength))
	market := crypto.MustNewAddress(crypto.MMPrefix, bytes.Repeat([]byte{0x03}, crypto.AddressLength))
	liquidation := crypto.MustNewAddress(crypto.MMPrefix, bytes.Repeat([]byte{0x04}, crypto.AddressLength))
	collector := crypto.MustNewAddress(crypto.MMPrefix, bytes.Repeat([]byte{0x05}, crypto.AddressLength))

	engine := overseer.NewEngine()
	engine.SetState(overseer.NewStore(storage.NewMemDB()))
	engine.SetPriceOracle(overseer.NewManualPriceOracle())
	engine.SetDebtLedger(overseer.NewManualDebtLedger())
	engine.SetLiquidationPricer(overseer.NewManualLiquidationPricer(overseer.OneDec()))
	require.NoError(t, engine.InitGenesis(overseer.InitMsg{
		Owner:                    owner,
		OracleContract:           oracle,
		MarketContract:           market,
		LiquidationContract:      liquidation,
		CollectorContract:        collector,
		StableDenom:              "uusd",
		EpochPeriod:              100,
		ThresholdDepositRate:     overseer.MustDec("0.00000003"),
		TargetDepositRate:        overseer.MustDec("0.00000005"),
		BufferDistributionFactor: overseer.MustDec("0.2"),
		AncPurchaseFactor:        overseer.MustDec("0.1"),
		PriceTimeframe:           60,
	}))

	srv := httptest.NewServer(NewServer(engine, nil).Handler())
	t.Cleanup(srv.Close)
	return srv, owner
}

func post(t *testing.T, url string, payload string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(payload))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestExecuteWhitelistAndQuery(t *testing.T) {
	srv, owner := newTestServer(t)
	asset := crypto.MustNewAddress(crypto.MMPrefix, bytes.Repeat([]byte{0x20}, crypto.AddressLength))
	custody := crypto.MustNewAddress(crypto.MMPrefix, bytes.Repeat([]byte{0x30}, crypto.AddressLength))

	payload := `{"caller":"` + owner.String() + `","msg":{"whitelist":{` +
		`"name":"Bonded Luna","symbol":"BLUNA",` +
		`"collateral_token":"` + asset.String() + `",` +
		`"custody_contract":"` + custody.String() + `","max_ltv":"0.6"}}}`
	resp := post(t, srv.URL+"/v1/overseer/execute", payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var receipt struct {
		Index *uint64 `json:"index"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&receipt))
	require.NotNil(t, receipt.Index)
	require.Equal(t, uint64(0), *receipt.Index)

	resp = post(t, srv.URL+"/v1/overseer/query", `{"msg":{"whitelist":{}}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listing struct {
		Elems []struct {
			Symbol string `json:"symbol"`
		} `json:"elems"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	require.Len(t, listing.Elems, 1)
	require.Equal(t, "BLUNA", listing.Elems[0].Symbol)
}

func TestExecuteErrorMapping(t *testing.T) {
	srv, owner := newTestServer(t)
	asset := crypto.MustNewAddress(crypto.MMPrefix, bytes.Repeat([]byte{0x20}, crypto.AddressLength))
	custody := crypto.MustNewAddress(crypto.MMPrefix, bytes.Repeat([]byte{0x30}, crypto.AddressLength))
	stranger := crypto.MustNewAddress(crypto.MMPrefix, bytes.Repeat([]byte{0x42}, crypto.AddressLength))

	whitelist := `"msg":{"whitelist":{"name":"Bonded Luna","symbol":"BLUNA",` +
		`"collateral_token":"` + asset.String() + `",` +
		`"custody_contract":"` + custody.String() + `","max_ltv":"0.6"}}`

	resp := post(t, srv.URL+"/v1/overseer/execute", `{"caller":"`+stranger.String()+`",`+whitelist+`}`)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = post(t, srv.URL+"/v1/overseer/execute", `{"caller":"`+owner.String()+`",`+whitelist+`}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = post(t, srv.URL+"/v1/overseer/execute", `{"caller":"`+owner.String()+`",`+whitelist+`}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	// Empty union.
	resp = post(t, srv.URL+"/v1/overseer/execute", `{"caller":"`+owner.String()+`","msg":{}}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// Missing caller.
	resp = post(t, srv.URL+"/v1/overseer/execute", `{"msg":{}}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExecuteMigrate(t *testing.T) {
	srv, owner := newTestServer(t)
	stranger := crypto.MustNewAddress(crypto.MMPrefix, bytes.Repeat([]byte{0x42}, crypto.AddressLength))

	migrate := `"msg":{"migrate":{"target_deposit_rate":"0.0000002","threshold_deposit_rate":"0.0000001"}}`

	resp := post(t, srv.URL+"/v1/overseer/execute", `{"caller":"`+stranger.String()+`",`+migrate+`}`)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = post(t, srv.URL+"/v1/overseer/execute", `{"caller":"`+owner.String()+`",`+migrate+`}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = post(t, srv.URL+"/v1/overseer/query", `{"msg":{"config":{}}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cfg struct {
		TargetDepositRate string `json:"target_deposit_rate"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cfg))
	require.Equal(t, "0.0000002", cfg.TargetDepositRate)
}

func TestQueryBorrowLimitOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)
	borrower := crypto.MustNewAddress(crypto.MMPrefix, bytes.Repeat([]byte{0x10}, crypto.AddressLength))

	payload := `{"msg":{"borrow_limit":{"borrower":"` + borrower.String() + `"}}}`
	resp := post(t, srv.URL+"/v1/overseer/query", payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var limit struct {
		BorrowLimit string `json:"borrow_limit"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&limit))
	require.Equal(t, "0", limit.BorrowLimit)
}
