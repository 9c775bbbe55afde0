package mempoolspace

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/polywallet/polywallet/pkg/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddr = "bc1qatd6clekcdlrjds3dzm64m3ukf9z2vfdz3hajy"

func TestGetFeeRate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/fees/recommended", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"fastestFee":20,"halfHourFee":10.4,"hourFee":8,"economyFee":5,"minimumFee":1}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	svc, err := NewService(Opts{
		BaseURL:        server.URL,
		Network:        network.Bitcoin,
		RequestTimeout: time.Second,
	})
	require.NoError(t, err)

	rate, err := svc.GetFeeRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(11), uint64(rate))
}

func TestDelegatesToEsplora(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/blocks/tip/height", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "50")
	})
	mux.HandleFunc(
		fmt.Sprintf("/api/address/%s/utxo", testAddr),
		func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[{"txid":"aa01","vout":0,"value":1000,"status":{"confirmed":true,"block_height":41}}]`)
		},
	)
	server := httptest.NewServer(mux)
	defer server.Close()

	svc, err := NewService(Opts{
		BaseURL:        server.URL,
		Network:        network.Bitcoin,
		RequestTimeout: time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "mempoolspace", svc.Name())

	utxos, err := svc.GetUtxos(context.Background(), testAddr)
	require.NoError(t, err)
	require.Len(t, utxos, 1)
	assert.Equal(t, int64(10), utxos[0].Confirmations)
}
