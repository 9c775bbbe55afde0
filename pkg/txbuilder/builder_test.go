package txbuilder

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/polywallet/polywallet/pkg/address"
	"github.com/polywallet/polywallet/pkg/explorer"
	"github.com/polywallet/polywallet/pkg/network"
	"github.com/polywallet/polywallet/pkg/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSeedHex = "000102030405060708090a0b0c0d0e0f"

func testMaster(t *testing.T, net *network.Profile) *wallet.ExtendedKey {
	t.Helper()
	seed, err := hex.DecodeString(testSeedHex)
	require.NoError(t, err)
	master, err := wallet.NewMasterKey(seed, net)
	require.NoError(t, err)
	return master
}

// testRing derives count addresses of the given script type and returns the
// ring together with the rendered addresses.
func testRing(
	t *testing.T, net *network.Profile, scriptType address.ScriptType, count int,
) (*wallet.KeyRing, []*address.Address) {
	t.Helper()
	master := testMaster(t, net)
	ring := wallet.NewKeyRing()

	addrs := make([]*address.Address, count)
	for i := 0; i < count; i++ {
		path := wallet.BIP44(net.HDCoinType, 0, 0, uint32(i))
		if scriptType == address.P2WPKH {
			path = wallet.BIP84(net.HDCoinType, 0, 0, uint32(i))
		}
		addr, err := ring.Add(master, path, scriptType)
		require.NoError(t, err)
		addrs[i] = addr
	}
	return ring, addrs
}

func testTxID(b byte) string {
	return strings.Repeat(hex.EncodeToString([]byte{b}), 32)
}

func testUtxo(addr *address.Address, b byte, amount uint64, confirmations int64) explorer.Utxo {
	return explorer.Utxo{
		TxID:          testTxID(b),
		Index:         0,
		Address:       addr.String(),
		Amount:        amount,
		Confirmations: confirmations,
		ScriptType:    addr.Type(),
	}
}

func TestBuildTwoPassFee(t *testing.T) {
	_, addrs := testRing(t, network.Bitcoin, address.P2PKH, 3)

	draft, err := Build(BuildOpts{
		Network: network.Bitcoin,
		Utxos: []explorer.Utxo{
			testUtxo(addrs[0], 0x01, 50000, 10),
			testUtxo(addrs[0], 0x02, 30000, 5),
		},
		Destinations:  []Destination{{Address: addrs[1], Amount: 70000}},
		FeeRate:       10,
		ChangeAddress: addrs[2],
	})
	require.NoError(t, err)

	// Two legacy inputs, two legacy outputs: 374 vbytes at 10 sat/vB.
	assert.Len(t, draft.Inputs(), 2)
	assert.Equal(t, uint64(3740), draft.Fee())
	assert.Equal(t, uint64(6260), draft.ChangeAmount())

	var totalIn uint64
	for _, input := range draft.Inputs() {
		totalIn += input.Amount
	}
	assert.Equal(t, totalIn, uint64(70000)+draft.Fee()+draft.ChangeAmount())
}

func TestBuildSelectionOrder(t *testing.T) {
	_, addrs := testRing(t, network.Bitcoin, address.P2PKH, 3)

	draft, err := Build(BuildOpts{
		Network: network.Bitcoin,
		Utxos: []explorer.Utxo{
			testUtxo(addrs[0], 0x01, 200000, 1),
			testUtxo(addrs[0], 0x02, 40000, 50),
			testUtxo(addrs[0], 0x03, 90000, 50),
		},
		Destinations:  []Destination{{Address: addrs[1], Amount: 100000}},
		FeeRate:       2,
		ChangeAddress: addrs[2],
	})
	require.NoError(t, err)

	// Highest confirmations first, highest amount breaking the tie.
	inputs := draft.Inputs()
	require.Len(t, inputs, 2)
	assert.Equal(t, testTxID(0x03), inputs[0].TxID)
	assert.Equal(t, testTxID(0x02), inputs[1].TxID)
}

func TestBuildInsufficientFunds(t *testing.T) {
	_, addrs := testRing(t, network.Bitcoin, address.P2PKH, 3)

	_, err := Build(BuildOpts{
		Network: network.Bitcoin,
		Utxos: []explorer.Utxo{
			testUtxo(addrs[0], 0x01, 50000, 10),
		},
		Destinations:  []Destination{{Address: addrs[1], Amount: 70000}},
		FeeRate:       10,
		ChangeAddress: addrs[2],
	})
	require.Error(t, err)

	var fundsErr *InsufficientFundsError
	require.ErrorAs(t, err, &fundsErr)
	assert.Equal(t, uint64(50000), fundsErr.Have)
	assert.Greater(t, fundsErr.Shortfall(), uint64(20000))
}

func TestBuildDustChangeFoldedIntoFee(t *testing.T) {
	_, addrs := testRing(t, network.Bitcoin, address.P2PKH, 3)

	// One legacy input, two legacy outputs: 226 vbytes, fee 2260. The
	// remainder of 240 is below the 546 dust threshold.
	draft, err := Build(BuildOpts{
		Network: network.Bitcoin,
		Utxos: []explorer.Utxo{
			testUtxo(addrs[0], 0x01, 72500, 10),
		},
		Destinations:  []Destination{{Address: addrs[1], Amount: 70000}},
		FeeRate:       10,
		ChangeAddress: addrs[2],
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(0), draft.ChangeAmount())
	assert.Equal(t, uint64(2500), draft.Fee())
}

func TestBuildSkipsUnspendableUtxos(t *testing.T) {
	_, addrs := testRing(t, network.Bitcoin, address.P2PKH, 3)

	unspendable := testUtxo(addrs[0], 0x01, 500000, 100)
	unspendable.ScriptType = address.P2WSH

	_, err := Build(BuildOpts{
		Network:       network.Bitcoin,
		Utxos:         []explorer.Utxo{unspendable},
		Destinations:  []Destination{{Address: addrs[1], Amount: 70000}},
		FeeRate:       10,
		ChangeAddress: addrs[2],
	})
	var fundsErr *InsufficientFundsError
	require.ErrorAs(t, err, &fundsErr)
}

func TestBuildValidation(t *testing.T) {
	_, addrs := testRing(t, network.Bitcoin, address.P2PKH, 2)
	_, dogeAddrs := testRing(t, network.Dogecoin, address.P2PKH, 2)
	utxos := []explorer.Utxo{testUtxo(addrs[0], 0x01, 100000, 10)}

	_, err := Build(BuildOpts{
		Network: network.Bitcoin, Utxos: utxos, FeeRate: 10,
		ChangeAddress: addrs[0],
	})
	assert.ErrorIs(t, err, ErrNoDestinations)

	_, err = Build(BuildOpts{
		Network: network.Bitcoin, Utxos: utxos,
		Destinations:  []Destination{{Address: addrs[1], Amount: 10000}},
		ChangeAddress: addrs[0],
	})
	assert.ErrorIs(t, err, ErrNullFeeRate)

	_, err = Build(BuildOpts{
		Network: network.Bitcoin, Utxos: utxos, FeeRate: 10,
		Destinations: []Destination{{Address: addrs[1], Amount: 10000}},
	})
	assert.ErrorIs(t, err, ErrNullChangeAddress)

	_, err = Build(BuildOpts{
		Network: network.Bitcoin, Utxos: utxos, FeeRate: 10,
		Destinations:  []Destination{{Address: dogeAddrs[1], Amount: 10000}},
		ChangeAddress: addrs[0],
	})
	assert.ErrorIs(t, err, ErrNetworkMismatch)

	_, err = Build(BuildOpts{
		Network: network.Bitcoin, Utxos: utxos, FeeRate: 10,
		Destinations:  []Destination{{Address: addrs[1], Amount: 100}},
		ChangeAddress: addrs[0],
	})
	assert.ErrorIs(t, err, ErrDustDestination)

	_, err = Build(BuildOpts{
		Network: network.Dogecoin,
		Utxos:   []explorer.Utxo{testUtxo(dogeAddrs[0], 0x01, 100000000, 10)},
		FeeRate: 10,
		Destinations: []Destination{
			{Address: dogeAddrs[1], Amount: 50000000},
		},
		ChangeAddress: dogeAddrs[0],
		EnableRBF:     true,
	})
	assert.ErrorIs(t, err, ErrRBFNotSupported)
}
