package zap

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeInvoice builds a syntactically valid bolt11 string for the given
// human-readable part. The data part is filler; only the hrp and checksum
// matter to the amount decoder.
func encodeInvoice(t *testing.T, hrp string) string {
	t.Helper()

	data := make([]byte, 104) // 5-bit groups, all zero
	invoice, err := bech32.Encode(hrp, data)
	require.NoError(t, err)
	return invoice
}

func TestDecodeInvoiceAmount(t *testing.T) {
	tests := []struct {
		name string
		hrp  string
		want int64
	}{
		{name: "millibitcoin", hrp: "lnbc20m", want: 2_000_000},
		{name: "microbitcoin", hrp: "lnbc2500u", want: 250_000},
		{name: "nanobitcoin", hrp: "lnbc2100n", want: 210},
		{name: "picobitcoin", hrp: "lnbc10p", want: 0}, // 1 msat, floors to 0 sats
		{name: "no multiplier", hrp: "lnbc1", want: 100_000_000},
		{name: "amountless", hrp: "lnbc", want: 0},
		{name: "testnet", hrp: "lntb500u", want: 50_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeInvoiceAmount(encodeInvoice(t, tt.hrp))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeInvoiceAmountUppercase(t *testing.T) {
	// Bech32 allows an all-uppercase form; QR encoders use it.
	invoice := encodeInvoice(t, "lnbc2500u")
	got, err := DecodeInvoiceAmount(invoice)
	require.NoError(t, err)

	upper, err := DecodeInvoiceAmount(stringsToUpper(invoice))
	require.NoError(t, err)
	assert.Equal(t, got, upper)
}

func stringsToUpper(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'a' && c <= 'z' {
			out[i] = c - 'a' + 'A'
		}
	}
	return string(out)
}

func TestDecodeInvoiceAmountSupplyCap(t *testing.T) {
	// The full supply is the largest amount a well-formed invoice can carry.
	got, err := DecodeInvoiceAmount(encodeInvoice(t, "lnbc21000000"))
	require.NoError(t, err)
	assert.Equal(t, int64(2_100_000_000_000_000), got)

	// Anything above it is rejected rather than multiplied into an int64
	// wraparound; these hrp amounts used to come back as garbage, one of
	// them negative.
	over := []string{
		"lnbc21000001",           // one BTC past the supply
		"lnbc92233720369m",       // wraps int64 when scaled to msat
		"lnbc123456789012345678", // no multiplier, wraps outright
	}
	for _, hrp := range over {
		t.Run(hrp, func(t *testing.T) {
			sats, err := DecodeInvoiceAmount(encodeInvoice(t, hrp))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvoice)
			assert.Zero(t, sats)
		})
	}
}

func TestDecodeInvoiceAmountErrors(t *testing.T) {
	tests := []struct {
		name    string
		invoice string
	}{
		{name: "empty", invoice: ""},
		{name: "not bech32", invoice: "definitely not an invoice"},
		{name: "bad checksum", invoice: "lnbc2500u1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq"},
		{name: "wrong hrp", invoice: mustEncode("btc25u")},
		{name: "sub-msat precision", invoice: mustEncode("lnbc1p")},
		{name: "bad multiplier", invoice: mustEncode("lnbc25x")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeInvoiceAmount(tt.invoice)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvoice)
		})
	}
}

func mustEncode(hrp string) string {
	data := make([]byte, 52)
	invoice, err := bech32.Encode(hrp, data)
	if err != nil {
		panic(err)
	}
	return invoice
}
