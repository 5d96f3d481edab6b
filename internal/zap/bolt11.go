package zap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// msat denominators for the bolt11 amount multipliers. Amounts in the
// human-readable part are expressed in bitcoin; 1 BTC = 1e11 msat.
const (
	msatPerBTC = 100_000_000_000
	msatPerSat = 1_000

	// maxMsat caps invoice amounts at the total bitcoin supply. Anything
	// above it is a malformed or hostile hrp, and unchecked it would also
	// overflow the int64 multiplication below.
	maxMsat = 21_000_000 * msatPerBTC
)

// DecodeInvoiceAmount parses a bolt11 payment request and returns its amount
// in satoshis. The amount comes from the invoice's human-readable part only;
// the checksum of the full invoice is verified first. An invoice with no
// amount part yields 0.
func DecodeInvoiceAmount(invoice string) (int64, error) {
	invoice = strings.TrimSpace(invoice)
	if invoice == "" {
		return 0, fmt.Errorf("%w: empty invoice", ErrInvoice)
	}

	// QR encoders emit the all-uppercase bech32 form; normalize before
	// decoding. DecodeNoLimit because invoices exceed the 90-char limit.
	hrp, _, err := bech32.DecodeNoLimit(strings.ToLower(invoice))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvoice, err)
	}

	if !strings.HasPrefix(hrp, "ln") {
		return 0, fmt.Errorf("%w: hrp %q does not start with ln", ErrInvoice, hrp)
	}

	// Skip the currency prefix (bc, tb, bcrt, ...): everything up to the
	// first digit. The remainder, if any, is the amount.
	rest := hrp[2:]
	i := strings.IndexFunc(rest, func(r rune) bool { return r >= '0' && r <= '9' })
	if i < 0 {
		// Amountless invoice.
		return 0, nil
	}
	amount := rest[i:]

	multiplier := amount[len(amount)-1]
	digits := amount
	var msatDenominator int64 = 1 // units of BTC per digit-value, expressed as a divisor below
	switch multiplier {
	case 'm':
		digits = amount[:len(amount)-1]
		msatDenominator = 1_000
	case 'u':
		digits = amount[:len(amount)-1]
		msatDenominator = 1_000_000
	case 'n':
		digits = amount[:len(amount)-1]
		msatDenominator = 1_000_000_000
	case 'p':
		digits = amount[:len(amount)-1]
		msatDenominator = 1_000_000_000_000
	default:
		if multiplier < '0' || multiplier > '9' {
			return 0, fmt.Errorf("%w: unknown amount multiplier %q", ErrInvoice, multiplier)
		}
	}

	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad amount %q", ErrInvoice, amount)
	}
	if value < 0 {
		return 0, fmt.Errorf("%w: negative amount", ErrInvoice)
	}

	// value/msatDenominator BTC → msat. Pico-bitcoin needs the divide-first
	// form to stay integral (1 pBTC = 0.1 msat).
	var msat int64
	if msatDenominator == 1_000_000_000_000 {
		if value%10 != 0 {
			return 0, fmt.Errorf("%w: sub-millisatoshi amount %q", ErrInvoice, amount)
		}
		msat = value / 10
	} else {
		factor := msatPerBTC / msatDenominator
		if value > maxMsat/factor {
			return 0, fmt.Errorf("%w: amount %q exceeds total supply", ErrInvoice, amount)
		}
		msat = value * factor
	}
	if msat > maxMsat {
		return 0, fmt.Errorf("%w: amount %q exceeds total supply", ErrInvoice, amount)
	}

	return msat / msatPerSat, nil
}
