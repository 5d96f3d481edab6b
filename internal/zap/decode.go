package zap

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nbd-wtf/go-nostr"

	"zapstream/internal/models"
)

// Decode failure categories. Malformed receipts are expected protocol noise;
// callers drop them without surfacing anything to the user.
var (
	ErrMissingTag     = errors.New("missing tag")
	ErrBadRequestJSON = errors.New("bad zap request json")
	ErrInvoice        = errors.New("invoice decode failed")
)

// zapRequest is the signed kind-9734 request embedded in the receipt's
// description tag. Only the fields the engine needs are decoded.
type zapRequest struct {
	PubKey  string `json:"pubkey"`
	Content string `json:"content"`
}

// Decode converts a raw zap receipt event into a validated ZapRecord.
//
// The amount is taken from the embedded bolt11 invoice, never from any
// amount tag on the request, so a payer cannot claim more than they paid.
// Any failure discards the receipt.
func Decode(ev *nostr.Event) (*models.ZapRecord, error) {
	descTag := ev.Tags.GetFirst([]string{"description"})
	if descTag == nil || descTag.Value() == "" {
		return nil, fmt.Errorf("%w: description", ErrMissingTag)
	}

	var req zapRequest
	if err := json.Unmarshal([]byte(descTag.Value()), &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequestJSON, err)
	}
	if !nostr.IsValidPublicKey(req.PubKey) {
		return nil, fmt.Errorf("%w: invalid payer pubkey", ErrBadRequestJSON)
	}

	bolt11Tag := ev.Tags.GetFirst([]string{"bolt11"})
	if bolt11Tag == nil || bolt11Tag.Value() == "" {
		return nil, fmt.Errorf("%w: bolt11", ErrMissingTag)
	}

	amountSats, err := DecodeInvoiceAmount(bolt11Tag.Value())
	if err != nil {
		return nil, err
	}

	return &models.ZapRecord{
		ID:           ev.ID,
		PayerPubkey:  req.PubKey,
		AmountSats:   amountSats,
		Comment:      req.Content,
		TimestampSec: int64(ev.CreatedAt),
		TargetID:     targetID(ev),
	}, nil
}

// targetID extracts the zapped target reference: the a-tag coordinate for
// addressable events, otherwise the e-tag id. Legacy receipts may carry
// neither, which is tolerated.
func targetID(ev *nostr.Event) string {
	if tag := ev.Tags.GetFirst([]string{"a"}); tag != nil && tag.Value() != "" {
		return tag.Value()
	}
	if tag := ev.Tags.GetFirst([]string{"e"}); tag != nil && tag.Value() != "" {
		return tag.Value()
	}
	return ""
}
