package service

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ledger-sync/internal/errors"
	"github.com/ledger-sync/internal/models"
	"github.com/ledger-sync/internal/types"
	"github.com/shopspring/decimal"
)

// Field limits, counted in characters
const (
	minSymbolLen        = 2
	maxSymbolLen        = 16
	maxDisplayNameLen   = 32
	maxEmojiLen         = 8
	maxNoteLen          = 140
	maxTxHashLen        = 128
	maxPortfolioNameLen = 64
	minKeyLen           = 6
	maxAPIKeyLen        = 128
	maxAPISecretLen     = 256
)

// validateAssetDraft normalizes the symbol to upper case and drops empty optionals
func validateAssetDraft(d models.AssetDraft) (models.AssetDraft, error) {
	symbol := strings.ToUpper(strings.TrimSpace(d.Symbol))
	if n := utf8.RuneCountInString(symbol); n < minSymbolLen || n > maxSymbolLen {
		return d, errors.NewValidationError("symbol", fmt.Sprintf("Symbol must be %d-%d characters", minSymbolLen, maxSymbolLen))
	}

	out := models.AssetDraft{Symbol: symbol}
	if d.DisplayName != nil {
		name := strings.TrimSpace(*d.DisplayName)
		if utf8.RuneCountInString(name) > maxDisplayNameLen {
			return d, errors.NewValidationError("display_name", fmt.Sprintf("Display name must be at most %d characters", maxDisplayNameLen))
		}
		if name != "" {
			out.DisplayName = &name
		}
	}

	emoji, err := validateEmoji(d.Emoji)
	if err != nil {
		return d, err
	}
	out.Emoji = emoji
	return out, nil
}

func validateEmoji(emoji *string) (*string, error) {
	if emoji == nil {
		return nil, nil
	}
	e := strings.TrimSpace(*emoji)
	if utf8.RuneCountInString(e) > maxEmojiLen {
		return nil, errors.NewValidationError("emoji", fmt.Sprintf("Emoji must be at most %d characters", maxEmojiLen))
	}
	if e == "" {
		return nil, nil
	}
	return &e, nil
}

// validateTransactionDraft parses the user's text into a wire body.
// Transfers never carry a price; whatever was typed is dropped.
func validateTransactionDraft(d models.TransactionDraft, now time.Time) (models.TransactionBody, error) {
	var body models.TransactionBody

	if strings.TrimSpace(d.AssetID) == "" {
		return body, errors.NewValidationError("asset_id", "Asset is required")
	}
	if !d.Type.Valid() {
		return body, errors.NewValidationError("type", "Type must be buy, sell, transfer_in or transfer_out")
	}

	qty, err := decimal.NewFromString(strings.TrimSpace(d.Quantity))
	if err != nil {
		return body, errors.NewValidationError("quantity", "Quantity must be a number")
	}
	if !qty.IsPositive() {
		return body, errors.NewValidationError("quantity", "Quantity must be > 0")
	}

	body = models.TransactionBody{
		AssetID:  strings.TrimSpace(d.AssetID),
		Type:     d.Type,
		Quantity: qty,
		At:       d.At.UTC(),
	}
	if d.At.IsZero() {
		body.At = now.UTC()
	}

	if d.Type.Priced() {
		raw := strings.TrimSpace(d.PriceUSD)
		if raw == "" {
			return body, errors.NewValidationError("price_usd", "Price must be > 0")
		}
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return body, errors.NewValidationError("price_usd", "Price must be a number")
		}
		if !price.IsPositive() {
			return body, errors.NewValidationError("price_usd", "Price must be > 0")
		}
		body.PriceUSD = &price
	}

	if raw := strings.TrimSpace(d.FeeUSD); raw != "" {
		fee, err := decimal.NewFromString(raw)
		if err != nil {
			return body, errors.NewValidationError("fee_usd", "Fee must be a number")
		}
		if fee.IsNegative() {
			return body, errors.NewValidationError("fee_usd", "Fee must be >= 0")
		}
		body.FeeUSD = &fee
	}

	if note := strings.TrimSpace(d.Note); note != "" {
		if utf8.RuneCountInString(note) > maxNoteLen {
			return body, errors.NewValidationError("note", fmt.Sprintf("Note must be at most %d characters", maxNoteLen))
		}
		body.Note = &note
	}
	if hash := strings.TrimSpace(d.TxHash); hash != "" {
		if utf8.RuneCountInString(hash) > maxTxHashLen {
			return body, errors.NewValidationError("tx_hash", fmt.Sprintf("Transaction hash must be at most %d characters", maxTxHashLen))
		}
		body.TxHash = &hash
	}

	return body, nil
}

func validatePortfolioName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < 1 || n > maxPortfolioNameLen {
		return "", errors.NewValidationError("name", fmt.Sprintf("Name must be 1-%d characters", maxPortfolioNameLen))
	}
	return name, nil
}

func validateExternalKeys(k models.ExternalKeys) (models.ExternalKeys, error) {
	key := strings.TrimSpace(k.APIKey)
	secret := strings.TrimSpace(k.APISecret)
	if n := utf8.RuneCountInString(key); n < minKeyLen || n > maxAPIKeyLen {
		return k, errors.NewValidationError("api_key", fmt.Sprintf("API key must be %d-%d characters", minKeyLen, maxAPIKeyLen))
	}
	if n := utf8.RuneCountInString(secret); n < minKeyLen || n > maxAPISecretLen {
		return k, errors.NewValidationError("api_secret", fmt.Sprintf("API secret must be %d-%d characters", minKeyLen, maxAPISecretLen))
	}
	return models.ExternalKeys{APIKey: key, APISecret: secret}, nil
}

func validateVisibility(v types.Visibility) error {
	if !v.Valid() {
		return errors.NewValidationError("visibility", "Visibility must be public or private")
	}
	return nil
}
