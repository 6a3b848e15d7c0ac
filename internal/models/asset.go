package models

// Asset represents a tracked instrument inside a portfolio
type Asset struct {
	ID          string  `json:"id"`
	Symbol      string  `json:"symbol"`
	DisplayName *string `json:"display_name"`
	Emoji       *string `json:"emoji"`
}

// Label returns the display name, falling back to the symbol
func (a *Asset) Label() string {
	if a.DisplayName != nil && *a.DisplayName != "" {
		return *a.DisplayName
	}
	return a.Symbol
}

// AssetDraft is the body for creating an asset
type AssetDraft struct {
	Symbol      string  `json:"symbol"`
	DisplayName *string `json:"display_name,omitempty"`
	Emoji       *string `json:"emoji,omitempty"`
}
