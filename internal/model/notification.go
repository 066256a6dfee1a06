package model

// ProviderNotification is an inbox entry surfaced on the provider side.
type ProviderNotification struct {
	ID       string `json:"id"`
	Message  string `json:"message"`
	Time     string `json:"time"`
	Link     string `json:"link,omitempty"`
	Type     string `json:"type,omitempty"`
	IsUnread bool   `json:"isUnread"`
}
