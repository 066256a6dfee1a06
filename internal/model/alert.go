package model

// FarmerAlert is an alert entry surfaced on the farmer side. Signature
// identifies the logical event ("accepted_<bookingID>", "rejected_<bookingID>")
// so readers can tell repeated deliveries of the same event apart.
type FarmerAlert struct {
	Type      string `json:"type"`
	Message   string `json:"message,omitempty"`
	Time      string `json:"time"`
	Signature string `json:"signature"`
	Color     string `json:"color,omitempty"`
}
