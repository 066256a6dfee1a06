package model

// Slot is one calendar day of declared provider availability.
// Date is YYYY-MM-DD, Start/End are HH:MM.
type Slot struct {
	ID       string `json:"id"`
	Date     string `json:"date"`
	Start    string `json:"start"`
	End      string `json:"end"`
	IsBooked bool   `json:"isBooked"`
}
