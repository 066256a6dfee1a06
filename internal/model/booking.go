package model

type BookingStatus string

const (
	BookingPending  BookingStatus = "pending"
	BookingAccepted BookingStatus = "accepted"
	BookingRejected BookingStatus = "rejected"
)

// Booking is a farmer's request for a provider's time. The slot field is the
// human-readable window description shown to both sides; SlotID, when set,
// ties the request to a concrete availability Slot.
type Booking struct {
	ID        string        `json:"id"`
	Slot      string        `json:"slot"`
	SlotID    string        `json:"slotId,omitempty"`
	Status    BookingStatus `json:"status"`
	CreatedAt string        `json:"createdAt"`
}

// Decided reports whether the booking has reached a terminal status.
// accepted and rejected are terminal; there is no way back to pending.
func (b Booking) Decided() bool {
	return b.Status == BookingAccepted || b.Status == BookingRejected
}
