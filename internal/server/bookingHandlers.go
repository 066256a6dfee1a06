package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"farmsync/internal/booking"
	"farmsync/internal/model"
)

func (s Server) bookingCreate() http.HandlerFunc {
	type request struct {
		ProviderID string `json:"provider_id"`
		Date       string `json:"date"`
		Slot       string `json:"slot"`
		SlotID     string `json:"slot_id"`
		Note       string `json:"note"`
	}
	type response struct {
		BookingID string `json:"booking_id"`
		Slot      string `json:"slot"`
		Status    string `json:"status"`
		CreatedAt string `json:"created_at"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		req := &request{}
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		slotText := req.Slot
		if slotText == "" && req.Date != "" {
			slotText = "on " + req.Date
		}

		bk := s.Coordinator.CreateBooking(booking.CreateBookingParams{
			ProviderID: req.ProviderID,
			Slot:       slotText,
			SlotID:     req.SlotID,
			Note:       req.Note,
		})

		s.writeJsonResponse(w, response{
			BookingID: bk.ID,
			Slot:      bk.Slot,
			Status:    string(bk.Status),
			CreatedAt: bk.CreatedAt,
		}, http.StatusOK)
	}
}

func (s Server) bookingList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var bookings []model.Booking
		if r.URL.Query().Get("status") == string(model.BookingPending) {
			bookings = s.Coordinator.PendingBookings()
		} else {
			bookings = s.Coordinator.IncomingBookings()
		}
		if bookings == nil {
			bookings = []model.Booking{}
		}
		s.writeJsonResponse(w, bookings, http.StatusOK)
	}
}

func (s Server) bookingAccept() http.HandlerFunc {
	type request struct {
		Slot string `json:"slot"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		req := &request{}
		if err := json.NewDecoder(r.Body).Decode(req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		id := mux.Vars(r)["bookingID"]
		bk, ok := s.Coordinator.AcceptBooking(id, s.slotTextFor(id, req.Slot))
		if !ok && bk.ID == "" {
			http.Error(w, "Booking not found", http.StatusNotFound)
			return
		}
		s.writeJsonResponse(w, bk, http.StatusOK)
	}
}

func (s Server) bookingReject() http.HandlerFunc {
	type request struct {
		Slot string `json:"slot"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		req := &request{}
		if err := json.NewDecoder(r.Body).Decode(req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		id := mux.Vars(r)["bookingID"]
		bk, ok := s.Coordinator.RejectBooking(id, s.slotTextFor(id, req.Slot))
		if !ok && bk.ID == "" {
			http.Error(w, "Booking not found", http.StatusNotFound)
			return
		}
		s.writeJsonResponse(w, bk, http.StatusOK)
	}
}

// slotTextFor resolves the window description used in decision messages.
// Callers may override it, otherwise the booking's own text is used.
func (s Server) slotTextFor(bookingID string, override string) string {
	if override != "" {
		return override
	}
	for _, b := range s.Coordinator.IncomingBookings() {
		if b.ID == bookingID {
			return b.Slot
		}
	}
	return ""
}
