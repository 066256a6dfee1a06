package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"farmsync/internal/model"
)

func (s Server) slotDefine() http.HandlerFunc {
	type request struct {
		StartDate string `json:"start_date"`
		StartTime string `json:"start_time"`
		EndDate   string `json:"end_date"`
		EndTime   string `json:"end_time"`
	}
	type response struct {
		Created int          `json:"created"`
		Slots   []model.Slot `json:"slots"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		req := &request{}
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		created := s.Coordinator.DefineAvailability(req.StartDate, req.StartTime, req.EndDate, req.EndTime)
		if created == nil {
			http.Error(w, "Invalid availability range", http.StatusBadRequest)
			return
		}
		s.writeJsonResponse(w, response{Created: len(created), Slots: created}, http.StatusOK)
	}
}

func (s Server) slotList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slots := s.Coordinator.Slots()
		if slots == nil {
			slots = []model.Slot{}
		}
		s.writeJsonResponse(w, slots, http.StatusOK)
	}
}

func (s Server) slotDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.Coordinator.DeleteSlot(mux.Vars(r)["slotID"]) {
			http.Error(w, "Slot not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s Server) slotBook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slot, ok := s.Coordinator.BookSlot(mux.Vars(r)["slotID"])
		if !ok {
			http.Error(w, "Slot not found", http.StatusNotFound)
			return
		}
		s.writeJsonResponse(w, slot, http.StatusOK)
	}
}
