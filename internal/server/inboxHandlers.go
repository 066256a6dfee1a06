package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"farmsync/internal/model"
)

func (s Server) notificationList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		notis := s.Coordinator.Notifications()
		if notis == nil {
			notis = []model.ProviderNotification{}
		}
		s.writeJsonResponse(w, notis, http.StatusOK)
	}
}

func (s Server) notificationMarkRead() http.HandlerFunc {
	type response struct {
		Marked int `json:"marked"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJsonResponse(w, response{Marked: s.Coordinator.MarkNotificationsRead()}, http.StatusOK)
	}
}

func (s Server) alertList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var alerts []model.FarmerAlert
		if r.URL.Query().Get("archive") == "true" {
			alerts = s.Coordinator.PastAlerts()
		} else {
			alerts = s.Coordinator.Alerts()
		}
		if alerts == nil {
			alerts = []model.FarmerAlert{}
		}
		s.writeJsonResponse(w, alerts, http.StatusOK)
	}
}

func (s Server) alertDismiss() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.Coordinator.DismissAlert(mux.Vars(r)["signature"]) {
			http.Error(w, "Alert not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
