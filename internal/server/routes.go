package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

const (
	roleFarmer   = "farmer"
	roleProvider = "provider"
)

func (s Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.maxBytesMw, s.loggingMw)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/session", s.sessionCreate()).Methods(http.MethodPost)

	bookingAPI := api.PathPrefix("/bookings").Subrouter()
	bookingAPI.Use(s.authMw)
	bookingAPI.HandleFunc("", s.requireRole(roleFarmer, s.bookingCreate())).Methods(http.MethodPost)
	bookingAPI.HandleFunc("", s.requireRole(roleProvider, s.bookingList())).Methods(http.MethodGet)
	bookingAPI.HandleFunc("/{bookingID}/accept", s.requireRole(roleProvider, s.bookingAccept())).Methods(http.MethodPost)
	bookingAPI.HandleFunc("/{bookingID}/reject", s.requireRole(roleProvider, s.bookingReject())).Methods(http.MethodPost)
	bookingAPI.PathPrefix("").Handler(http.NotFoundHandler())

	slotAPI := api.PathPrefix("/slots").Subrouter()
	slotAPI.Use(s.authMw)
	slotAPI.HandleFunc("", s.requireRole(roleProvider, s.slotDefine())).Methods(http.MethodPost)
	slotAPI.HandleFunc("", s.requireRole(roleProvider, s.slotList())).Methods(http.MethodGet)
	slotAPI.HandleFunc("/{slotID}", s.requireRole(roleProvider, s.slotDelete())).Methods(http.MethodDelete)
	slotAPI.HandleFunc("/{slotID}/book", s.requireRole(roleProvider, s.slotBook())).Methods(http.MethodPost)
	slotAPI.PathPrefix("").Handler(http.NotFoundHandler())

	notiAPI := api.PathPrefix("/notifications").Subrouter()
	notiAPI.Use(s.authMw)
	notiAPI.HandleFunc("", s.requireRole(roleProvider, s.notificationList())).Methods(http.MethodGet)
	notiAPI.HandleFunc("/read", s.requireRole(roleProvider, s.notificationMarkRead())).Methods(http.MethodPost)
	notiAPI.PathPrefix("").Handler(http.NotFoundHandler())

	alertAPI := api.PathPrefix("/alerts").Subrouter()
	alertAPI.Use(s.authMw)
	alertAPI.HandleFunc("", s.requireRole(roleFarmer, s.alertList())).Methods(http.MethodGet)
	alertAPI.HandleFunc("/{signature}/dismiss", s.requireRole(roleFarmer, s.alertDismiss())).Methods(http.MethodPost)
	alertAPI.PathPrefix("").Handler(http.NotFoundHandler())

	return r
}
