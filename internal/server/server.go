package server

import (
	"github.com/lestrrat-go/jwx/v2/jwk"

	"farmsync/internal/booking"
)

type Server struct {
	Coordinator   *booking.Coordinator
	Logger        logger
	AuthSecretKey jwk.Key
	AccessKey     string
}

type logger interface {
	Debug(v ...any)
	Info(v ...any)
	Error(v ...any)
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Errorf(format string, v ...any)
}
