package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

func (s Server) writeJsonResponse(w http.ResponseWriter, response any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.Logger.Errorf("writeJsonResponse: Error encoding response: %+v, err: %v", response, err)
	}
}

// sessionCreate issues the bearer token the farmer and provider views use.
// There is no user store; the optional shared access key is the only gate.
func (s Server) sessionCreate() http.HandlerFunc {
	type request struct {
		Name      string `json:"name"`
		Role      string `json:"role"`
		AccessKey string `json:"access_key"`
	}
	type response struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		req := &request{}
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if req.Role != roleFarmer && req.Role != roleProvider {
			http.Error(w, "Invalid role", http.StatusBadRequest)
			return
		}
		if s.AccessKey != "" &&
			subtle.ConstantTimeCompare([]byte(req.AccessKey), []byte(s.AccessKey)) != 1 {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		name := req.Name
		if name == "" {
			name = req.Role
		}

		exp := time.Now().AddDate(0, 0, 30)
		t, err := jwt.NewBuilder().
			Subject(name).
			Issuer("farmsync").
			Expiration(exp).
			Claim("role", req.Role).
			Build()
		if err != nil {
			s.Logger.Errorf("sessionCreate: Error creating session token for %s, err: %v", name, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		st, err := jwt.Sign(t, jwt.WithKey(jwa.HS256, s.AuthSecretKey))
		if err != nil {
			s.Logger.Errorf("sessionCreate: Error signing session token for %s, err: %v", name, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		s.Logger.Infof("sessionCreate: Session for %s, role: %s", name, req.Role)
		s.writeJsonResponse(w, response{Token: string(st), ExpiresAt: exp}, http.StatusOK)
	}
}
