package port

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/roomshare/roomshare-api/internal/middleware"
)

// Routes registers the auth and user endpoints under prefix (e.g. "/api").
// User routes require a valid access token.
func Routes(r *mux.Router, prefix string, authH *AuthHandler, userH *UserHandler, verifier middleware.AccessVerifier) {
	api := r.PathPrefix(prefix).Subrouter()

	authR := api.PathPrefix("/auth").Methods(http.MethodPost).Subrouter()
	authR.HandleFunc("/signup", authH.Signup)
	authR.HandleFunc("/signin", authH.Signin)
	authR.HandleFunc("/refresh", authH.Refresh)
	authR.HandleFunc("/signout", authH.Signout)

	userR := api.PathPrefix("/user").Subrouter()
	userR.Use(middleware.Authenticate(verifier))
	userR.HandleFunc("/{id}", userH.Get).Methods(http.MethodGet)
	userR.HandleFunc("/update/{id}", userH.Update).Methods(http.MethodPut)
	userR.HandleFunc("/delete/{id}", userH.Delete).Methods(http.MethodDelete)
}
