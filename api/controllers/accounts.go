package controllers

import (
	"net/http"

	"github.com/angelmondragon/geonmarket-backend/api/middleware"
	"github.com/angelmondragon/geonmarket-backend/api/responses"
	"github.com/angelmondragon/geonmarket-backend/api/validators"
	"github.com/angelmondragon/geonmarket-backend/internal/accounts"
	"github.com/angelmondragon/geonmarket-backend/pkg/logger"
)

func AccountsList(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AccountsAdd registers a bank account used to pay for token purchases.
func AccountsAdd(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body accounts.AddAccountInput
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.Add(r.Context(), userID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, account)
	}
}
