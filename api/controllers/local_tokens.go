package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/geonmarket-backend/api/responses"
	"github.com/angelmondragon/geonmarket-backend/api/validators"
	"github.com/angelmondragon/geonmarket-backend/internal/localstore"
	pkgerrors "github.com/angelmondragon/geonmarket-backend/pkg/errors"
	"github.com/angelmondragon/geonmarket-backend/pkg/logger"
)

const (
	deviceIDHeader    = "X-Device-Id"
	deviceOwnerPrefix = "device:"
	maxDeviceIDLength = 64
)

type localTokens struct {
	Tokens int64 `json:"tokens"`
}

type localTokensRequest struct {
	Tokens int64 `json:"tokens" validate:"min=0"`
}

// LocalTokensGet returns the fallback balance kept for an anonymous device.
func LocalTokensGet(store localstore.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := deviceOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var state localTokens
		if _, err := store.Get(r.Context(), owner, localstore.KeyUserTokens, &state.Tokens); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load device tokens"))
			return
		}
		responses.WriteSuccess(w, state)
	}
}

func LocalTokensPut(store localstore.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := deviceOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body localTokensRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := store.Put(r.Context(), owner, localstore.KeyUserTokens, body.Tokens); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save device tokens"))
			return
		}
		responses.WriteSuccess(w, localTokens{Tokens: body.Tokens})
	}
}

func deviceOwner(r *http.Request) (string, error) {
	id := validators.SanitizeString(r.Header.Get(deviceIDHeader), maxDeviceIDLength)
	if id == "" || strings.ContainsAny(id, ": ") {
		return "", pkgerrors.New(pkgerrors.CodeValidation, deviceIDHeader+" header required")
	}
	return deviceOwnerPrefix + id, nil
}
