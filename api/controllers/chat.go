package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/geonmarket-backend/api/middleware"
	"github.com/angelmondragon/geonmarket-backend/api/responses"
	"github.com/angelmondragon/geonmarket-backend/api/validators"
	"github.com/angelmondragon/geonmarket-backend/internal/chat"
	"github.com/angelmondragon/geonmarket-backend/pkg/logger"
)

const maxChatMessageLength = 1000

type chatSendRequest struct {
	Text string `json:"text"`
}

func ChatMessages(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, listingID, err := chatParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		messages, err := svc.Messages(r.Context(), userID, listingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, messages)
	}
}

// ChatSend appends a message to the caller's transcript for a listing.
func ChatSend(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, listingID, err := chatParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body chatSendRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		msg, err := svc.Send(r.Context(), userID, listingID, validators.SanitizeString(body.Text, maxChatMessageLength))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, msg)
	}
}

func ChatRooms(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rooms, err := svc.Rooms(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rooms)
	}
}

func chatParams(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	userID, err := middleware.RequireUserID(r.Context())
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	listingID, err := validators.ParseUUIDParam(r, "listingId", "listing")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return userID, listingID, nil
}
