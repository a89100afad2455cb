package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"activities-service/logging"
	"activities-service/models"
	"activities-service/services"
)

type ActivityHandler struct {
	service *services.ActivityService
}

func NewActivityHandler(service *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{service: service}
}

func writeMessage(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// writeError maps service errors onto the response. Anything that is
// not a RequestError is a 500 and its detail stays in the logs.
func writeError(w http.ResponseWriter, err error) {
	var reqErr *services.RequestError
	if errors.As(err, &reqErr) {
		writeMessage(w, reqErr.Code, reqErr.Message)
		return
	}
	logging.Logger.Errorf("Event ID: REQUEST_FAILED, Description: %v", err)
	writeMessage(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return false
	}
	return true
}

func requester(w http.ResponseWriter, r *http.Request) (models.Requester, bool) {
	req, ok := RequesterFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
	}
	return req, ok
}

func (h *ActivityHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := requester(w, r)
	if !ok {
		return
	}
	var body models.CreateRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if err := h.service.Create(r.Context(), caller, body); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusCreated, "The activity was successfully created")
}

func (h *ActivityHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := requester(w, r)
	if !ok {
		return
	}
	var body models.UpdateRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if err := h.service.Update(r.Context(), caller, body); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "The activity was successfully updated")
}

func (h *ActivityHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := requester(w, r)
	if !ok {
		return
	}
	var body models.ChangeStatusRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if err := h.service.ChangeStatus(r.Context(), caller, body); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "The activity status was successfully changed")
}

func (h *ActivityHandler) Share(w http.ResponseWriter, r *http.Request) {
	caller, ok := requester(w, r)
	if !ok {
		return
	}
	var body models.ShareRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if err := h.service.Share(r.Context(), caller, body); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "The activity was successfully shared")
}

func (h *ActivityHandler) Remove(w http.ResponseWriter, r *http.Request) {
	caller, ok := requester(w, r)
	if !ok {
		return
	}
	var body models.RemoveRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if err := h.service.Remove(r.Context(), caller, body); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "The assignee was successfully removed")
}

func (h *ActivityHandler) Comment(w http.ResponseWriter, r *http.Request) {
	caller, ok := requester(w, r)
	if !ok {
		return
	}
	var body models.CommentRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if err := h.service.Comment(r.Context(), caller, body); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
