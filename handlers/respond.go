package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/kevinaaaquil/bookswap/logger"
	"github.com/kevinaaaquil/bookswap/middleware"
	"github.com/kevinaaaquil/bookswap/models"
	"github.com/kevinaaaquil/bookswap/service"
	"github.com/kevinaaaquil/bookswap/utils"
)

// writeError maps service errors onto the HTTP error taxonomy. Anything unrecognised is
// logged and reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr   *service.ValidationError
		locked *service.LockedError
		tooBig *http.MaxBytesError
	)
	switch {
	case errors.As(err, &verr):
		utils.FailFields(w, http.StatusBadRequest, utils.CodeValidation, verr.Error(), verr.Fields)
	case errors.As(err, &locked):
		utils.Fail(w, http.StatusTooManyRequests, utils.CodeAccountLocked, locked.Error())
	case errors.As(err, &tooBig), errors.Is(err, utils.ErrImageTooLarge):
		utils.Fail(w, http.StatusRequestEntityTooLarge, utils.CodePayloadTooLarge, "request body is too large")
	case errors.Is(err, utils.ErrInvalidImage):
		msg := utils.ErrInvalidImage.Error()
		utils.FailFields(w, http.StatusBadRequest, utils.CodeValidation, msg, map[string]string{"image": msg})
	case errors.Is(err, service.ErrNoUpdates):
		utils.Fail(w, http.StatusBadRequest, utils.CodeNoUpdates, "no valid fields to update")
	case errors.Is(err, service.ErrInvalidCredentials):
		utils.Fail(w, http.StatusUnauthorized, utils.CodeInvalidCredentials, "invalid email or password")
	case errors.Is(err, service.ErrNotAuthorized):
		utils.Fail(w, http.StatusUnauthorized, utils.CodeNotAuthorized, "not authorized")
	case errors.Is(err, service.ErrNotFound):
		utils.Fail(w, http.StatusNotFound, utils.CodeNotFound, "not found")
	case errors.Is(err, service.ErrUserExists):
		utils.Fail(w, http.StatusConflict, utils.CodeUserExists, "user with this email or username already exists")
	default:
		logger.Log.Errorw("request failed",
			"request_id", middleware.RequestID(r.Context()),
			"method", r.Method,
			"uri", r.RequestURI,
			"error", err,
		)
		utils.Fail(w, http.StatusInternalServerError, utils.CodeInternal, "internal server error")
	}
}

// decodeJSON reads a JSON body into dst. Unknown fields are ignored; an empty body is
// treated as an empty object.
func decodeJSON(r *http.Request, dst interface{}) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	var tooBig *http.MaxBytesError
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	case errors.As(err, &tooBig):
		return err
	default:
		return &service.ValidationError{Fields: map[string]string{"body": "request body must be valid JSON"}}
	}
}

// currentUser returns the user placed in the context by middleware.Auth. Handlers behind
// Auth can rely on it being present.
func currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.Fail(w, http.StatusUnauthorized, utils.CodeNotAuthorized, "not authorized")
	}
	return u, ok
}
