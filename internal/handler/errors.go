package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wellness-api/internal/middleware"
	"github.com/iliyamo/wellness-api/internal/repository"
	"github.com/iliyamo/wellness-api/internal/service"
)

// fail maps err to a status and error body.  Client errors carry their
// message; anything unexpected is logged with op and reported generically.
func fail(c echo.Context, op string, err error) error {
	if code, status, msg, ok := middleware.AuthFailure(err); ok {
		return respond(c, code, echo.Map{"status": status, "error": msg})
	}

	code, status, msg := http.StatusInternalServerError, middleware.StatusInternal, "internal error"
	switch {
	case errors.Is(err, service.ErrInvalidProfile):
		code, status, msg = http.StatusBadRequest, "INVALID_PROFILE", err.Error()
	case errors.Is(err, service.ErrEmptyPhoto):
		code, status, msg = http.StatusBadRequest, "EMPTY_PHOTO", "file is empty"
	case errors.Is(err, service.ErrInvalidCredentials):
		code, status, msg = http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials"
	case errors.Is(err, repository.ErrEmailExists):
		code, status, msg = http.StatusConflict, "EMAIL_EXISTS", "email already exists"
	case errors.Is(err, service.ErrFoodNotFound):
		code, status, msg = http.StatusNotFound, "FOOD_NOT_FOUND", "food not found"
	case errors.Is(err, service.ErrUploadFailed):
		code, status, msg = http.StatusBadGateway, "UPLOAD_FAILED", "image upload failed"
	case errors.Is(err, service.ErrClassifierFailed):
		code, status, msg = http.StatusBadGateway, "CLASSIFIER_FAILED", "classification failed"
	case errors.Is(err, service.ErrStorageUnavailable):
		code, status, msg = http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "storage unavailable, retry"
	}
	if code >= http.StatusInternalServerError {
		log.Printf("%s failed request_id=%s: %v", op, c.Response().Header().Get(echo.HeaderXRequestID), err)
	}
	return respond(c, code, echo.Map{"status": status, "error": msg})
}

func badRequest(c echo.Context, msg string) error {
	return respond(c, http.StatusBadRequest, echo.Map{"status": "BAD_REQUEST", "error": msg})
}
