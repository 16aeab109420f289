package handlers

import (
	"errors"
	"net/http"

	"github.com/nkiryanov/shortener/internal/apperrors"
	"github.com/nkiryanov/shortener/internal/handlers/middleware"
	"github.com/nkiryanov/shortener/internal/handlers/render"
	"github.com/nkiryanov/shortener/internal/logger"
)

// Top level handler for errors handlers did not translate themselves
func errorHandler(l logger.Logger, showDetail bool) middleware.ErrorHandler {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		if errors.Is(err, apperrors.ErrUserAlreadyExists) {
			render.ServiceError(w, "Email already in use", http.StatusBadRequest)
			return
		}

		logger.FromContext(r.Context(), l).Error("request failed", "error", err)

		if showDetail {
			render.ServiceErrorDetail(w, "Internal server error", err.Error(), http.StatusInternalServerError)
			return
		}
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}
