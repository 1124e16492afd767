package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/course-enrollment/internal/application"
	"github.com/oksasatya/course-enrollment/internal/interface/middleware"
	"github.com/oksasatya/course-enrollment/pkg/response"
	"github.com/oksasatya/course-enrollment/pkg/validation"
)

// writeError maps application errors onto HTTP statuses. Storage failures are
// logged here and reported without detail.
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	switch {
	case errors.Is(err, application.ErrCourseNotFound):
		response.Error[any](c, http.StatusNotFound, "course not found", nil)
	case errors.Is(err, application.ErrAccessDenied):
		if middleware.CurrentPrincipal(c).IsAnonymous() {
			response.Error[any](c, http.StatusUnauthorized, "authentication required", nil)
			return
		}
		response.Error[any](c, http.StatusForbidden, "access denied", nil)
	case errors.Is(err, application.ErrInvalidInput):
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
	case errors.Is(err, application.ErrCoverStorageDisabled):
		response.Error[any](c, http.StatusServiceUnavailable, "cover upload unavailable", nil)
	default:
		_ = c.Error(err)
		if logger != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"request_id": c.GetString("request_id"),
				"path":       c.FullPath(),
			}).Error("request failed")
		}
		response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
	}
}
