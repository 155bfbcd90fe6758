package handlers

import (
	"errors"
	"net/http"

	"github.com/chachabrian/mooveit-admin/internal/models"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// statusFor maps the typed errors of the core to HTTP statuses.
func statusFor(err error) int {
	var (
		ve *models.ValidationError
		nf *models.NotFoundError
		it *models.InvalidTransitionError
		fe *models.FetchError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &it), errors.Is(err, models.ErrStaleWrite):
		return http.StatusConflict
	case errors.As(err, &fe), errors.Is(err, models.ErrUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func kindParam(c *gin.Context) (models.EntityKind, bool) {
	kind, err := models.ParseEntityKind(c.Param("kind"))
	if err != nil {
		respondError(c, err)
		return "", false
	}
	return kind, true
}
