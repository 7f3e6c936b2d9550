package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"groupgames-service/internal/models"
	"groupgames-service/internal/services"
)

// broadcaster fans events out to a group room.
type broadcaster interface {
	Broadcast(groupID int, event models.GroupEvent)
}

// writeError maps service errors onto status codes. Unexpected errors are
// logged and reported with a generic message.
func writeError(c *gin.Context, err error, fallback string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrNotMember):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrConflict), errors.Is(err, services.ErrForbidden), errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		logrus.WithError(err).WithFields(logrus.Fields{
			"route":      c.FullPath(),
			"request_id": requestIDFromContext(c),
		}).Error(fallback)
		c.JSON(status, gin.H{"message": fallback})
		return
	}
	c.JSON(status, gin.H{"message": clientMessage(err)})
}

// clientMessage strips the error class prefix, "conflict: group is full"
// becomes "group is full".
func clientMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}

func paramID(c *gin.Context, name, label string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid " + label + " id"})
		return 0, false
	}
	return id, true
}
