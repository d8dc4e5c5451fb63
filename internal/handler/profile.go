package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"carpool/internal/service"
)

// ProfileHandler handles HTTP requests for the caller's ride counters.
type ProfileHandler struct {
	profileService *service.ProfileService
	logger         logrus.FieldLogger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profileService *service.ProfileService, logger logrus.FieldLogger) *ProfileHandler {
	return &ProfileHandler{profileService: profileService, logger: logger}
}

// StatsResponse is the HTTP response for ride counters.
type StatsResponse struct {
	UserID           string `json:"user_id"`
	RidesAsDriver    int    `json:"rides_as_driver"`
	RidesAsPassenger int    `json:"rides_as_passenger"`
}

// GetStats handles GET /v1/me/stats
func (h *ProfileHandler) GetStats(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	stats, err := h.profileService.GetStats(c.Request.Context(), identity)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondJSON(c, http.StatusOK, StatsResponse{
		UserID:           stats.UserID,
		RidesAsDriver:    stats.RidesAsDriver,
		RidesAsPassenger: stats.RidesAsPassenger,
	})
}
