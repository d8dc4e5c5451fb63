package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"carpool/internal/domain"
	"carpool/internal/service"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	rideService *service.RideService
	logger      logrus.FieldLogger
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rideService *service.RideService, logger logrus.FieldLogger) *RideHandler {
	return &RideHandler{
		rideService: rideService,
		logger:      logger,
	}
}

// CreateRideRequest is the HTTP request body for creating a ride.
type CreateRideRequest struct {
	VehicleID      string          `json:"vehicle_id"`
	Source         string          `json:"source"`
	Destination    string          `json:"destination"`
	BoardingPoints []string        `json:"boarding_points"`
	DroppingPoints []string        `json:"dropping_points"`
	Fare           decimal.Decimal `json:"fare"`
	SeatsOffered   int             `json:"seats_offered"`
	StartTime      time.Time       `json:"start_time"`
	EndTime        time.Time       `json:"end_time"`
}

// UpdateRideRequest is the HTTP request body for updating a ride. Omitted
// fields are left unchanged.
type UpdateRideRequest struct {
	VehicleID      *string          `json:"vehicle_id"`
	BoardingPoints []string         `json:"boarding_points"`
	DroppingPoints []string         `json:"dropping_points"`
	Fare           *decimal.Decimal `json:"fare"`
	SeatsOffered   *int             `json:"seats_offered"`
	StartTime      *time.Time       `json:"start_time"`
	EndTime        *time.Time       `json:"end_time"`
}

// RideResponse is the HTTP representation of a ride.
type RideResponse struct {
	ID             string          `json:"id"`
	DriverID       string          `json:"driver_id"`
	VehicleID      string          `json:"vehicle_id"`
	Source         string          `json:"source"`
	Destination    string          `json:"destination"`
	BoardingPoints []string        `json:"boarding_points"`
	DroppingPoints []string        `json:"dropping_points"`
	Fare           decimal.Decimal `json:"fare"`
	SeatsOffered   int             `json:"seats_offered"`
	SeatsBooked    int             `json:"seats_booked"`
	SeatsAvailable int             `json:"seats_available"`
	Status         string          `json:"status"`
	StartTime      string          `json:"start_time"`
	EndTime        string          `json:"end_time"`
}

func newRideResponse(r *domain.Ride) RideResponse {
	return RideResponse{
		ID:             r.ID,
		DriverID:       r.DriverID,
		VehicleID:      r.VehicleID,
		Source:         r.Source,
		Destination:    r.Destination,
		BoardingPoints: r.BoardingPoints,
		DroppingPoints: r.DroppingPoints,
		Fare:           r.Fare,
		SeatsOffered:   r.SeatsOffered,
		SeatsBooked:    r.SeatsBooked,
		SeatsAvailable: r.SeatsAvailable(),
		Status:         string(r.Status),
		StartTime:      formatTime(r.StartTime),
		EndTime:        formatTime(r.EndTime),
	}
}

func newRideResponses(rides []*domain.Ride) []RideResponse {
	response := make([]RideResponse, 0, len(rides))
	for _, r := range rides {
		response = append(response, newRideResponse(r))
	}
	return response
}

// CreateRide handles POST /v1/rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ride, err := h.rideService.CreateRide(c.Request.Context(), identity, service.CreateRideRequest{
		VehicleID:      req.VehicleID,
		Source:         req.Source,
		Destination:    req.Destination,
		BoardingPoints: req.BoardingPoints,
		DroppingPoints: req.DroppingPoints,
		Fare:           req.Fare,
		SeatsOffered:   req.SeatsOffered,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondJSON(c, http.StatusCreated, newRideResponse(ride))
}

// ListOpenRides handles GET /v1/rides?source=&destination=&date=YYYY-MM-DD
func (h *RideHandler) ListOpenRides(c *gin.Context) {
	date, err := parseDate(c.Query("date"))
	if err != nil {
		badRequest(c, "date must be YYYY-MM-DD")
		return
	}

	rides, err := h.rideService.ListOpenRides(c.Request.Context(), domain.RideFilter{
		Source:      c.Query("source"),
		Destination: c.Query("destination"),
		Date:        date,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondJSON(c, http.StatusOK, newRideResponses(rides))
}

// ListMyRides handles GET /v1/rides/mine
func (h *RideHandler) ListMyRides(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	rides, err := h.rideService.ListDriverRides(c.Request.Context(), identity)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondJSON(c, http.StatusOK, newRideResponses(rides))
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, err := h.rideService.GetRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondJSON(c, http.StatusOK, newRideResponse(ride))
}

// UpdateRide handles PATCH /v1/rides/:id
func (h *RideHandler) UpdateRide(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	var req UpdateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ride, err := h.rideService.UpdateRide(c.Request.Context(), identity, c.Param("id"), service.UpdateRideRequest{
		VehicleID:      req.VehicleID,
		BoardingPoints: req.BoardingPoints,
		DroppingPoints: req.DroppingPoints,
		Fare:           req.Fare,
		SeatsOffered:   req.SeatsOffered,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondJSON(c, http.StatusOK, newRideResponse(ride))
}

// CancelRide handles POST /v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	ride, err := h.rideService.CancelRide(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondJSON(c, http.StatusOK, newRideResponse(ride))
}

// RideBookings handles GET /v1/rides/:id/bookings
func (h *RideHandler) RideBookings(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	bookings, err := h.rideService.RideBookings(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondJSON(c, http.StatusOK, newBookingResponses(bookings))
}
