package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"carpool/internal/domain"
	"carpool/internal/service"
)

// BookingHandler handles HTTP requests for bookings.
type BookingHandler struct {
	reservationService *service.ReservationService
	logger             logrus.FieldLogger
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(reservationService *service.ReservationService, logger logrus.FieldLogger) *BookingHandler {
	return &BookingHandler{
		reservationService: reservationService,
		logger:             logger,
	}
}

// CreateBookingRequest is the HTTP request body for booking seats.
type CreateBookingRequest struct {
	RideID        string `json:"ride_id"`
	Seats         int    `json:"seats"`
	BoardingPoint string `json:"boarding_point"`
	DroppingPoint string `json:"dropping_point"`
	PaymentMethod string `json:"payment_method,omitempty"` // wallet, card, upi, cash
}

// BookingResponse is the HTTP representation of a booking.
type BookingResponse struct {
	ID            string `json:"id"`
	RideID        string `json:"ride_id"`
	PassengerID   string `json:"passenger_id"`
	BoardingPoint string `json:"boarding_point"`
	DroppingPoint string `json:"dropping_point"`
	Seats         int    `json:"seats"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
}

// ReservationResponse is the HTTP response for booking and cancelling.
type ReservationResponse struct {
	Booking        BookingResponse  `json:"booking"`
	Payment        *PaymentResponse `json:"payment,omitempty"`
	SeatsAvailable int              `json:"seats_available"`
	RideStatus     string           `json:"ride_status"`
}

func newBookingResponse(b *domain.Booking) BookingResponse {
	return BookingResponse{
		ID:            b.ID,
		RideID:        b.RideID,
		PassengerID:   b.PassengerID,
		BoardingPoint: b.BoardingPoint,
		DroppingPoint: b.DroppingPoint,
		Seats:         b.Seats,
		Status:        string(b.Status),
		CreatedAt:     formatTime(b.CreatedAt),
	}
}

func newBookingResponses(bookings []*domain.Booking) []BookingResponse {
	response := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		response = append(response, newBookingResponse(b))
	}
	return response
}

func newReservationResponse(result *service.ReservationResult) ReservationResponse {
	response := ReservationResponse{
		Booking:        newBookingResponse(result.Booking),
		SeatsAvailable: result.Ride.SeatsAvailable(),
		RideStatus:     string(result.Ride.Status),
	}
	if result.Payment != nil {
		payment := newPaymentResponse(result.Payment)
		response.Payment = &payment
	}
	return response
}

// CreateBooking handles POST /v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	result, err := h.reservationService.CreateReservation(c.Request.Context(), identity, service.CreateReservationRequest{
		RideID:        req.RideID,
		Seats:         req.Seats,
		BoardingPoint: req.BoardingPoint,
		DroppingPoint: req.DroppingPoint,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	// A declined payment is committed but holds no seats.
	code := http.StatusCreated
	if !result.Confirmed() {
		code = http.StatusPaymentRequired
	}
	respondJSON(c, code, newReservationResponse(result))
}

// ListBookings handles GET /v1/bookings?status=&boarding_point=&dropping_point=&from=&to=
func (h *BookingHandler) ListBookings(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	from, err := parseDate(c.Query("from"))
	if err != nil {
		badRequest(c, "from must be YYYY-MM-DD")
		return
	}
	to, err := parseDate(c.Query("to"))
	if err != nil {
		badRequest(c, "to must be YYYY-MM-DD")
		return
	}
	if !to.IsZero() {
		// Inclusive of the whole end day.
		to = to.AddDate(0, 0, 1).Add(-1)
	}

	bookings, err := h.reservationService.ListPassengerBookings(c.Request.Context(), identity, domain.BookingFilter{
		Status:        domain.BookingStatus(c.Query("status")),
		BoardingPoint: c.Query("boarding_point"),
		DroppingPoint: c.Query("dropping_point"),
		From:          from,
		To:            to,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondJSON(c, http.StatusOK, newBookingResponses(bookings))
}

// GetBooking handles GET /v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	booking, err := h.reservationService.GetBooking(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondJSON(c, http.StatusOK, newBookingResponse(booking))
}

// CancelBooking handles POST /v1/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	result, err := h.reservationService.CancelReservation(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondJSON(c, http.StatusOK, newReservationResponse(result))
}
