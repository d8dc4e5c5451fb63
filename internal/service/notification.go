package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"carpool/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationRideCreated          NotificationType = "ride_created"
	NotificationRideCancelled        NotificationType = "ride_cancelled"
	NotificationBookingConfirmed     NotificationType = "booking_confirmed"
	NotificationBookingCancelled     NotificationType = "booking_cancelled"
	NotificationBookingPaymentFailed NotificationType = "booking_payment_failed"
)

// Notification represents a notification to be sent.
type Notification struct {
	ID          string                 `json:"id"`
	Type        NotificationType       `json:"type"`
	RecipientID string                 `json:"recipient_id"`
	SubjectID   string                 `json:"subject_id"` // booking or ride ID
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	Data        map[string]interface{} `json:"data,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// Publisher delivers notifications to the outside world.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

// LogPublisher writes notifications to the log.
type LogPublisher struct {
	logger logrus.FieldLogger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger logrus.FieldLogger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the notification.
func (p *LogPublisher) Publish(ctx context.Context, n Notification) error {
	p.logger.WithFields(logrus.Fields{
		"event":     n.Type,
		"recipient": n.RecipientID,
		"subject":   n.SubjectID,
	}).Info(n.Title + ": " + n.Message)
	return nil
}

// NotificationService queues notifications and delivers them in the background.
// Dispatch never blocks and never fails; when the queue is full the
// notification is dropped.
type NotificationService struct {
	publisher      Publisher
	logger         logrus.FieldLogger
	publishTimeout time.Duration

	mu     sync.RWMutex
	queue  chan Notification
	closed bool
	wg     sync.WaitGroup
}

// NewNotificationService creates a new NotificationService. Call Start to
// begin delivery.
func NewNotificationService(publisher Publisher, logger logrus.FieldLogger, bufferSize int, publishTimeout time.Duration) *NotificationService {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &NotificationService{
		publisher:      publisher,
		logger:         logger,
		publishTimeout: publishTimeout,
		queue:          make(chan Notification, bufferSize),
	}
}

// Start launches the delivery worker.
func (s *NotificationService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for n := range s.queue {
			s.deliver(n)
		}
	}()
}

// Close stops accepting notifications and waits for queued ones to be delivered.
func (s *NotificationService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	s.wg.Wait()
}

// Dispatch enqueues a notification without blocking.
func (s *NotificationService) Dispatch(n Notification) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.logger.WithField("event", n.Type).Warn("notification dropped: dispatcher closed")
		return
	}

	select {
	case s.queue <- n:
	default:
		s.logger.WithFields(logrus.Fields{
			"event":     n.Type,
			"recipient": n.RecipientID,
		}).Warn("notification dropped: queue full")
	}
}

func (s *NotificationService) deliver(n Notification) {
	ctx := context.Background()
	if s.publishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.publishTimeout)
		defer cancel()
	}

	if err := s.publisher.Publish(ctx, n); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event":     n.Type,
			"recipient": n.RecipientID,
			"subject":   n.SubjectID,
		}).Error("publish notification")
	}
}

// NotifyRideCreated notifies the driver that the ride is published.
func (s *NotificationService) NotifyRideCreated(ride *domain.Ride) {
	s.Dispatch(Notification{
		Type:        NotificationRideCreated,
		RecipientID: ride.DriverID,
		SubjectID:   ride.ID,
		Title:       "Ride Published",
		Message:     fmt.Sprintf("Your ride from %s to %s is open for booking", ride.Source, ride.Destination),
		Data: map[string]interface{}{
			"ride_id":       ride.ID,
			"seats_offered": ride.SeatsOffered,
			"start_time":    ride.StartTime,
		},
	})
}

// NotifyRideCancelled notifies every affected passenger that the ride was cancelled.
func (s *NotificationService) NotifyRideCancelled(ride *domain.Ride, passengerIDs []string) {
	for _, passengerID := range passengerIDs {
		s.Dispatch(Notification{
			Type:        NotificationRideCancelled,
			RecipientID: passengerID,
			SubjectID:   ride.ID,
			Title:       "Ride Cancelled",
			Message:     fmt.Sprintf("The driver cancelled the ride from %s to %s", ride.Source, ride.Destination),
			Data: map[string]interface{}{
				"ride_id": ride.ID,
			},
		})
	}
}

// NotifyBookingConfirmed notifies the passenger that the booking is confirmed.
func (s *NotificationService) NotifyBookingConfirmed(booking *domain.Booking, payment *domain.Payment) {
	s.Dispatch(Notification{
		Type:        NotificationBookingConfirmed,
		RecipientID: booking.PassengerID,
		SubjectID:   booking.ID,
		Title:       "Booking Confirmed",
		Message:     fmt.Sprintf("%d seat(s) confirmed. Paid %s", booking.Seats, payment.Amount.StringFixed(2)),
		Data: map[string]interface{}{
			"booking_id":     booking.ID,
			"ride_id":        booking.RideID,
			"payment_id":     payment.ID,
			"boarding_point": booking.BoardingPoint,
		},
	})
}

// NotifyBookingPaymentFailed notifies the passenger that payment failed and
// the booking was cancelled.
func (s *NotificationService) NotifyBookingPaymentFailed(booking *domain.Booking, payment *domain.Payment) {
	s.Dispatch(Notification{
		Type:        NotificationBookingPaymentFailed,
		RecipientID: booking.PassengerID,
		SubjectID:   booking.ID,
		Title:       "Payment Failed",
		Message:     fmt.Sprintf("Payment of %s failed. Your booking was cancelled.", payment.Amount.StringFixed(2)),
		Data: map[string]interface{}{
			"booking_id": booking.ID,
			"ride_id":    booking.RideID,
			"payment_id": payment.ID,
		},
	})
}

// NotifyBookingCancelled notifies the passenger that the booking was cancelled.
func (s *NotificationService) NotifyBookingCancelled(booking *domain.Booking) {
	s.Dispatch(Notification{
		Type:        NotificationBookingCancelled,
		RecipientID: booking.PassengerID,
		SubjectID:   booking.ID,
		Title:       "Booking Cancelled",
		Message:     fmt.Sprintf("Your booking of %d seat(s) was cancelled", booking.Seats),
		Data: map[string]interface{}{
			"booking_id": booking.ID,
			"ride_id":    booking.RideID,
		},
	})
}
