package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// ChargeRequest describes a charge for one booking.
type ChargeRequest struct {
	PaymentID string
	BookingID string
	Amount    decimal.Decimal
	Method    domain.PaymentMethod
}

// ChargeResult is the outcome reported by the gateway.
type ChargeResult struct {
	Success        bool
	TransactionRef string
}

// PaymentGateway is the interface for the payment provider.
type PaymentGateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// StubGateway is a PaymentGateway that always succeeds.
type StubGateway struct{}

// NewStubGateway creates a new stub gateway.
func NewStubGateway() *StubGateway {
	return &StubGateway{}
}

// Charge simulates a payment charge. Always succeeds.
func (g *StubGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	return ChargeResult{
		Success:        true,
		TransactionRef: uuid.New().String(),
	}, nil
}

// PaymentService handles payment reads.
type PaymentService struct {
	paymentRepo repository.PaymentRepository
	bookingRepo repository.BookingRepository
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(paymentRepo repository.PaymentRepository, bookingRepo repository.BookingRepository) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		bookingRepo: bookingRepo,
	}
}

// GetPayment retrieves a payment visible to the caller.
func (s *PaymentService) GetPayment(ctx context.Context, caller domain.Identity, paymentID string) (*domain.Payment, error) {
	if err := checkID(paymentID, ErrInvalidPaymentID); err != nil {
		return nil, err
	}

	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if caller.Role == domain.RoleAdmin {
		return payment, nil
	}

	booking, err := s.bookingRepo.GetByID(ctx, payment.BookingID)
	if err != nil {
		return nil, fmt.Errorf("load booking of payment: %w", err)
	}
	if booking.PassengerID != caller.UserID {
		return nil, ErrNotOwner
	}

	return payment, nil
}

// ListPassengerPayments retrieves the caller's payments.
func (s *PaymentService) ListPassengerPayments(ctx context.Context, caller domain.Identity) ([]*domain.Payment, error) {
	if caller.Role != domain.RolePassenger {
		return nil, ErrNotPassenger
	}
	return s.paymentRepo.ListByPassenger(ctx, caller.UserID)
}

// ValidatePaymentMethod validates a payment method string.
func ValidatePaymentMethod(method string) (domain.PaymentMethod, error) {
	switch domain.PaymentMethod(method) {
	case domain.PaymentMethodWallet, domain.PaymentMethodCard,
		domain.PaymentMethodUPI, domain.PaymentMethodCash:
		return domain.PaymentMethod(method), nil
	case "":
		return domain.PaymentMethodWallet, nil
	default:
		return "", ErrInvalidPaymentMethod
	}
}

// charge asks the gateway to settle the payment. A gateway error counts as
// a failed charge.
func charge(ctx context.Context, gateway PaymentGateway, payment *domain.Payment) (ChargeResult, error) {
	result, err := gateway.Charge(ctx, ChargeRequest{
		PaymentID: payment.ID,
		BookingID: payment.BookingID,
		Amount:    payment.Amount,
		Method:    payment.Method,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ChargeResult{}, err
		}
		return ChargeResult{Success: false}, nil
	}
	return result, nil
}

// settle advances a booking and its payment together according to the
// charge outcome.
func settle(ctx context.Context, repos repository.Repositories, booking *domain.Booking, payment *domain.Payment, result ChargeResult) error {
	nextPayment := domain.PaymentStatusFailed
	nextBooking := domain.BookingStatusCancelled
	if result.Success {
		nextPayment = domain.PaymentStatusSuccess
		nextBooking = domain.BookingStatusConfirmed
	}

	if !payment.Status.CanTransitionTo(nextPayment) {
		return fmt.Errorf("%w: payment %s -> %s", ErrInvalidStateTransition, payment.Status, nextPayment)
	}
	if !booking.Status.CanTransitionTo(nextBooking) {
		return fmt.Errorf("%w: booking %s -> %s", ErrInvalidStateTransition, booking.Status, nextBooking)
	}

	if err := repos.Payments.UpdateStatus(ctx, payment.ID, nextPayment, result.TransactionRef); err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if err := repos.Bookings.UpdateStatus(ctx, booking.ID, nextBooking); err != nil {
		if errors.Is(err, repository.ErrDuplicateConfirmedBooking) {
			return ErrAlreadyBooked
		}
		return fmt.Errorf("update booking status: %w", err)
	}

	payment.Status = nextPayment
	payment.TransactionRef = result.TransactionRef
	booking.Status = nextBooking
	return nil
}
