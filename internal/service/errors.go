package service

import (
	"errors"
	"fmt"

	"github.com/clarotec/orders-api/internal/domain"
)

// Common service errors
var (
	// ErrOrderNotFound is returned when no order matches an id or tracking id
	ErrOrderNotFound = errors.New("order not found")

	// ErrCustomerNotFound is returned when a customer is not found
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrProductNotFound is returned when a catalog product is not found
	ErrProductNotFound = errors.New("product not found")

	// ErrLineItemNotFound is returned when an edited item id does not belong to the order
	ErrLineItemNotFound = errors.New("line item does not belong to this order")

	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidTransition is returned when the order's current status does not allow the action
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidAction is returned for unknown portal actions
	ErrInvalidAction = errors.New("invalid action")

	// ErrInvalidInput is returned when input fails business validation
	ErrInvalidInput = errors.New("invalid input")

	// ErrCustomerHasOrders is returned when deleting a customer that still has orders
	ErrCustomerHasOrders = errors.New("customer has orders and cannot be deleted")

	// ErrEmailTaken is returned when registering or creating with an email already in use
	ErrEmailTaken = errors.New("email already in use")

	// ErrInvalidCredentials is returned on failed login or refresh
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrMailDelivery is returned when an email-only action could not send its email
	ErrMailDelivery = errors.New("email delivery failed")

	// ErrPDFRender is returned when the quote PDF could not be produced
	ErrPDFRender = errors.New("pdf generation failed")
)

// TransitionError reports a rejected transition together with the persisted status
type TransitionError struct {
	Current domain.OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("current state is %s", e.Current)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

func invalidTransition(current domain.OrderStatus) error {
	return &TransitionError{Current: current}
}
