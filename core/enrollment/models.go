package enrollment

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Enrollment statuses
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusDropped   = "dropped"
	StatusSuspended = "suspended"
)

// Payment statuses
const (
	PaymentFree     = "free"
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

var (
	Statuses        = []string{StatusActive, StatusCompleted, StatusDropped, StatusSuspended}
	PaymentStatuses = []string{PaymentFree, PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded}

	// transitions lists the statuses reachable from a given status.
	transitions = map[string][]string{
		StatusActive:    {StatusCompleted, StatusDropped, StatusSuspended},
		StatusDropped:   {StatusActive},
		StatusSuspended: {StatusActive},
	}
)

// CanTransition reports whether an enrollment may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type CourseEnrollment struct {
	ID             string                 `json:"id"`
	CourseID       string                 `json:"course_id"`
	UserID         string                 `json:"user_id"`
	Status         string                 `json:"status"`
	Progress       float64                `json:"progress"`
	EnrolledAt     time.Time              `json:"enrolled_at"`
	CompletedAt    *time.Time             `json:"completed_at"`
	LastAccessedAt *time.Time             `json:"last_accessed_at"`
	PaymentStatus  string                 `json:"payment_status"`
	AmountPaid     float64                `json:"amount_paid"`
	Currency       string                 `json:"currency"`
	PaymentOrderID string                 `json:"payment_order_id,omitempty"`
	PaymentURL     string                 `json:"payment_url,omitempty"`
	PaidAt         *time.Time             `json:"paid_at"`
	Metadata       map[string]interface{} `json:"metadata"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// IsOngoing reports whether the student still has access to the course content.
func (e CourseEnrollment) IsOngoing() bool {
	return e.Status == StatusActive || e.Status == StatusCompleted
}

type NewEnrollment struct {
	CourseID string                 `json:"course_id" validate:"required,uuid"`
	Metadata map[string]interface{} `json:"metadata"`
}

func (ne NewEnrollment) Validate(validate *validator.Validate) error { return validate.Struct(ne) }

type UpdateProgress struct {
	Progress *float64 `json:"progress" validate:"required"`
}

func (up UpdateProgress) Validate(validate *validator.Validate) error { return validate.Struct(up) }

type ChangeStatus struct {
	Status string `json:"status" validate:"required,enrollmentstatus"`
}

func (cs ChangeStatus) Validate(validate *validator.Validate) error { return validate.Struct(cs) }

// PaymentNotification is the payload the payment gateway posts back once a checkout changes state.
type PaymentNotification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
	TransactionID     string `json:"transaction_id"`
}

// PaymentStatus maps the gateway transaction status onto a payment status.
// An empty result means the notification does not change the enrollment.
func (n PaymentNotification) PaymentStatus() string {
	switch n.TransactionStatus {
	case "capture":
		if n.FraudStatus == "challenge" {
			return PaymentPending
		}
		return PaymentPaid
	case "settlement":
		return PaymentPaid
	case "deny", "cancel", "expire", "failure":
		return PaymentFailed
	case "refund", "partial_refund":
		return PaymentRefunded
	case "pending":
		return PaymentPending
	default:
		return ""
	}
}

type QueryFilter struct {
	CourseID      string `query:"course_id"`
	UserID        string `query:"user_id"`
	Status        string `query:"status"`
	PaymentStatus string `query:"payment_status"`
}

// GetFilter selects a single enrollment: by ID, by order ID, or by (CourseID, UserID).
type GetFilter struct {
	ID             string
	PaymentOrderID string
	CourseID       string
	UserID         string
}
