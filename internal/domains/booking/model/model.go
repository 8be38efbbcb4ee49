package model

import (
	"lodge/shared/model"
	"time"
)

const (
	TableName  = "bookings"
	EntityName = "booking"

	FieldID               = "id"
	FieldBookingID        = "booking_id"
	FieldUserID           = "user_id"
	FieldBookingStatus    = "booking_status"
	FieldPaymentStatus    = "payment_status"
	FieldPaymentSlip      = "payment_slip"
	FieldPaymentID        = "payment_id"
	FieldAdminNotes       = "admin_notes"
	FieldNotificationSent = "notification_sent"
)

const (
	TypeRoom    = "room"
	TypeVehicle = "vehicle"
	TypeCamping = "camping"
	TypeFood    = "food"
	TypePackage = "package"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

const (
	PaymentMethodOnline      = "online"
	PaymentMethodBankDeposit = "bank_deposit"
)

const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

var PaymentStatuses = []string{PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded}

// Booking snapshots the item and the customer at creation time. Nothing is joined live.
type Booking struct {
	ID               string     `db:"id"`
	BookingID        string     `db:"booking_id"`
	UserID           string     `db:"user_id"`
	BookingType      string     `db:"booking_type"`
	ItemID           string     `db:"item_id"`
	ItemName         string     `db:"item_name"`
	ItemType         string     `db:"item_type"`
	ItemPrice        float64    `db:"item_price"`
	StartDate        *time.Time `db:"start_date"`
	EndDate          *time.Time `db:"end_date"`
	Quantity         int        `db:"quantity"`
	TotalAmount      float64    `db:"total_amount"`
	BookingStatus    string     `db:"booking_status"`
	PaymentMethod    string     `db:"payment_method"`
	PaymentStatus    string     `db:"payment_status"`
	PaymentSlip      string     `db:"payment_slip"`
	PaymentID        string     `db:"payment_id"`
	CustomerName     string     `db:"customer_name"`
	CustomerEmail    string     `db:"customer_email"`
	CustomerPhone    string     `db:"customer_phone"`
	AdminNotes       string     `db:"admin_notes"`
	NotificationSent bool       `db:"notification_sent"`
	model.Metadata
}

func (b Booking) Cancelled() bool {
	return b.BookingStatus == StatusCancelled
}

func (b Booking) OwnedBy(userID string) bool {
	return userID != "" && b.UserID == userID
}

// ApplyPayment records the payment outcome. A paid booking is always confirmed.
func (b *Booking) ApplyPayment(status, slip, paymentID string) {
	b.PaymentStatus = status

	if slip != "" {
		b.PaymentSlip = slip
	}

	if paymentID != "" {
		b.PaymentID = paymentID
	}

	if status == PaymentPaid {
		b.BookingStatus = StatusConfirmed
	}
}

// Verify is the admin shortcut: paid, confirmed and queued for notification in one step.
func (b *Booking) Verify(notes string) {
	b.ApplyPayment(PaymentPaid, "", "")
	b.NotificationSent = false

	if notes != "" {
		b.AdminNotes = notes
	}
}
