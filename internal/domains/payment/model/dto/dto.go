package dto

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"

	StepConfirmHold   = "confirm_hold"
	StepCancelHold    = "cancel_hold"
	StepUpdatePayment = "update_payment"
	StepCancelBooking = "cancel_booking"

	MsgCallbackProcessed = "Payment callback processed"
)

// CallbackRequest is what the payment subsystem posts once a payment settles.
// A room key needs both stay dates; at least one of room key and booking id is required.
type CallbackRequest struct {
	RoomKey      string `json:"roomKey"      validate:"required_without=BookingID,max=100"`
	CheckInDate  string `json:"checkInDate"  validate:"required_with=RoomKey,omitempty,staydate"`
	CheckOutDate string `json:"checkOutDate" validate:"required_with=RoomKey,omitempty,staydate"`
	BookingID    string `json:"bookingId"    validate:"required_without=RoomKey,max=100"`
	PaymentID    string `json:"paymentId"    validate:"omitempty,max=100"`
	Status       string `json:"status"       validate:"required,oneof=success failed"`
}

// CallbackResponse lists the steps that were applied, in order.
type CallbackResponse struct {
	Message string   `json:"message"`
	Status  string   `json:"status"`
	Steps   []string `json:"steps"`
}
