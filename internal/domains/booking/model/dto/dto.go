package dto

import (
	"io"
	"lodge/internal/domains/booking/model"
	userModel "lodge/internal/domains/user/model"
	"lodge/shared"
	"lodge/shared/constant"
	gDto "lodge/shared/dto"
	gModel "lodge/shared/model"
	"lodge/shared/timezone"
	"time"

	"github.com/google/uuid"
)

const (
	MsgBookingCreated   = "Booking created successfully"
	MsgBookingCancelled = "Booking cancelled successfully"
	MsgPaymentUpdated   = "Payment status updated successfully"
	MsgPaymentVerified  = "Payment verified successfully"
	MsgSlipUploaded     = "Payment slip uploaded successfully"
)

// CreateBookingRequest carries the values the client computed during checkout.
// TotalAmount is stored as submitted.
type CreateBookingRequest struct {
	BookingType   string  `json:"bookingType"   validate:"required,oneof=room vehicle camping food package"`
	ItemID        string  `json:"itemId"        validate:"required,max=100"`
	ItemName      string  `json:"itemName"      validate:"omitempty,max=200"`
	ItemType      string  `json:"itemType"      validate:"omitempty,max=100"`
	ItemPrice     float64 `json:"itemPrice"     validate:"min=0"`
	StartDate     string  `json:"startDate"     validate:"omitempty,staydate"`
	EndDate       string  `json:"endDate"       validate:"omitempty,staydate"`
	Quantity      int     `json:"quantity"      validate:"omitempty,min=1"`
	TotalAmount   float64 `json:"totalAmount"   validate:"min=0"`
	PaymentMethod string  `json:"paymentMethod" validate:"required,oneof=online bank_deposit"`
}

// Dates returns the parsed stay. Either side may be nil.
func (c *CreateBookingRequest) Dates() (start, end *time.Time, err error) {
	parse := func(value string) (*time.Time, error) {
		if value == constant.Empty {
			return nil, nil //nolint:nilnil
		}

		t, err := timezone.ParseDate(value)
		if err != nil {
			return nil, err //nolint:wrapcheck
		}

		return &t, nil
	}

	if start, err = parse(c.StartDate); err != nil {
		return nil, nil, err
	}

	if end, err = parse(c.EndDate); err != nil {
		return nil, nil, err
	}

	return start, end, nil
}

func (c *CreateBookingRequest) ToModel(bookingID string, customer userModel.Contact, start, end *time.Time) model.Booking {
	quantity := c.Quantity
	if quantity == 0 {
		quantity = 1
	}

	return model.Booking{
		ID:            uuid.NewString(),
		BookingID:     bookingID,
		UserID:        customer.UserID,
		BookingType:   c.BookingType,
		ItemID:        c.ItemID,
		ItemName:      c.ItemName,
		ItemType:      c.ItemType,
		ItemPrice:     c.ItemPrice,
		StartDate:     start,
		EndDate:       end,
		Quantity:      quantity,
		TotalAmount:   c.TotalAmount,
		BookingStatus: model.StatusPending,
		PaymentMethod: c.PaymentMethod,
		PaymentStatus: model.PaymentPending,
		CustomerName:  customer.Name,
		CustomerEmail: customer.Email,
		CustomerPhone: customer.Phone,
		Metadata:      gModel.NewMetadata(customer.UserID),
	}
}

type UpdatePaymentRequest struct {
	BookingID     string `json:"bookingId"     validate:"required,max=100"`
	PaymentStatus string `json:"paymentStatus" validate:"required,oneof=pending paid failed refunded"`
	PaymentSlip   string `json:"paymentSlip"   validate:"omitempty,url,max=500"`
	PaymentID     string `json:"paymentId"     validate:"omitempty,max=100"`
}

type VerifyPaymentRequest struct {
	AdminNotes string `json:"adminNotes" validate:"omitempty,max=1000"`
}

// PaymentSlip is an uploaded file already read from the multipart form.
type PaymentSlip struct {
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}

type UploadSlipResponse struct {
	Message     string `json:"message"`
	PaymentSlip string `json:"paymentSlip"`
}

type CustomerDetails struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type BookingResponse struct {
	ID               string          `json:"id"`
	BookingID        string          `json:"bookingId"`
	UserID           string          `json:"userId"`
	BookingType      string          `json:"bookingType"`
	ItemID           string          `json:"itemId"`
	ItemName         string          `json:"itemName"`
	ItemType         string          `json:"itemType"`
	ItemPrice        float64         `json:"itemPrice"`
	StartDate        string          `json:"startDate,omitempty"`
	EndDate          string          `json:"endDate,omitempty"`
	Quantity         int             `json:"quantity"`
	TotalAmount      float64         `json:"totalAmount"`
	BookingStatus    string          `json:"bookingStatus"`
	PaymentMethod    string          `json:"paymentMethod"`
	PaymentStatus    string          `json:"paymentStatus"`
	PaymentSlip      string          `json:"paymentSlip,omitempty"`
	PaymentID        string          `json:"paymentId,omitempty"`
	CustomerDetails  CustomerDetails `json:"customerDetails"`
	AdminNotes       string          `json:"adminNotes,omitempty"`
	NotificationSent bool            `json:"notificationSent"`
	gDto.Metadata
}

func formatDate(t *time.Time) string {
	if t == nil {
		return constant.Empty
	}

	return timezone.CalendarDay(*t)
}

func (r *BookingResponse) FromModel(model model.Booking) {
	r.ID = model.ID
	r.BookingID = model.BookingID
	r.UserID = model.UserID
	r.BookingType = model.BookingType
	r.ItemID = model.ItemID
	r.ItemName = model.ItemName
	r.ItemType = model.ItemType
	r.ItemPrice = model.ItemPrice
	r.StartDate = formatDate(model.StartDate)
	r.EndDate = formatDate(model.EndDate)
	r.Quantity = model.Quantity
	r.TotalAmount = model.TotalAmount
	r.BookingStatus = model.BookingStatus
	r.PaymentMethod = model.PaymentMethod
	r.PaymentStatus = model.PaymentStatus
	r.PaymentSlip = model.PaymentSlip
	r.PaymentID = model.PaymentID
	r.CustomerDetails = CustomerDetails{
		Name:  model.CustomerName,
		Email: model.CustomerEmail,
		Phone: model.CustomerPhone,
	}
	r.AdminNotes = model.AdminNotes
	r.NotificationSent = model.NotificationSent
	r.Metadata.FromModel(model.Metadata)
}

type CreateBookingResponse struct {
	Message string          `json:"message"`
	Booking BookingResponse `json:"booking"`
}

type GetBookingsResponse struct {
	Bookings  []BookingResponse `json:"bookings"`
	TotalPage int               `json:"total_page"`
	TotalData int               `json:"total_data"`
}

func (r *GetBookingsResponse) FromModels(models []model.Booking, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Bookings = make([]BookingResponse, len(models))
	for i, mod := range models {
		r.Bookings[i].FromModel(mod)
	}
}
