package dto

import (
	roomDto "lodge/internal/domains/room/model/dto"
	"lodge/internal/domains/user/model"
)

const (
	MsgHoldPlaced    = "Room selected. Proceed to payment."
	MsgHoldConfirmed = "Room booking confirmed successfully"
	MsgHoldCancelled = "Room booking cancelled, room is available again"
)

// PlaceHoldRequest is checked by the service so each missing piece gets its own message.
type PlaceHoldRequest struct {
	CheckInDate    string `json:"checkInDate"`
	CheckOutDate   string `json:"checkOutDate"`
	NumberOfGuests int    `json:"numberOfGuests"`
}

type ConfirmHoldRequest struct {
	RoomKey      string `json:"roomKey"      validate:"required"`
	CheckInDate  string `json:"checkInDate"  validate:"required,staydate"`
	CheckOutDate string `json:"checkOutDate" validate:"required,staydate"`
	BookingID    string `json:"bookingId"    validate:"omitempty,max=100"`
	PaymentID    string `json:"paymentId"    validate:"omitempty,max=100"`
}

type CancelHoldRequest struct {
	RoomKey      string `json:"roomKey"      validate:"required"`
	CheckInDate  string `json:"checkInDate"  validate:"required,staydate"`
	CheckOutDate string `json:"checkOutDate" validate:"required,staydate"`
}

// SearchRequest comes from the query string; facilities is a comma separated list.
type SearchRequest struct {
	CheckIn    string   `json:"checkIn"`
	CheckOut   string   `json:"checkOut"`
	HotelName  string   `json:"hotelName"  validate:"omitempty,max=150"`
	RoomType   string   `json:"roomType"   validate:"omitempty,oneof=Single Double Triple Quad Suite Deluxe"`
	Facilities []string `json:"facilities"`
}

// BookingDetails is what the client hands to checkout; it is not a stored booking.
type BookingDetails struct {
	RoomKey         string             `json:"roomKey"`
	HotelName       string             `json:"hotelName"`
	RoomType        string             `json:"roomType"`
	RoomNumber      string             `json:"roomNumber"`
	CheckInDate     string             `json:"checkInDate"`
	CheckOutDate    string             `json:"checkOutDate"`
	NumberOfNights  int                `json:"numberOfNights"`
	NumberOfGuests  int                `json:"numberOfGuests"`
	PricePerNight   float64            `json:"pricePerNight"`
	TotalAmount     float64            `json:"totalAmount"`
	Facilities      roomDto.Facilities `json:"facilities"`
	CustomerDetails model.Contact      `json:"customerDetails"`
}

type PlaceHoldResponse struct {
	Message        string         `json:"message"`
	BookingDetails BookingDetails `json:"bookingDetails"`
}
