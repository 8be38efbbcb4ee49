package model

import (
	"lodge/shared/model"
	"time"

	"github.com/lib/pq"
)

const (
	TableName  = "rooms"
	EntityName = "room"

	FieldID           = "id"
	FieldKey          = "key"
	FieldHotelName    = "hotel_name"
	FieldRoomType     = "room_type"
	FieldRoomNumber   = "room_number"
	FieldPrice        = "price"
	FieldCapacity     = "capacity"
	FieldAvailability = "availability"
	FieldStatus       = "status"
	FieldVersion      = "version"
)

const (
	LedgerTableName  = "room_booked_dates"
	LedgerEntityName = "room_booked_date"

	LedgerFieldID        = "id"
	LedgerFieldSeq       = "seq"
	LedgerFieldRoomID    = "room_id"
	LedgerFieldStatus    = "status"
	LedgerFieldBookingID = "booking_id"
	LedgerFieldPaymentID = "payment_id"
)

const (
	RoomTypeSingle = "Single"
	RoomTypeDouble = "Double"
	RoomTypeTriple = "Triple"
	RoomTypeQuad   = "Quad"
	RoomTypeSuite  = "Suite"
	RoomTypeDeluxe = "Deluxe"
)

const (
	StatusAvailable   = "Available"
	StatusBooked      = "Booked"
	StatusMaintenance = "Maintenance"
	StatusUnavailable = "Unavailable"
)

const (
	EntryPending   = "pending"
	EntryConfirmed = "confirmed"
	EntryCancelled = "cancelled"
)

// Facility columns keyed by the name clients use in search filters.
var FacilityColumns = map[string]string{
	"ac":       "ac",
	"wifi":     "wifi",
	"parking":  "parking",
	"tv":       "tv",
	"hotWater": "hot_water",
	"miniBar":  "mini_bar",
}

type Facilities struct {
	AC       bool `db:"ac"`
	Wifi     bool `db:"wifi"`
	Parking  bool `db:"parking"`
	TV       bool `db:"tv"`
	HotWater bool `db:"hot_water"`
	MiniBar  bool `db:"mini_bar"`
}

// Room carries availability and status as a summary of its ledger, the rows in room_booked_dates.
type Room struct {
	ID          string         `db:"id"`
	Key         string         `db:"key"`
	HotelName   string         `db:"hotel_name"`
	RoomType    string         `db:"room_type"`
	RoomNumber  string         `db:"room_number"`
	Price       float64        `db:"price"`
	Capacity    int            `db:"capacity"`
	Description string         `db:"description"`
	Images      pq.StringArray `db:"images"`
	Facilities
	Availability bool   `db:"availability"`
	Status       string `db:"status"`
	Version      int64  `db:"version"`
	model.Metadata
}

// MarkBooked and MarkAvailable only reflect the latest ledger transition.
func (r *Room) MarkBooked() {
	r.Status = StatusBooked
	r.Availability = false
}

func (r *Room) MarkAvailable() {
	r.Status = StatusAvailable
	r.Availability = true
}

// BookedDate is one [StartDate, EndDate) reservation in a room's ledger.
type BookedDate struct {
	ID        string    `db:"id"`
	Seq       int64     `db:"seq" readonly:"true"`
	RoomID    string    `db:"room_id"`
	StartDate time.Time `db:"start_date"`
	EndDate   time.Time `db:"end_date"`
	Status    string    `db:"status"`
	BookingID *string   `db:"booking_id"`
	PaymentID *string   `db:"payment_id"`
	model.Metadata
}

func (b BookedDate) Active() bool {
	return b.Status == EntryPending || b.Status == EntryConfirmed
}
