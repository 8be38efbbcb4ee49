package dto

import (
	"lodge/internal/domains/room/model"
	"lodge/shared"
	"lodge/shared/constant"
	gDto "lodge/shared/dto"
	gModel "lodge/shared/model"
	"lodge/shared/timezone"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Facilities struct {
	AC       bool `json:"ac"`
	Wifi     bool `json:"wifi"`
	Parking  bool `json:"parking"`
	TV       bool `json:"tv"`
	HotWater bool `json:"hotWater"`
	MiniBar  bool `json:"miniBar"`
}

func (f Facilities) ToModel() model.Facilities {
	return model.Facilities{
		AC:       f.AC,
		Wifi:     f.Wifi,
		Parking:  f.Parking,
		TV:       f.TV,
		HotWater: f.HotWater,
		MiniBar:  f.MiniBar,
	}
}

func (f *Facilities) FromModel(m model.Facilities) {
	f.AC = m.AC
	f.Wifi = m.Wifi
	f.Parking = m.Parking
	f.TV = m.TV
	f.HotWater = m.HotWater
	f.MiniBar = m.MiniBar
}

type CreateRoomRequest struct {
	Key          string     `json:"key"          validate:"required,max=100"`
	HotelName    string     `json:"hotelName"    validate:"required,max=150"`
	RoomType     string     `json:"roomType"     validate:"required,oneof=Single Double Triple Quad Suite Deluxe"`
	RoomNumber   string     `json:"roomNumber"   validate:"required,max=20"`
	Price        *float64   `json:"price"        validate:"required,min=0"`
	Capacity     int        `json:"capacity"     validate:"required,min=1"`
	Description  string     `json:"description"  validate:"omitempty,max=2000"`
	Images       []string   `json:"images"       validate:"omitempty,dive,url"`
	Facilities   Facilities `json:"facilities"`
	Availability *bool      `json:"availability" validate:"omitempty"`
	Status       string     `json:"status"       validate:"omitempty,oneof=Available Booked Maintenance Unavailable"`
}

func (c *CreateRoomRequest) ToModel(user string) model.Room {
	availability := true
	if c.Availability != nil {
		availability = *c.Availability
	}

	status := model.StatusAvailable
	if c.Status != constant.Empty {
		status = c.Status
	}

	images := pq.StringArray{}
	if c.Images != nil {
		images = c.Images
	}

	return model.Room{
		ID:           uuid.NewString(),
		Key:          c.Key,
		HotelName:    c.HotelName,
		RoomType:     c.RoomType,
		RoomNumber:   c.RoomNumber,
		Price:        *c.Price,
		Capacity:     c.Capacity,
		Description:  c.Description,
		Images:       images,
		Facilities:   c.Facilities.ToModel(),
		Availability: availability,
		Status:       status,
		Version:      1,
		Metadata:     gModel.NewMetadata(user),
	}
}

// UpdateFacilities only touches the flags that were sent.
type UpdateFacilities struct {
	AC       *bool `db:"ac"        json:"ac"`
	Wifi     *bool `db:"wifi"      json:"wifi"`
	Parking  *bool `db:"parking"   json:"parking"`
	TV       *bool `db:"tv"        json:"tv"`
	HotWater *bool `db:"hot_water" json:"hotWater"`
	MiniBar  *bool `db:"mini_bar"  json:"miniBar"`
}

// UpdateRoomRequest never carries ledger fields; the ledger only changes through holds.
type UpdateRoomRequest struct {
	HotelName   string            `db:"hotel_name"  json:"hotelName"   validate:"omitempty,max=150"`
	RoomType    string            `db:"room_type"   json:"roomType"    validate:"omitempty,oneof=Single Double Triple Quad Suite Deluxe"`
	RoomNumber  string            `db:"room_number" json:"roomNumber"  validate:"omitempty,max=20"`
	Price       *float64          `db:"price"       json:"price"       validate:"omitempty,min=0"`
	Capacity    *int              `db:"capacity"    json:"capacity"    validate:"omitempty,min=1"`
	Description *string           `db:"description" json:"description" validate:"omitempty,max=2000"`
	Images      pq.StringArray    `db:"images"      json:"images"      validate:"omitempty,dive,url"`
	Facilities  *UpdateFacilities `db:"-"           json:"facilities"`
}

// Fields returns the columns to update, always including the audit columns.
func (u *UpdateRoomRequest) Fields(user string) map[string]any {
	fields := shared.TransformFields(*u, user)

	if u.Facilities != nil {
		for column, value := range shared.TransformFields(*u.Facilities, user) {
			fields[column] = value
		}
	}

	return fields
}

type UpdateAvailabilityRequest struct {
	Availability *bool   `db:"availability" json:"availability" validate:"omitempty"`
	Status       *string `db:"status"       json:"status"       validate:"omitempty,oneof=Available Booked Maintenance Unavailable"`
}

func (u *UpdateAvailabilityRequest) Empty() bool {
	return u.Availability == nil && u.Status == nil
}

type BookedDateResponse struct {
	StartDate string  `json:"startDate"`
	EndDate   string  `json:"endDate"`
	Status    string  `json:"status"`
	BookingID *string `json:"bookingId"`
	PaymentID *string `json:"paymentId"`
}

func (b *BookedDateResponse) FromModel(model model.BookedDate) {
	b.StartDate = timezone.Format(model.StartDate, constant.DateFormat)
	b.EndDate = timezone.Format(model.EndDate, constant.DateFormat)
	b.Status = model.Status
	b.BookingID = model.BookingID
	b.PaymentID = model.PaymentID
}

type RoomResponse struct {
	ID           string               `json:"id"`
	Key          string               `json:"key"`
	HotelName    string               `json:"hotelName"`
	RoomType     string               `json:"roomType"`
	RoomNumber   string               `json:"roomNumber"`
	Price        float64              `json:"price"`
	Capacity     int                  `json:"capacity"`
	Description  string               `json:"description"`
	Images       []string             `json:"images"`
	Facilities   Facilities           `json:"facilities"`
	Availability bool                 `json:"availability"`
	Status       string               `json:"status"`
	BookedDates  []BookedDateResponse `json:"bookedDates,omitempty"`
	gDto.Metadata
}

func (r *RoomResponse) FromModel(model model.Room) {
	r.ID = model.ID
	r.Key = model.Key
	r.HotelName = model.HotelName
	r.RoomType = model.RoomType
	r.RoomNumber = model.RoomNumber
	r.Price = model.Price
	r.Capacity = model.Capacity
	r.Description = model.Description
	r.Images = []string(model.Images)
	r.Facilities.FromModel(model.Facilities)
	r.Availability = model.Availability
	r.Status = model.Status
	r.Metadata.FromModel(model.Metadata)
}

func (r *RoomResponse) WithLedger(entries []model.BookedDate) {
	r.BookedDates = make([]BookedDateResponse, len(entries))
	for i, entry := range entries {
		r.BookedDates[i].FromModel(entry)
	}
}

type GetRoomsResponse struct {
	Rooms     []RoomResponse `json:"rooms"`
	TotalPage int            `json:"total_page"`
	TotalData int            `json:"total_data"`
}

func (r *GetRoomsResponse) FromModels(models []model.Room, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Rooms = make([]RoomResponse, len(models))
	for i, mod := range models {
		r.Rooms[i].FromModel(mod)
	}
}
