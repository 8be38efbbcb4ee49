package room

import (
	"net/http"
	"strings"

	"lodge/infras/otel"
	reservationDto "lodge/internal/domains/reservation/model/dto"
	reservationService "lodge/internal/domains/reservation/service"
	"lodge/internal/domains/room/model"
	"lodge/internal/domains/room/model/dto"
	"lodge/internal/domains/room/service"
	"lodge/shared/constant"
	gDto "lodge/shared/dto"
	"lodge/shared/validator"
	"lodge/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const (
	queryCheckIn    = "checkIn"
	queryCheckOut   = "checkOut"
	queryHotelName  = "hotelName"
	queryRoomType   = "roomType"
	queryFacilities = "facilities"
)

type Handler struct {
	service      service.Room
	reservations reservationService.Reservation
	otel         otel.Otel
}

func New(service service.Room, reservations reservationService.Reservation, otel otel.Otel) Handler {
	return Handler{
		service:      service,
		reservations: reservations,
		otel:         otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/rooms", func(routerGroup chi.Router) {
		routerGroup.Get("/", handler.GetRooms)
		routerGroup.Post("/", handler.CreateRoom)
		routerGroup.Get("/search", handler.SearchRooms)
		routerGroup.Get("/hotel/{hotelName}", handler.GetRoomsByHotel)
		routerGroup.Post("/confirm-booking", handler.ConfirmBooking)
		routerGroup.Post("/cancel-booking", handler.CancelBooking)
		routerGroup.Get("/{key}", handler.GetRoomByKey)
		routerGroup.Put("/{key}", handler.UpdateRoom)
		routerGroup.Put("/{key}/availability", handler.UpdateAvailability)
		routerGroup.Delete("/{key}", handler.DeleteRoom)
		routerGroup.Post("/{key}/book", handler.BookRoom)
	})
}

// CreateRoom handles the creation of a new room.
// @Summary Create a new room @Admin
// @Description Create a room with an empty ledger. Availability defaults to true and status to Available.
// @Tags Room
// @Accept json
// @Produce json
// @Param request body dto.CreateRoomRequest true "Create Room Request"
// @Success 201 {object} response.Message "Room added successfully"
// @Failure 400 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms [post]
// @Security BearerAuth
func (handler *Handler) CreateRoom(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateRoom")
	defer scope.End()

	req := dto.CreateRoomRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	if err := handler.service.Create(ctx, req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to create room")

		response.WithError(writer, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Room created successfully by user " + user)

	response.WithMessage(writer, http.StatusCreated, "Room added successfully")
}

// GetRooms lists rooms. Admins see every room, everyone else only available ones.
// @Summary Get all rooms
// @Description Retrieve rooms with optional filtering and pagination.
// @Tags Room
// @Accept json
// @Produce json
// @Param hotelName query string false "Filter by hotel name"
// @Param roomType query string false "Filter by room type"
// @Param page query int false "Page"
// @Param limit query int false "Limit"
// @Success 200 {object} dto.GetRoomsResponse "List of rooms"
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms [get]
func (handler *Handler) GetRooms(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetRooms")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	filterGroup := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters:  []any{},
	}

	if hotelName := r.URL.Query().Get(queryHotelName); hotelName != constant.Empty {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldHotelName,
			Operator: gDto.FilterOperatorLike,
			Value:    hotelName,
			Table:    model.TableName,
		})
	}

	if roomType := r.URL.Query().Get(queryRoomType); roomType != constant.Empty {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldRoomType,
			Operator: gDto.FilterOperatorEq,
			Value:    roomType,
			Table:    model.TableName,
		})
	}

	rooms, err := handler.service.GetAll(ctx, queryParams, filterGroup)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get rooms")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Rooms retrieved successfully")

	response.WithJSON(w, http.StatusOK, rooms)
}

// SearchRooms lists available rooms with no active booking overlapping the requested stay.
// @Summary Search rooms by date
// @Tags Room
// @Produce json
// @Param checkIn query string true "Check-in date (YYYY-MM-DD)"
// @Param checkOut query string true "Check-out date (YYYY-MM-DD)"
// @Param hotelName query string false "Hotel name substring"
// @Param roomType query string false "Room type"
// @Param facilities query string false "Comma separated facilities, e.g. wifi,ac"
// @Success 200 {array} dto.RoomResponse "Free rooms"
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/search [get]
func (handler *Handler) SearchRooms(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".SearchRooms")
	defer scope.End()

	query := r.URL.Query()

	req := reservationDto.SearchRequest{
		CheckIn:    query.Get(queryCheckIn),
		CheckOut:   query.Get(queryCheckOut),
		HotelName:  query.Get(queryHotelName),
		RoomType:   query.Get(queryRoomType),
		Facilities: splitList(query.Get(queryFacilities)),
	}

	if err := validator.ValidateStruct(&req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate search query")

		response.WithError(w, err)

		return
	}

	rooms, err := handler.reservations.Search(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to search rooms")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Rooms searched successfully")

	response.WithJSON(w, http.StatusOK, rooms)
}

// GetRoomsByHotel lists available rooms whose hotel name contains the path value.
// @Summary Get rooms by hotel
// @Tags Room
// @Produce json
// @Param hotelName path string true "Hotel name substring"
// @Success 200 {object} dto.GetRoomsResponse "List of rooms"
// @Failure 500 {object} response.Error
// @Router /v1/rooms/hotel/{hotelName} [get]
func (handler *Handler) GetRoomsByHotel(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetRoomsByHotel")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	rooms, err := handler.service.GetByHotel(ctx, chi.URLParam(r, constant.RequestParamHotelName), queryParams)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get rooms by hotel")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, rooms)
}

// GetRoomByKey retrieves a room and its booked dates.
// @Summary Get a room by key
// @Tags Room
// @Produce json
// @Param key path string true "Room key"
// @Success 200 {object} dto.RoomResponse "Room details"
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/{key} [get]
func (handler *Handler) GetRoomByKey(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetRoomByKey")
	defer scope.End()

	room, err := handler.service.Get(ctx, chi.URLParam(r, constant.RequestParamKey))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get room by key")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Room retrieved successfully")

	response.WithJSON(w, http.StatusOK, room)
}

// UpdateRoom updates room fields. Booked dates cannot be changed here.
// @Summary Update a room @Admin
// @Tags Room
// @Accept json
// @Produce json
// @Param key path string true "Room key"
// @Param request body dto.UpdateRoomRequest true "Update Room Request"
// @Success 200 {object} response.Message "Room updated successfully"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/{key} [put]
// @Security BearerAuth
func (handler *Handler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpdateRoom")
	defer scope.End()

	req := dto.UpdateRoomRequest{}
	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	if err := handler.service.Update(ctx, req, chi.URLParam(r, constant.RequestParamKey)); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to update room")

		response.WithError(w, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Room updated successfully by user " + user)

	response.WithMessage(w, http.StatusOK, "Room updated successfully")
}

// UpdateAvailability sets the availability flag and/or status of a room.
// @Summary Update room availability @Admin
// @Tags Room
// @Accept json
// @Produce json
// @Param key path string true "Room key"
// @Param request body dto.UpdateAvailabilityRequest true "Update Availability Request"
// @Success 200 {object} response.Message "Room availability updated successfully"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/{key}/availability [put]
// @Security BearerAuth
func (handler *Handler) UpdateAvailability(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpdateAvailability")
	defer scope.End()

	req := dto.UpdateAvailabilityRequest{}
	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	if err := handler.service.UpdateAvailability(ctx, req, chi.URLParam(r, constant.RequestParamKey)); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to update room availability")

		response.WithError(w, err)

		return
	}

	response.WithMessage(w, http.StatusOK, "Room availability updated successfully")
}

// DeleteRoom deletes a room together with its booked dates.
// @Summary Delete a room @Admin
// @Tags Room
// @Produce json
// @Param key path string true "Room key"
// @Success 200 {object} response.Message "Room deleted successfully"
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/{key} [delete]
// @Security BearerAuth
func (handler *Handler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".DeleteRoom")
	defer scope.End()

	if err := handler.service.Delete(ctx, chi.URLParam(r, constant.RequestParamKey)); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to delete room")

		response.WithError(w, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Room deleted successfully by user " + user)

	response.WithMessage(w, http.StatusOK, "Room deleted successfully")
}

// BookRoom places a pending hold on the room for the caller.
// @Summary Place a hold on a room
// @Description Reserve the dates as pending and return the checkout payload.
// @Tags Room
// @Accept json
// @Produce json
// @Param key path string true "Room key"
// @Param request body reservationDto.PlaceHoldRequest true "Place Hold Request"
// @Success 200 {object} reservationDto.PlaceHoldResponse "Booking details"
// @Failure 400 {object} response.Error
// @Failure 401 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/{key}/book [post]
// @Security BearerAuth
func (handler *Handler) BookRoom(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".BookRoom")
	defer scope.End()

	req := reservationDto.PlaceHoldRequest{}
	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	res, err := handler.reservations.PlaceHold(ctx, chi.URLParam(r, constant.RequestParamKey), req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to place hold")

		response.WithError(w, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Hold placed by user " + user)

	response.WithJSON(w, http.StatusOK, res)
}

// ConfirmBooking turns a pending hold into a confirmed booking.
// @Summary Confirm a hold
// @Tags Room
// @Accept json
// @Produce json
// @Param request body reservationDto.ConfirmHoldRequest true "Confirm Hold Request"
// @Success 200 {object} response.Message "Room booking confirmed successfully"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/confirm-booking [post]
// @Security ApiKeyAuth
func (handler *Handler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".ConfirmBooking")
	defer scope.End()

	req := reservationDto.ConfirmHoldRequest{}
	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	if err := handler.reservations.ConfirmHold(ctx, req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to confirm hold")

		response.WithError(w, err)

		return
	}

	response.WithMessage(w, http.StatusOK, reservationDto.MsgHoldConfirmed)
}

// CancelBooking removes a pending hold and frees the room.
// @Summary Cancel a hold
// @Tags Room
// @Accept json
// @Produce json
// @Param request body reservationDto.CancelHoldRequest true "Cancel Hold Request"
// @Success 200 {object} response.Message "Room booking cancelled"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/cancel-booking [post]
// @Security ApiKeyAuth
func (handler *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CancelBooking")
	defer scope.End()

	req := reservationDto.CancelHoldRequest{}
	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	if err := handler.reservations.CancelHold(ctx, req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to cancel hold")

		response.WithError(w, err)

		return
	}

	response.WithMessage(w, http.StatusOK, reservationDto.MsgHoldCancelled)
}

func splitList(value string) []string {
	if value == constant.Empty {
		return nil
	}

	items := []string{}

	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != constant.Empty {
			items = append(items, item)
		}
	}

	return items
}
