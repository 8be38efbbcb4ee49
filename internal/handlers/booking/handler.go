package booking

import (
	"net/http"

	"lodge/infras/otel"
	"lodge/internal/domains/booking/model/dto"
	"lodge/internal/domains/booking/service"
	"lodge/shared/constant"
	gDto "lodge/shared/dto"
	"lodge/shared/failure"
	"lodge/shared/validator"
	"lodge/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	service service.Booking
	otel    otel.Otel
}

func New(service service.Booking, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/bookings", func(routerGroup chi.Router) {
		routerGroup.Post("/", handler.CreateBooking)
		routerGroup.Get("/user/my-bookings", handler.GetMyBookings)
		routerGroup.Put("/payment/update", handler.UpdatePayment)

		routerGroup.Route("/admin", func(admin chi.Router) {
			admin.Get("/all-bookings", handler.GetAllBookings)
			admin.Get("/status/{status}", handler.GetBookingsByStatus)
			admin.Put("/{bookingId}/verify", handler.VerifyPayment)
		})

		routerGroup.Get("/{bookingId}", handler.GetBookingByID)
		routerGroup.Put("/{bookingId}/cancel", handler.CancelBooking)
		routerGroup.Post("/{bookingId}/payment-slip", handler.UploadPaymentSlip)
	})
}

// CreateBooking handles the creation of a new booking record.
// @Summary Create a booking
// @Description Create a pending booking. The customer snapshot is taken from the caller's account.
// @Tags Booking
// @Accept json
// @Produce json
// @Param request body dto.CreateBookingRequest true "Create Booking Request"
// @Success 201 {object} dto.CreateBookingResponse "Booking created successfully"
// @Failure 400 {object} response.Error
// @Failure 401 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings [post]
// @Security BearerAuth
func (handler *Handler) CreateBooking(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateBooking")
	defer scope.End()

	req := dto.CreateBookingRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	booking, err := handler.service.Create(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to create booking")

		response.WithError(writer, err)

		return
	}

	scope.AddEvent("Booking " + booking.BookingID + " created")

	response.WithJSON(writer, http.StatusCreated, dto.CreateBookingResponse{
		Message: dto.MsgBookingCreated,
		Booking: booking,
	})
}

// GetMyBookings lists the caller's bookings, newest first.
// @Summary Get my bookings
// @Tags Booking
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Limit"
// @Success 200 {object} dto.GetBookingsResponse "List of bookings"
// @Failure 401 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/user/my-bookings [get]
// @Security BearerAuth
func (handler *Handler) GetMyBookings(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetMyBookings")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	bookings, err := handler.service.ListMine(ctx, queryParams)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get user bookings")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, bookings)
}

// GetAllBookings lists every booking, newest first.
// @Summary Get all bookings @Admin
// @Tags Booking
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Limit"
// @Success 200 {object} dto.GetBookingsResponse "List of bookings"
// @Failure 403 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/admin/all-bookings [get]
// @Security BearerAuth
func (handler *Handler) GetAllBookings(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetAllBookings")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	bookings, err := handler.service.GetAll(ctx, queryParams)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get bookings")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, bookings)
}

// GetBookingsByStatus lists bookings with the given payment status.
// @Summary Get bookings by payment status @Admin
// @Tags Booking
// @Produce json
// @Param status path string true "Payment status" Enums(pending, paid, failed, refunded)
// @Success 200 {object} dto.GetBookingsResponse "List of bookings"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/admin/status/{status} [get]
// @Security BearerAuth
func (handler *Handler) GetBookingsByStatus(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetBookingsByStatus")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	bookings, err := handler.service.ListByPaymentStatus(ctx, chi.URLParam(r, constant.RequestParamStatus), queryParams)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get bookings by status")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, bookings)
}

// GetBookingByID retrieves a booking by its booking id.
// @Summary Get a booking
// @Tags Booking
// @Produce json
// @Param bookingId path string true "Booking ID"
// @Success 200 {object} dto.BookingResponse "Booking details"
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/{bookingId} [get]
func (handler *Handler) GetBookingByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetBookingByID")
	defer scope.End()

	booking, err := handler.service.Get(ctx, chi.URLParam(r, constant.RequestParamBookingID))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get booking")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, booking)
}

// CancelBooking cancels a booking owned by the caller.
// @Summary Cancel a booking
// @Tags Booking
// @Produce json
// @Param bookingId path string true "Booking ID"
// @Success 200 {object} response.Message "Booking cancelled successfully"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/{bookingId}/cancel [put]
// @Security BearerAuth
func (handler *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CancelBooking")
	defer scope.End()

	bookingID := chi.URLParam(r, constant.RequestParamBookingID)

	if err := handler.service.Cancel(ctx, bookingID); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("bookingId", bookingID).Msg("failed to cancel booking")

		response.WithError(w, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Booking " + bookingID + " cancelled by user " + user)

	response.WithMessage(w, http.StatusOK, dto.MsgBookingCancelled)
}

// UpdatePayment records a payment outcome on a booking.
// @Summary Update payment status
// @Tags Booking
// @Accept json
// @Produce json
// @Param request body dto.UpdatePaymentRequest true "Update Payment Request"
// @Success 200 {object} response.Message "Payment status updated successfully"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/payment/update [put]
// @Security BearerAuth
func (handler *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpdatePayment")
	defer scope.End()

	req := dto.UpdatePaymentRequest{}
	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	if err := handler.service.UpdatePayment(ctx, req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("bookingId", req.BookingID).Msg("failed to update payment")

		response.WithError(w, err)

		return
	}

	response.WithMessage(w, http.StatusOK, dto.MsgPaymentUpdated)
}

// VerifyPayment marks a booking paid and confirmed after an admin checked the evidence.
// @Summary Verify payment @Admin
// @Tags Booking
// @Accept json
// @Produce json
// @Param bookingId path string true "Booking ID"
// @Param request body dto.VerifyPaymentRequest false "Verify Payment Request"
// @Success 200 {object} response.Message "Payment verified successfully"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/admin/{bookingId}/verify [put]
// @Security BearerAuth
func (handler *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".VerifyPayment")
	defer scope.End()

	req := dto.VerifyPaymentRequest{}

	// the body is optional
	if r.ContentLength != 0 {
		if err := validator.Validate(r.Body, &req); err != nil {
			scope.TraceError(err)
			log.Error().Err(err).Msg("failed to validate request body")

			response.WithError(w, err)

			return
		}
	}

	bookingID := chi.URLParam(r, constant.RequestParamBookingID)

	if err := handler.service.Verify(ctx, bookingID, req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("bookingId", bookingID).Msg("failed to verify payment")

		response.WithError(w, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Payment for " + bookingID + " verified by user " + user)

	response.WithMessage(w, http.StatusOK, dto.MsgPaymentVerified)
}

// UploadPaymentSlip stores a bank deposit slip for the caller's booking.
// @Summary Upload a payment slip
// @Tags Booking
// @Accept multipart/form-data
// @Produce json
// @Param bookingId path string true "Booking ID"
// @Param file formData file true "PNG, JPG, JPEG or PDF, at most 5MB"
// @Success 200 {object} dto.UploadSlipResponse "Payment slip uploaded successfully"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/{bookingId}/payment-slip [post]
// @Security BearerAuth
func (handler *Handler) UploadPaymentSlip(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UploadPaymentSlip")
	defer scope.End()

	if err := r.ParseMultipartForm(constant.RequestMaxMemory); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to parse multipart form")

		response.WithError(w, failure.BadRequest(err))

		return
	}

	file, fileHeader, err := r.FormFile(constant.FormFile)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get file from form")

		response.WithError(w, failure.BadRequest(err))

		return
	}
	defer file.Close()

	slip := dto.PaymentSlip{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get(constant.RequestHeaderContentType),
		Size:        fileHeader.Size,
		Content:     file,
	}

	bookingID := chi.URLParam(r, constant.RequestParamBookingID)

	url, err := handler.service.UploadPaymentSlip(ctx, bookingID, slip)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("bookingId", bookingID).Msg("failed to upload payment slip")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, dto.UploadSlipResponse{
		Message:     dto.MsgSlipUploaded,
		PaymentSlip: url,
	})
}
