package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=./mocks/service_mock.go -package=mocks

import (
	"context"
	"errors"
	"lodge/infras/otel"
	bookingModel "lodge/internal/domains/booking/model"
	bookingDto "lodge/internal/domains/booking/model/dto"
	bookingService "lodge/internal/domains/booking/service"
	"lodge/internal/domains/payment/model/dto"
	reservationDto "lodge/internal/domains/reservation/model/dto"
	reservationService "lodge/internal/domains/reservation/service"
	"lodge/shared/constant"
	"lodge/shared/failure"

	"github.com/rs/zerolog/log"
)

const (
	msgTargetRequired = "Either roomKey or bookingId is required"
	msgDatesRequired  = "checkInDate and checkOutDate are required with roomKey"
	msgUnknownStatus  = "status must be one of success failed"
)

// Payment translates a settled payment into hold and booking transitions.
type Payment interface {
	Callback(ctx context.Context, req dto.CallbackRequest) (dto.CallbackResponse, error)
}

type serviceImpl struct {
	reservations reservationService.Reservation
	bookings     bookingService.Booking
	otel         otel.Otel
}

func New(reservations reservationService.Reservation, bookings bookingService.Booking, otel otel.Otel) Payment {
	return &serviceImpl{
		reservations: reservations,
		bookings:     bookings,
		otel:         otel,
	}
}

// asSystem drops the caller's user id so every write made by the callback is attributed to the system actor.
func asSystem(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, constant.ContextKeyUserID, constant.Empty)

	return context.WithValue(ctx, constant.ContextKeyUserRole, constant.RoleSystem)
}

type step struct {
	name string
	run  func(ctx context.Context) error
}

func (s *serviceImpl) plan(req dto.CallbackRequest) []step {
	var steps []step

	if req.Status == dto.StatusSuccess {
		if req.RoomKey != constant.Empty {
			steps = append(steps, step{dto.StepConfirmHold, func(ctx context.Context) error {
				return s.reservations.ConfirmHold(ctx, reservationDto.ConfirmHoldRequest{ //nolint:wrapcheck
					RoomKey:      req.RoomKey,
					CheckInDate:  req.CheckInDate,
					CheckOutDate: req.CheckOutDate,
					BookingID:    req.BookingID,
					PaymentID:    req.PaymentID,
				})
			}})
		}

		if req.BookingID != constant.Empty {
			steps = append(steps, step{dto.StepUpdatePayment, func(ctx context.Context) error {
				return s.bookings.UpdatePayment(ctx, bookingDto.UpdatePaymentRequest{ //nolint:wrapcheck
					BookingID:     req.BookingID,
					PaymentStatus: bookingModel.PaymentPaid,
					PaymentID:     req.PaymentID,
				})
			}})
		}

		return steps
	}

	if req.RoomKey != constant.Empty {
		steps = append(steps, step{dto.StepCancelHold, func(ctx context.Context) error {
			return s.reservations.CancelHold(ctx, reservationDto.CancelHoldRequest{ //nolint:wrapcheck
				RoomKey:      req.RoomKey,
				CheckInDate:  req.CheckInDate,
				CheckOutDate: req.CheckOutDate,
			})
		}})
	}

	if req.BookingID != constant.Empty {
		steps = append(steps,
			step{dto.StepUpdatePayment, func(ctx context.Context) error {
				return s.bookings.UpdatePayment(ctx, bookingDto.UpdatePaymentRequest{ //nolint:wrapcheck
					BookingID:     req.BookingID,
					PaymentStatus: bookingModel.PaymentFailed,
					PaymentID:     req.PaymentID,
				})
			}},
			step{dto.StepCancelBooking, func(ctx context.Context) error {
				err := s.bookings.Cancel(ctx, req.BookingID)
				if errors.Is(err, failure.ErrBookingAlreadyCancelled) {
					return nil
				}

				return err //nolint:wrapcheck
			}},
		)
	}

	return steps
}

// Callback runs its steps in order and stops at the first failure. Steps already applied stay applied.
func (s *serviceImpl) Callback(ctx context.Context, req dto.CallbackRequest) (res dto.CallbackResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".payment.Callback")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if req.Status != dto.StatusSuccess && req.Status != dto.StatusFailed {
		return res, failure.BadRequestFromString(msgUnknownStatus) // nolint:wrapcheck
	}

	if req.RoomKey == constant.Empty && req.BookingID == constant.Empty {
		return res, failure.BadRequestFromString(msgTargetRequired) // nolint:wrapcheck
	}

	if req.RoomKey != constant.Empty && (req.CheckInDate == constant.Empty || req.CheckOutDate == constant.Empty) {
		return res, failure.BadRequestFromString(msgDatesRequired) // nolint:wrapcheck
	}

	ctx = asSystem(ctx)

	res.Status = req.Status
	res.Steps = []string{}

	for _, st := range s.plan(req) {
		if err = st.run(ctx); err != nil {
			log.Error().
				Err(err).
				Str("step", st.name).
				Strs("applied", res.Steps).
				Str("roomKey", req.RoomKey).
				Str("bookingId", req.BookingID).
				Msg("payment callback stopped")

			return res, err
		}

		res.Steps = append(res.Steps, st.name)
	}

	res.Message = dto.MsgCallbackProcessed

	log.Info().Strs("steps", res.Steps).Str("status", req.Status).Msg("payment callback processed")

	return res, nil
}
