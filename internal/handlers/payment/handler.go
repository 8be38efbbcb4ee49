package payment

import (
	"net/http"

	"lodge/infras/otel"
	"lodge/internal/domains/payment/model/dto"
	"lodge/internal/domains/payment/service"
	"lodge/shared/constant"
	"lodge/shared/validator"
	"lodge/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	service service.Payment
	otel    otel.Otel
}

func New(service service.Payment, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/payments", func(routerGroup chi.Router) {
		routerGroup.Post("/callback", handler.Callback)
	})
}

// Callback applies a settled payment to the room hold and the booking record.
// @Summary Payment callback
// @Description Called by the payment subsystem with its API key. Steps already applied are not rolled back when a later one fails.
// @Tags Payment
// @Accept json
// @Produce json
// @Param request body dto.CallbackRequest true "Payment Callback Request"
// @Success 200 {object} dto.CallbackResponse "Callback processed"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/payments/callback [post]
// @Security ApiKeyAuth
func (handler *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".PaymentCallback")
	defer scope.End()

	req := dto.CallbackRequest{}
	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	res, err := handler.service.Callback(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Strs("applied", res.Steps).Msg("failed to process payment callback")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Payment callback processed with status " + req.Status)

	response.WithJSON(w, http.StatusOK, res)
}
