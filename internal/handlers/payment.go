// internal/handlers/payment.go
package handlers

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/farmchain/internal/i18n"
	"github.com/javajoker/farmchain/internal/registry"
	"github.com/javajoker/farmchain/internal/services"
	"github.com/javajoker/farmchain/internal/utils"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// POST /products/:id/payment-intent
func (h *PaymentHandler) CreatePaymentIntent(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	buyer, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	productID, ok := parseProductID(c)
	if !ok {
		return
	}

	// The body is optional; an empty one charges in the default currency.
	var req services.CreatePaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	intent, err := h.paymentService.CreateProductPaymentIntent(registry.Identity(buyer), productID, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPaymentsDisabled):
			utils.ServiceUnavailableResponse(c, i18n.T(lang, i18n.KeyPaymentDisabled))
		case errors.Is(err, services.ErrProductNotFound):
			utils.NotFoundResponse(c, i18n.KeyProductNotFound)
		case errors.Is(err, services.ErrAmountOutOfRange):
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyPaymentInvalidAmount), nil)
		default:
			utils.InternalErrorResponse(c, err.Error())
		}
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPaymentIntentCreated),
		"intent":  intent,
	})
}
