// internal/services/payment_service.go
package services

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"

	"github.com/javajoker/farmchain/internal/config"
	"github.com/javajoker/farmchain/internal/registry"
	"github.com/javajoker/farmchain/internal/utils"
)

var (
	ErrPaymentsDisabled = errors.New("payments are not configured")
	ErrAmountOutOfRange = errors.New("product price cannot be charged")
)

// PaymentIntentCreator is the subset of the Stripe payment intent client we use.
type PaymentIntentCreator interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type PaymentService struct {
	productService *ProductService
	intents        PaymentIntentCreator
	currency       string
}

type CreatePaymentIntentRequest struct {
	Currency string `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
}

type PaymentIntentResponse struct {
	ClientSecret string `json:"client_secret"`
	PaymentID    string `json:"payment_id"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	ProductID    uint64 `json:"product_id"`
}

func NewPaymentService(productService *ProductService, cfg *config.Config) *PaymentService {
	service := &PaymentService{
		productService: productService,
		currency:       cfg.Payment.Currency,
	}

	if cfg.Payment.StripeSecretKey != "" {
		service.intents = &paymentintent.Client{
			B:   stripe.GetBackend(stripe.APIBackend),
			Key: cfg.Payment.StripeSecretKey,
		}
	}

	return service
}

// NewPaymentServiceWithCreator wires a custom payment intent client.
func NewPaymentServiceWithCreator(productService *ProductService, intents PaymentIntentCreator, currency string) *PaymentService {
	return &PaymentService{
		productService: productService,
		intents:        intents,
		currency:       currency,
	}
}

func (s *PaymentService) Enabled() bool {
	return s.intents != nil
}

// CreateProductPaymentIntent opens a Stripe payment intent for the listed
// price of a product. Prices are in the currency's minor unit.
func (s *PaymentService) CreateProductPaymentIntent(buyer registry.Identity, productID registry.ProductID, req *CreatePaymentIntentRequest) (*PaymentIntentResponse, error) {
	if !s.Enabled() {
		return nil, ErrPaymentsDisabled
	}
	if buyer == "" {
		return nil, ErrMissingOwner
	}

	product, err := s.productService.GetProduct(productID)
	if err != nil {
		return nil, err
	}

	if product.Price == 0 || product.Price > math.MaxInt64 {
		return nil, fmt.Errorf("%w: %d", ErrAmountOutOfRange, product.Price)
	}

	currency := s.currency
	if req != nil {
		if err := utils.ValidateStruct(req); err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}
		if req.Currency != "" {
			currency = strings.ToLower(req.Currency)
		}
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(product.Price)),
		Currency: stripe.String(currency),
	}
	params.AddMetadata("product_id", strconv.FormatUint(uint64(product.ID), 10))
	params.AddMetadata("owner", string(product.Owner))
	params.AddMetadata("buyer_id", string(buyer))

	pi, err := s.intents.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"payment_id": pi.ID,
		"product_id": product.ID,
		"buyer_id":   buyer,
		"amount":     product.Price,
	}).Info("Payment intent created")

	return &PaymentIntentResponse{
		ClientSecret: pi.ClientSecret,
		PaymentID:    pi.ID,
		Status:       string(pi.Status),
		Amount:       int64(product.Price),
		Currency:     currency,
		ProductID:    uint64(product.ID),
	}, nil
}
