// internal/handlers/product.go
package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/farmchain/internal/i18n"
	"github.com/javajoker/farmchain/internal/registry"
	"github.com/javajoker/farmchain/internal/services"
	"github.com/javajoker/farmchain/internal/utils"
)

type ProductHandler struct {
	productService *services.ProductService
}

func NewProductHandler(productService *services.ProductService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
	}
}

// GET /products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	products := h.productService.ListProducts()
	utils.SuccessResponseWithMeta(c, services.NewProductViews(products), gin.H{
		"count": len(products),
	})
}

// POST /products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	owner, exists := utils.GetUserIDFromContext(c)
	if !exists || owner == "" {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	// Create product
	product, err := h.productService.CreateProduct(registry.Identity(owner), &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNameTooLarge):
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyProductNameTooLarge, h.productService.MaxNameBytes()), nil)
		case errors.Is(err, services.ErrInvalidName):
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "name_base64"), err.Error())
		case errors.Is(err, registry.ErrCounterOverflow):
			utils.ConflictResponse(c, "COUNTER_OVERFLOW", i18n.T(lang, i18n.KeyProductIDsExhausted))
		case errors.Is(err, services.ErrMissingOwner):
			utils.UnauthorizedResponse(c, "")
		default:
			utils.InternalErrorResponse(c, i18n.T(lang, i18n.KeyProductCreateFailed))
		}
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductCreated),
		"product": services.NewProductView(product),
	})
}

// GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := parseProductID(c)
	if !ok {
		return
	}

	product, err := h.productService.GetProduct(id)
	if err != nil {
		utils.NotFoundResponse(c, i18n.KeyProductNotFound)
		return
	}

	utils.SuccessResponse(c, services.NewProductView(product))
}

// POST /products/export
func (h *ProductHandler) ExportProducts(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	result, err := h.productService.ExportSnapshot(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Error("Failed to export registry snapshot")
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductExported),
		"export":  result,
	})
}

// parseProductID reads the :id path parameter as a decimal uint64.
func parseProductID(c *gin.Context) (registry.ProductID, bool) {
	lang := utils.GetLangFromContext(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyProductInvalidID), nil)
		return 0, false
	}
	return registry.ProductID(id), true
}
