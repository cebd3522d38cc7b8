package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/loyalty-service/internal/api/dto"
	"github.com/spec-kit/loyalty-service/internal/service"
	apperrors "github.com/spec-kit/loyalty-service/pkg/util"
)

// CustomersHandler exposes signup and ad-hoc notification endpoints.
type CustomersHandler struct {
	signup        *service.SignupService
	notifications *service.NotificationService
}

// NewCustomersHandler constructs handler.
func NewCustomersHandler(signup *service.SignupService, notifications *service.NotificationService) *CustomersHandler {
	return &CustomersHandler{signup: signup, notifications: notifications}
}

// Signup handles POST /signup.
func (h *CustomersHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Name == "" || req.Email == "" || req.PhoneNumber == "" || req.BirthDay == 0 || req.BirthMonth == 0 {
		return apperrors.NewValidationError("missing required fields", nil)
	}

	result, err := h.signup.Signup(c.UserContext(), service.SignupInput{
		Name:        req.Name,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		BirthDay:    req.BirthDay,
		BirthMonth:  req.BirthMonth,
	})
	if err != nil {
		return mapServiceError(err)
	}

	return c.Status(http.StatusCreated).JSON(dto.SignupResponse{
		Status:      "success",
		CustomerID:  result.Customer.ID,
		VoucherCode: result.Customer.VoucherCode.String(),
		Email:       result.EmailSuccess,
		SMS:         result.SMSSuccess,
	})
}

// BirthdayWebhook handles POST /birthday-webhook.
func (h *CustomersHandler) BirthdayWebhook(c *fiber.Ctx) error {
	var req dto.BirthdayWebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("no JSON received", nil)
	}

	result, err := h.notifications.SendAdHoc(c.UserContext(), service.AdHocInput{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		VoucherCode:  req.VoucherCode,
		TemplateType: req.TemplateType,
	})
	if err != nil {
		return err
	}

	return c.JSON(dto.DeliveryResponse{
		Status: "success",
		Email:  result.Email.Success,
		SMS:    result.SMS.Success,
	})
}
