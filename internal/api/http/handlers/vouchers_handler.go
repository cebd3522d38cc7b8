package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/loyalty-service/internal/api/dto"
	"github.com/spec-kit/loyalty-service/internal/service"
	apperrors "github.com/spec-kit/loyalty-service/pkg/util"
)

// VouchersHandler exposes staff login and voucher lookup.
type VouchersHandler struct {
	lookup *service.LookupService
}

// NewVouchersHandler constructs handler.
func NewVouchersHandler(lookup *service.LookupService) *VouchersHandler {
	return &VouchersHandler{lookup: lookup}
}

// Login handles POST /staff/login.
func (h *VouchersHandler) Login(c *fiber.Ctx) error {
	var req dto.StaffLoginRequest
	if err := c.BodyParser(&req); err != nil || req.Password == "" {
		return apperrors.NewValidationError("password required", nil)
	}

	token, exp, err := h.lookup.LoginStaff(c.UserContext(), req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{Token: token, ExpiresAt: exp}})
}

// Lookup handles GET /vouchers/:code.
func (h *VouchersHandler) Lookup(c *fiber.Ctx) error {
	holder, err := h.lookup.Lookup(c.UserContext(), c.Params("code"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(fiber.Map{"data": holder})
}
