package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/clinic-crm/internal/api/dto"
	"github.com/spec-kit/clinic-crm/internal/auth"
	"github.com/spec-kit/clinic-crm/internal/service"
	apperrors "github.com/spec-kit/clinic-crm/pkg/util"
)

// PatientsHandler exposes the patient record endpoints.
type PatientsHandler struct {
	patients *service.PatientService
}

// NewPatientsHandler constructs handler.
func NewPatientsHandler(patientService *service.PatientService) *PatientsHandler {
	return &PatientsHandler{patients: patientService}
}

// List handles GET /patients.
func (h *PatientsHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)
	offset := c.QueryInt("offset", 0)

	patients, err := h.patients.List(c.Context(), limit, offset)
	if err != nil {
		return err
	}

	payload := make([]*dto.PatientPayload, 0, len(patients))
	for _, p := range patients {
		payload = append(payload, dto.NewPatientPayload(p))
	}
	return c.JSON(fiber.Map{"data": payload})
}

// Get handles GET /patients/:id.
func (h *PatientsHandler) Get(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}

	patient, err := h.patients.Get(c.Context(), claims, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPatientPayload(patient)})
}

// Update handles PUT /patients/:id.
func (h *PatientsHandler) Update(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req dto.PatientUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Name == "" || req.Email == "" {
		return fiber.NewError(http.StatusBadRequest, "name and email required")
	}

	patient, err := h.patients.Update(c.Context(), claims, id, service.UpdateInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Birthday: req.Birthday,
		Address:  req.Address,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPatientPayload(patient)})
}

// Delete handles DELETE /patients/:id.
func (h *PatientsHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.patients.Delete(c.Context(), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}
