package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/invite-registry/internal/model"
	"github.com/fairyhunter13/invite-registry/internal/service"
	invitevalidator "github.com/fairyhunter13/invite-registry/internal/validator"
)

// InviteServiceInterface defines the interface for invite code business logic.
type InviteServiceInterface interface {
	IssueBatch(ctx context.Context, req *model.CreateBatchRequest) ([]model.InviteResponse, error)
	Get(ctx context.Context, code string) (*model.InviteResponse, error)
	Validate(ctx context.Context, code string) (*model.ValidationResponse, error)
	Redeem(ctx context.Context, code, redeemerID string) (*model.InviteResponse, error)
	List(ctx context.Context) ([]model.InviteResponse, error)
	Summary(ctx context.Context, code string) (string, error)
	Report(ctx context.Context) (string, error)
}

// InviteHandler handles HTTP requests for invite code operations.
type InviteHandler struct {
	service   InviteServiceInterface
	validator *validator.Validate
}

// NewInviteHandler creates a new InviteHandler with the given service and validator.
func NewInviteHandler(svc InviteServiceInterface, v *validator.Validate) *InviteHandler {
	return &InviteHandler{service: svc, validator: v}
}

// Register mounts the invite routes on r. limit, when non-nil, guards the
// validate and redeem endpoints.
func (h *InviteHandler) Register(r fiber.Router, limit fiber.Handler) {
	invites := r.Group("/api/invites")

	guarded := []fiber.Handler{}
	if limit != nil {
		guarded = append(guarded, limit)
	}

	invites.Post("/batch", h.CreateBatch)
	invites.Post("/validate", append(guarded, h.Validate)...)
	invites.Post("/redeem", append(guarded, h.Redeem)...)
	invites.Get("/", h.List)
	invites.Get("/report", h.Report)
	invites.Get("/:code", h.Get)
	invites.Get("/:code/summary", h.Summary)
}

// formatValidationError converts validator errors to client-facing messages.
// Unknown fields fall back to generic messages.
func formatValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			field := fe.Field()
			tag := fe.Tag()

			switch field {
			case "Code":
				if tag == "required" {
					return "invalid request: code is required"
				}
				return "invalid request: code must be 1-64 letters or digits"
			case "RedeemerID":
				if tag == "required" {
					return "invalid request: redeemer_id is required"
				}
				if tag == "notblank" {
					return "invalid request: redeemer_id cannot be whitespace only"
				}
				if tag == "max" {
					return "invalid request: redeemer_id exceeds maximum length of 255"
				}
				return "invalid request: redeemer_id is invalid"
			case "Count":
				if tag == "required" {
					return "invalid request: count is required"
				}
				return "invalid request: count must not be negative"
			case "Type":
				return "invalid request: type must be one of designer, client, admin"
			case "ExpiryDays":
				return "invalid request: expiry_days must not be negative"
			case "MaxUses":
				return "invalid request: max_uses must be at least 1"
			case "Description":
				return "invalid request: description exceeds maximum length of 255"
			default:
				if tag == "required" {
					return "invalid request: " + field + " is required"
				}
				if tag == "max" {
					return "invalid request: " + field + " exceeds maximum length"
				}
				return "invalid request: " + field + " is invalid"
			}
		}
	}
	return "invalid request"
}

// codeParam returns the :code route parameter and whether it is well formed.
func codeParam(c *fiber.Ctx) (string, bool) {
	code := c.Params("code")
	return code, invitevalidator.IsInviteCode(code)
}

func badCode(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "invalid request: code must be 1-64 letters or digits",
	})
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

// CreateBatch handles POST /api/invites/batch requests to issue new codes.
func (h *InviteHandler) CreateBatch(c *fiber.Ctx) error {
	var req model.CreateBatchRequest

	// Parse JSON body
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	codes, err := h.service.IssueBatch(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrBatchTooLarge) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Int("count", *req.Count).
			Msg("failed to issue invite batch")
		return internalError(c)
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Int("count", len(codes)).
		Str("type", req.Type).
		Msg("invite batch issued")

	return c.Status(fiber.StatusCreated).JSON(model.BatchResponse{Codes: codes})
}

// Get handles GET /api/invites/:code requests.
func (h *InviteHandler) Get(c *fiber.Ctx) error {
	code, ok := codeParam(c)
	if !ok {
		return badCode(c)
	}

	resp, err := h.service.Get(c.Context(), code)
	if err != nil {
		if errors.Is(err, service.ErrCodeNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "invite code not found"})
		}
		log.Error().Err(err).Str("code", code).Msg("failed to get invite code")
		return internalError(c)
	}
	return c.JSON(resp)
}

// Summary handles GET /api/invites/:code/summary requests with a plain-text body.
func (h *InviteHandler) Summary(c *fiber.Ctx) error {
	code, ok := codeParam(c)
	if !ok {
		return badCode(c)
	}

	text, err := h.service.Summary(c.Context(), code)
	if err != nil {
		if errors.Is(err, service.ErrCodeNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "invite code not found"})
		}
		log.Error().Err(err).Str("code", code).Msg("failed to summarize invite code")
		return internalError(c)
	}
	return c.SendString(text)
}

// List handles GET /api/invites requests.
func (h *InviteHandler) List(c *fiber.Ctx) error {
	codes, err := h.service.List(c.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list invite codes")
		return internalError(c)
	}
	return c.JSON(fiber.Map{"codes": codes, "total": len(codes)})
}

// Report handles GET /api/invites/report requests with a plain-text body.
func (h *InviteHandler) Report(c *fiber.Ctx) error {
	text, err := h.service.Report(c.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to build invite report")
		return internalError(c)
	}
	return c.SendString(text)
}

// Validate handles POST /api/invites/validate requests.
// A code that cannot be redeemed still answers 200 with valid=false and a reason.
func (h *InviteHandler) Validate(c *fiber.Ctx) error {
	var req model.ValidateRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	resp, err := h.service.Validate(c.Context(), req.Code)
	if err != nil {
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("code", req.Code).
			Msg("failed to validate invite code")
		return internalError(c)
	}

	log.Debug().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("code", req.Code).
		Bool("valid", resp.Valid).
		Str("reason", resp.Reason).
		Msg("invite code validated")

	return c.JSON(resp)
}

// Redeem handles POST /api/invites/redeem requests to consume one use of a code.
func (h *InviteHandler) Redeem(c *fiber.Ctx) error {
	var req model.RedeemRequest

	// Parse JSON body
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	resp, err := h.service.Redeem(c.Context(), req.Code, req.RedeemerID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCodeNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "invite code not found"})
		case errors.Is(err, service.ErrCodeExpired):
			return c.Status(fiber.StatusGone).JSON(fiber.Map{"error": "invite code expired"})
		case errors.Is(err, service.ErrUsageLimitReached):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "invite code usage limit reached"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("code", req.Code).
			Str("redeemer_id", req.RedeemerID).
			Msg("failed to redeem invite code")
		return internalError(c)
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Str("code", req.Code).
		Str("redeemer_id", req.RedeemerID).
		Int("current_uses", resp.CurrentUses).
		Msg("invite code redeemed")

	return c.JSON(resp)
}
