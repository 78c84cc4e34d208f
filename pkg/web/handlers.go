// Package web provides HTTP handlers and REST API endpoints for the document chat service.
package web

import (
	"net/http"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/dukex/docflow/pkg/router"
	"github.com/dukex/docflow/pkg/services"
	"github.com/dukex/docflow/pkg/session"
	"github.com/dukex/docflow/pkg/templates"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

const (
	serviceName    = "docflow"
	serviceVersion = "1.0.0"
)

type APIHandlers struct {
	router    *router.Router
	registry  *session.Registry
	catalog   *templates.Catalog
	health    *services.Health
	validator *validator.Validate
}

func NewAPIHandlers(
	router *router.Router,
	registry *session.Registry,
	catalog *templates.Catalog,
	health *services.Health,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		router:    router,
		registry:  registry,
		catalog:   catalog,
		health:    health,
		validator: validator,
	}
}

func (h *APIHandlers) Chat(c fiber.Ctx) error {
	var req ChatRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := h.router.Run(c.Context(), req.Message, req.SessionID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformChatResponse(resp, time.Now()))
}

func (h *APIHandlers) Resume(c fiber.Ctx) error {
	sessionID := c.Params("session_id")
	if sessionID == "" {
		return badRequest(c, "Session ID is required")
	}

	var req ResumeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := h.router.Resume(c.Context(), sessionID, req.UserReply, req.Kind())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformResumeResponse(resp))
}

func (h *APIHandlers) GetSessionStatus(c fiber.Ctx) error {
	sessionID := c.Params("session_id")
	if sessionID == "" {
		return badRequest(c, "Session ID is required")
	}

	status, err := h.router.GetSessionStatus(c.Context(), sessionID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(status)
}

func (h *APIHandlers) ListSessions(c fiber.Ctx) error {
	filter := persistence.SessionFilter{AgentType: c.Query("agent")}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.SessionStatus(statusStr)
		if !status.IsValid() {
			return badRequest(c, "Invalid session status: "+statusStr)
		}

		filter.Status = status
	}

	sessions, err := h.registry.List(c.Context(), filter)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"sessions":    sessions,
		"total_count": len(sessions),
	})
}

func (h *APIHandlers) DeleteSession(c fiber.Ctx) error {
	sessionID := c.Params("session_id")
	if sessionID == "" {
		return badRequest(c, "Session ID is required")
	}

	err := h.registry.Delete(c.Context(), sessionID)
	if err != nil {
		if persistence.IsSessionNotFound(err) {
			return notFound(c, services.ErrSessionNotFound.Error())
		}

		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetAgents(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"agents": h.router.Agents(),
	})
}

func (h *APIHandlers) GetTemplates(c fiber.Ctx) error {
	docTypes := h.catalog.DocumentTypes()
	items := make([]TemplateResponse, 0, len(docTypes))

	for _, docType := range docTypes {
		entry, _ := h.catalog.Get(docType)
		items = append(items, TemplateResponse{
			DocumentType: docType,
			Fields:       entry.Fields,
			InputPrompt:  entry.InputPrompt,
			HasSchema:    len(entry.Schema) > 0,
		})
	}

	return c.JSON(fiber.Map{
		"templates": items,
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	persistenceCheck, ok := h.health.HealthCheck(c.Context())

	status := "unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"service": serviceName,
		"version": serviceVersion,
		"checkers": fiber.Map{
			"persistence": persistenceCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
