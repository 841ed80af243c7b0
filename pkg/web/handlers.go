package web

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/monitor"
	"github.com/flowgrid/flowgrid/pkg/services"
)

// APIHandlers carries the collaborators behind the REST endpoints.
type APIHandlers struct {
	logger       *slog.Logger
	draftService *services.Draft
	monitor      *monitor.Monitor
	streams      monitor.StatusSubscriber
	validator    *validator.Validate
	registry     TemplateCatalog
}

// TemplateCatalog is the slice of the registry the API needs.
type TemplateCatalog interface {
	List() []*models.NodeTemplate
	HealthCheck() (string, bool)
}

// NewAPIHandlers wires the handler set.
func NewAPIHandlers(
	logger *slog.Logger,
	draftService *services.Draft,
	mon *monitor.Monitor,
	streams monitor.StatusSubscriber,
	validator *validator.Validate,
	catalog TemplateCatalog,
) *APIHandlers {
	return &APIHandlers{
		logger:       logger,
		draftService: draftService,
		monitor:      mon,
		streams:      streams,
		validator:    validator,
		registry:     catalog,
	}
}

// RegisterRoutes mounts the API on a fiber app.
func (h *APIHandlers) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.HealthCheck)
	app.Get("/templates", h.GetTemplates)

	d := app.Group("/drafts")
	d.Get("/", h.GetDrafts)
	d.Post("/", h.CreateDraft)
	d.Get("/:id", h.GetDraft)
	d.Put("/:id", h.UpdateDraft)
	d.Delete("/:id", h.DeleteDraft)
	d.Post("/:id/validate", h.ValidateDraft)
	d.Post("/:id/activate", h.ActivateDraft)
	d.Post("/:id/archive", h.ArchiveDraft)
	d.Post("/:id/executions", h.StartExecution)

	e := app.Group("/executions")
	e.Get("/:id", h.GetExecution)
	e.Get("/:id/stream", h.StreamExecution)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	repositoryCheck, repOk := h.draftService.HealthCheck(c.Context())

	status := "unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// GetTemplates returns the node template catalog for the canvas palette.
func (h *APIHandlers) GetTemplates(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"templates": h.registry.List(),
	})
}

func (h *APIHandlers) GetDrafts(c fiber.Ctx) error {
	req, err := h.parseListDraftsRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.draftService.ListDrafts(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"drafts":        result.Drafts,
		"total_count":   result.TotalCount,
		"has_next_page": result.HasNextPage,
		"pagination": fiber.Map{
			"limit":  req.Limit,
			"offset": req.Offset,
		},
		"sorting": fiber.Map{
			"sort_by":    req.SortBy,
			"sort_order": req.SortOrder,
		},
	})
}

func (h *APIHandlers) parseListDraftsRequest(c fiber.Ctx) (*services.ListDraftsRequest, error) {
	req := &services.ListDraftsRequest{}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, err
		}

		req.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, err
		}

		req.Offset = offset
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.DraftStatus(statusStr)
		req.Status = &status
	}

	req.SortBy = c.Query("sort_by")
	req.SortOrder = c.Query("sort_order")

	return req, nil
}

func (h *APIHandlers) GetDraft(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Draft ID is required")
	}

	d, err := h.draftService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(d)
}

func (h *APIHandlers) CreateDraft(c fiber.Ctx) error {
	var req CreateDraftRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.draftService.Create(c.Context(), req.toDraft())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateDraft(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Draft ID is required")
	}

	var req UpdateDraftRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.draftService.Update(c.Context(), id, req.toDraft())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteDraft(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Draft ID is required")
	}

	if err := h.draftService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ValidateDraft(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Draft ID is required")
	}

	result, warnings, err := h.draftService.Validate(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(ValidateDraftResponse{
		Valid:        result.Valid(),
		Errors:       result.Errors,
		Warnings:     result.Warnings,
		LoadWarnings: warnings,
	})
}

func (h *APIHandlers) ActivateDraft(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Draft ID is required")
	}

	activated, err := h.draftService.Activate(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(activated)
}

func (h *APIHandlers) ArchiveDraft(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Draft ID is required")
	}

	archived, err := h.draftService.Archive(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(archived)
}

// StartExecution launches a test run for a draft and begins monitoring it.
func (h *APIHandlers) StartExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Draft ID is required")
	}

	var req StartExecutionRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	// Drafts with validation errors are not eligible to execute.
	d, err := h.draftService.CheckRunnable(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	executionID, err := h.monitor.StartTest(c.Context(), d, req.InputData)
	if err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(StartExecutionResponse{ExecutionID: executionID})
}

// GetExecution returns the monitor's view of a run.
func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	view, ok := h.monitor.View(id)
	if !ok {
		return notFound(c, "execution not found")
	}

	return c.JSON(view)
}

// StreamExecution streams a run's status events as Server-Sent Events until a
// terminal event arrives or the client disconnects.
func (h *APIHandlers) StreamExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	// The stream outlives the handler return; detach it from the request
	// context and rely on write failures to notice a gone client.
	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Context()))

	events, cancelStream, err := h.streams.Subscribe(ctx, id)
	if err != nil {
		cancel()

		return handleExecutionError(c, err)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer cancelStream()

		for event := range events {
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}

			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
				return
			}

			if err := w.Flush(); err != nil {
				return
			}

			if event.Type == models.StatusEventCompleted || event.Type == models.StatusEventFailed {
				return
			}
		}
	})
}
