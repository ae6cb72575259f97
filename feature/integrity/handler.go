package integrity

import (
	"errors"

	"workspace-sync/core/logger"
	"workspace-sync/core/utils"
	"workspace-sync/feature/integrity/checks"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for integrity checks.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	// Force import for Swagger
	var _ = checks.SchemaReport{}
	return &Handler{service: service}
}

// RegisterRoutes registers the integrity routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/integrity")
	group.Get("/", h.HandleIntegrityCheck)
	group.Get("/schema", h.HandleSchemaCheck)
	group.Get("/workspace", h.HandleWorkspaceCheck)
	group.Get("/archive", h.HandleArchiveCheck)
}

// HandleIntegrityCheck triggers all integrity checks.
// @Summary Run All Integrity Checks
// @Description Performs all available integrity checks (Schema, Workspace, Archive).
// @Tags integrity
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Combined Report"
// @Router /integrity [get]
func (h *Handler) HandleIntegrityCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Triggering all integrity checks")

	ctx := c.Context()
	report := make(map[string]interface{})

	// Schema
	if schema, err := h.service.CheckSchema(ctx); err != nil {
		report["schema"] = map[string]interface{}{"status": "error", "error": err.Error()}
	} else {
		report["schema"] = schema
	}

	// Workspace
	report["workspace"] = h.service.CheckWorkspace(ctx)

	// Archive
	if missing, err := h.service.CheckArchive(ctx); errors.Is(err, ErrArchiveDisabled) {
		report["archive"] = map[string]interface{}{"status": "disabled"}
	} else if err != nil {
		report["archive"] = map[string]interface{}{"status": "error", "error": err.Error()}
	} else {
		report["archive"] = map[string]interface{}{"status": "ok", "missing": missing}
	}

	return c.JSON(report)
}

// HandleSchemaCheck verifies the columns of every bound table.
// @Summary Check Store Schema
// @Description Discovers the bound tables and verifies that each has the columns its kind requires.
// @Tags integrity
// @Accept json
// @Produce json
// @Success 200 {object} checks.SchemaReport "Schema Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/schema [get]
func (h *Handler) HandleSchemaCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.CheckSchema(c.Context())
	if err != nil {
		l.Error("Schema check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if !report.Matched {
		l.Warn("Schema mismatches detected", zap.Strings("errors", report.Errors))
	}

	return c.JSON(report)
}

// HandleWorkspaceCheck checks every bound workspace database.
// @Summary Check Workspace Bindings
// @Description Fetches the schema of every bound workspace database.
// @Tags integrity
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Workspace Report"
// @Router /integrity/workspace [get]
func (h *Handler) HandleWorkspaceCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	reports := h.service.CheckWorkspace(c.Context())
	failed := 0
	for _, r := range reports {
		if r.Status != "ok" {
			failed++
			l.Warn("Workspace container unreachable", zap.String("table", r.Table), zap.String("error", r.Error))
		}
	}

	return c.JSON(fiber.Map{
		"status":     "checked",
		"failed":     failed,
		"containers": reports,
	})
}

// HandleArchiveCheck checks and optionally fixes the report archive.
// @Summary Check Report Archive
// @Description Checks that the report bucket and prefix exist. Optionally creates them.
// @Tags integrity
// @Accept json
// @Produce json
// @Param fix query boolean false "Create what is missing"
// @Success 200 {object} map[string]interface{} "Archive Report"
// @Failure 404 {object} map[string]string "Archiving Disabled"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/archive [get]
func (h *Handler) HandleArchiveCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	fix := utils.ToBool(c.Query("fix"))

	missing, err := h.service.CheckArchive(c.Context())
	if errors.Is(err, ErrArchiveDisabled) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		l.Error("Archive check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if len(missing) > 0 {
		l.Warn("Archive location incomplete", zap.Strings("missing", missing))

		if fix {
			l.Info("Attempting to fix archive location")
			if err := h.service.FixArchive(c.Context(), missing); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error":   "Failed to fix archive location",
					"details": err.Error(),
					"missing": missing,
				})
			}
			return c.JSON(fiber.Map{
				"status": "fixed",
				"fixed":  missing,
			})
		}
	}

	return c.JSON(fiber.Map{
		"status":  "checked",
		"missing": missing,
	})
}
