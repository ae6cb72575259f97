package sync

import (
	"errors"
	"strings"

	"workspace-sync/core/logger"
	"workspace-sync/core/reconcile"
	"workspace-sync/core/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for sync runs.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the sync routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/sync")
	group.Post("/", h.HandleTrigger)
	group.Get("/report", h.HandleLastReport)
	group.Get("/reports", h.HandleListReports)
	group.Get("/reports/*", h.HandleGetReport)
}

// HandleTrigger runs a sync and returns its report.
// @Summary Trigger Sync
// @Description Reconciles every bound workspace container into its store table. Concurrent triggers share one run.
// @Tags sync
// @Accept json
// @Produce json
// @Param dry_run query bool false "Compute the change sets without writing"
// @Success 200 {object} reconcile.RunReport "Run Report"
// @Failure 500 {object} map[string]interface{} "Run Aborted"
// @Router /sync [post]
func (h *Handler) HandleTrigger(c *fiber.Ctx) error {
	dryRun := utils.ToBool(c.Query("dry_run"))
	l := logger.WithRayID(h.service.logger, c).With(zap.Bool("dry_run", dryRun))
	l.Info("Triggering sync")

	report, shared, err := h.service.Trigger(c.Context(), dryRun)
	if shared {
		l.Info("Joined sync run in flight")
	}
	if err != nil {
		l.Error("Sync aborted", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":  err.Error(),
			"report": report,
		})
	}

	return c.JSON(report)
}

// HandleLastReport returns the report of the most recent run.
// @Summary Last Run Report
// @Description Returns the report of the most recent sync run since the server started.
// @Tags sync
// @Produce json
// @Success 200 {object} reconcile.RunReport "Run Report"
// @Failure 404 {object} map[string]string "No Run Yet"
// @Router /sync/report [get]
func (h *Handler) HandleLastReport(c *fiber.Ctx) error {
	report := h.service.LastReport()
	if report == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "no sync run yet",
		})
	}
	return c.JSON(report)
}

// HandleListReports lists archived run reports, newest first.
// @Summary List Archived Reports
// @Description Lists the keys of archived run reports, newest first.
// @Tags sync
// @Produce json
// @Param limit query int false "Maximum number of keys"
// @Success 200 {object} map[string]interface{} "Report Keys"
// @Failure 404 {object} map[string]string "Archiving Disabled"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /sync/reports [get]
func (h *Handler) HandleListReports(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	keys, err := h.service.ListReports(c.Context(), utils.ToInt(c.Query("limit")))
	if err != nil {
		return h.archiveError(c, l, err)
	}
	if keys == nil {
		keys = []string{}
	}

	return c.JSON(fiber.Map{
		"count":   len(keys),
		"reports": keys,
	})
}

// HandleGetReport returns one archived run report.
// @Summary Get Archived Report
// @Description Returns an archived run report by key.
// @Tags sync
// @Produce json
// @Param key path string true "Report key (e.g. 'reports/20240501T120000Z-<run id>.json')"
// @Success 200 {object} reconcile.RunReport "Run Report"
// @Failure 404 {object} map[string]string "Archiving Disabled"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /sync/reports/{key} [get]
func (h *Handler) HandleGetReport(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	key := strings.TrimPrefix(c.Params("*"), "/")
	if key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "report key is required",
		})
	}

	report, err := h.service.GetReport(c.Context(), key)
	if err != nil {
		return h.archiveError(c, l.With(zap.String("key", key)), err)
	}
	return c.JSON(report)
}

func (h *Handler) archiveError(c *fiber.Ctx, l *zap.Logger, err error) error {
	if errors.Is(err, ErrArchiveDisabled) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	l.Error("Archived report lookup failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// Force import for Swagger.
var _ = reconcile.RunReport{}
