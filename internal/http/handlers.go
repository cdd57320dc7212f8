package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/cloud"
	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/domain"
	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/service"
)

const maxListLimit = 500

func Register(app *fiber.App, svcs *service.Services) {
	h := &handlers{svcs: svcs}

	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })

	g := app.Group("/api")
	g.Get("/dashboard", h.dashboard)
	g.Post("/analyze", h.analyze)
	g.Post("/records", h.ingest)
	g.Get("/machines", h.machines)
	g.Get("/machines/:id/maintenance", h.maintenance)
	g.Get("/machines/:id/alerts", h.alertHistory)
	g.Post("/alerts/:id/ack", h.acknowledge)
	g.Get("/live", h.live)
	g.Get("/analytics", h.analytics)
	g.Get("/alerts", h.alerts)
	g.Get("/prediction", h.prediction)
	g.Post("/models/retrain", h.retrain)
}

type handlers struct {
	svcs *service.Services
}

func fail(c *fiber.Ctx, status int, err error) error {
	if status >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func (h *handlers) dashboard(c *fiber.Ctx) error {
	d, err := h.svcs.Dashboard.Dashboard(c.UserContext())
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(d)
}

var errMissingHours = errors.New("on_time_hours and off_time_hours are required")

func (h *handlers) analyze(c *fiber.Ctx) error {
	var req domain.AnalyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}
	req.MachineID = strings.TrimSpace(req.MachineID)
	if req.MachineID == "" {
		return fail(c, fiber.StatusBadRequest, service.ErrMissingMachineID)
	}
	if req.OnTimeHours == nil || req.OffTimeHours == nil {
		return fail(c, fiber.StatusBadRequest, errMissingHours)
	}

	ctx := c.UserContext()
	res, err := h.svcs.Analysis.Analyze(ctx, req.MachineID, *req.OnTimeHours, *req.OffTimeHours)
	switch {
	case errors.Is(err, service.ErrMissingMachineID), errors.Is(err, service.ErrNegativeHours):
		return fail(c, fiber.StatusBadRequest, err)
	case err != nil:
		return fail(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(domain.AnalyzeResponse{
		MachineID:        res.MachineID,
		AnomalyStatus:    res.AnomalyStatus,
		AnomalyScore:     res.AnomalyScore,
		PredictedCost:    res.PredictedCost,
		EfficiencyScore:  res.EfficiencyScore,
		EnergyWasted:     res.EnergyWasted,
		AIRecommendation: h.svcs.Recommender.Generate(ctx, res),
	})
}

func (h *handlers) ingest(c *fiber.Ctx) error {
	recs, err := service.DecodeRecords(c.Body())
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}
	n, err := h.svcs.Readings.Ingest(c.UserContext(), recs)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"inserted": n})
}

func (h *handlers) machines(c *fiber.Ctx) error {
	items, err := h.svcs.Insights.Machines(c.UserContext())
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}
	if items == nil {
		items = []domain.Machine{}
	}
	return c.JSON(items)
}

func (h *handlers) maintenance(c *fiber.Ctx) error {
	out, err := h.svcs.Maintenance.Outlook(c.UserContext(), c.Params("id"))
	switch {
	case errors.Is(err, service.ErrUnknownMachine):
		return fail(c, fiber.StatusNotFound, err)
	case err != nil:
		return fail(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(out)
}

var errHistoryDisabled = errors.New("alert history requires USE_CLOUD_SERVICES=true")

func (h *handlers) alertHistory(c *fiber.Ctx) error {
	if h.svcs.AlertHistory == nil {
		return fail(c, fiber.StatusServiceUnavailable, errHistoryDisabled)
	}
	items, err := h.svcs.AlertHistory.Alerts(c.UserContext(), c.Params("id"), int32(limit(c)))
	if err != nil {
		return fail(c, fiber.StatusBadGateway, err)
	}
	if items == nil {
		items = []domain.Alert{}
	}
	return c.JSON(items)
}

func (h *handlers) acknowledge(c *fiber.Ctx) error {
	if h.svcs.AlertHistory == nil {
		return fail(c, fiber.StatusServiceUnavailable, errHistoryDisabled)
	}
	err := h.svcs.AlertHistory.AcknowledgeAlert(c.UserContext(), c.Params("id"))
	if errors.Is(err, cloud.ErrAlertNotFound) {
		return fail(c, fiber.StatusNotFound, err)
	}
	if err != nil {
		return fail(c, fiber.StatusBadGateway, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) live(c *fiber.Ctx) error {
	items, err := h.svcs.Insights.Live(c.UserContext(), limit(c))
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}
	if items == nil {
		items = []domain.EnergyRecord{}
	}
	return c.JSON(items)
}

func (h *handlers) analytics(c *fiber.Ctx) error {
	s, err := h.svcs.Insights.Summary(c.UserContext())
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(s)
}

func (h *handlers) alerts(c *fiber.Ctx) error {
	items, err := h.svcs.Insights.Alerts(c.UserContext(), limit(c))
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(items)
}

func (h *handlers) prediction(c *fiber.Ctx) error {
	p, err := h.svcs.Insights.NextHourPrediction(c.UserContext())
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(p)
}

func (h *handlers) retrain(c *fiber.Ctx) error {
	return c.JSON(h.svcs.Models.Retrain(c.UserContext(), true))
}

// limit reads ?limit=, clamped to [0, maxListLimit]; 0 lets the service pick its default.
func limit(c *fiber.Ctx) int {
	return max(0, min(c.QueryInt("limit", 0), maxListLimit))
}
