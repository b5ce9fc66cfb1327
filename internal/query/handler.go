package query

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fleetify/fleet-analytics/internal/cache"
	"github.com/fleetify/fleet-analytics/internal/charts"
	httperr "github.com/fleetify/fleet-analytics/internal/core/errors"
)

// RegisterRoutes registers all chart API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/charts/fuel-consumption", s.handleWindowed(cache.FuelConsumption, false))
	r.GET("/v1/charts/cost-breakdown", s.handleWindowed(cache.CostBreakdown, true))
	r.GET("/v1/charts/vehicle-mileage", s.HandleVehicleMileage)
	r.GET("/v1/charts/fuel-efficiency", s.handleWindowed(cache.FuelEfficiency, false))
	r.GET("/v1/charts/cost-trend", s.handleWindowed(cache.CostTrend, false))
	r.GET("/v1/charts/cost-prediction", s.handleWindowed(cache.CostPrediction, false))
	r.GET("/v1/charts/monthly-prediction", s.HandleMonthlyPrediction)
	r.GET("/v1/charts/fleet-summary", s.handleSnapshot(cache.FleetSummary))
	r.GET("/v1/vehicles", s.handleSnapshot(cache.VehiclesList))
}

type windowParams struct {
	Days      int    `form:"days,default=30"`
	VehicleID string `form:"vehicle_id"`
}

// handleWindowed builds a handler for the window-scoped charts. fleetOnly
// charts reject a vehicle_id; the rest accept one for per-vehicle scoping.
func (s *Service) handleWindowed(chart cache.ChartType, fleetOnly bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var params windowParams
		if err := c.ShouldBindQuery(&params); err != nil {
			badRequest(c, "Invalid query parameters", err.Error())
			return
		}
		if params.Days <= 0 {
			badRequest(c, "Invalid period", "days must be positive")
			return
		}
		if fleetOnly && params.VehicleID != "" {
			badRequest(c, "Chart is fleet-wide", "vehicle_id is not supported for this chart")
			return
		}

		key := cache.Key{Chart: chart, VehicleID: params.VehicleID, PeriodDays: params.Days}
		s.respond(c, key, charts.DefaultMileageLimit)
	}
}

// HandleVehicleMileage handles GET /v1/charts/vehicle-mileage
// Query parameters: days, limit
func (s *Service) HandleVehicleMileage(c *gin.Context) {
	var params struct {
		Days  int `form:"days,default=30"`
		Limit int `form:"limit,default=10"`
	}
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, "Invalid query parameters", err.Error())
		return
	}
	if params.Days <= 0 {
		badRequest(c, "Invalid period", "days must be positive")
		return
	}
	if params.Limit <= 0 {
		badRequest(c, "Invalid limit", "limit must be positive")
		return
	}

	key := cache.Key{Chart: cache.VehicleMileage, PeriodDays: params.Days}
	s.respond(c, key, params.Limit)
}

// HandleMonthlyPrediction handles GET /v1/charts/monthly-prediction
// Query parameters: months (history depth)
func (s *Service) HandleMonthlyPrediction(c *gin.Context) {
	var params struct {
		Months int `form:"months,default=6"`
	}
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, "Invalid query parameters", err.Error())
		return
	}
	if params.Months <= 0 {
		badRequest(c, "Invalid months", "months must be positive")
		return
	}

	// Month depth maps onto the cache's day-based key. Only the default
	// depth has a precomputed entry; others fall through to on-demand.
	key := cache.Key{Chart: cache.MonthlyPrediction, PeriodDays: params.Months * 30}
	s.respond(c, key, charts.DefaultMileageLimit)
}

func (s *Service) handleSnapshot(chart cache.ChartType) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := cache.Key{Chart: chart, PeriodDays: cache.SnapshotPeriod}
		s.respond(c, key, charts.DefaultMileageLimit)
	}
}

func (s *Service) respond(c *gin.Context, key cache.Key, limit int) {
	doc, err := s.Chart(c.Request.Context(), key, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to produce chart",
			Details:   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, doc)
}

func badRequest(c *gin.Context, message string, details interface{}) {
	c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
		ErrorType: httperr.HttpInvalidParamError,
		Message:   message,
		Details:   details,
	})
}
