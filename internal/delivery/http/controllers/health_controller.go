package controllers

import (
	"database/sql"
	"log/slog"
	"net/http"

	"invitehub/internal/delivery/http/helpers"
)

type HealthController struct {
	Logger *slog.Logger
	DB     *sql.DB
}

func NewHealthController(logger *slog.Logger, db *sql.DB) *HealthController {
	return &HealthController{Logger: logger, DB: db}
}

// HealthzResponse is the data payload for GET /healthz (200).
type HealthzResponse struct {
	Status string `json:"status"`
}

// HealthzSuccessResponse is the success response envelope for GET /healthz (200).
type HealthzSuccessResponse struct {
	Data  HealthzResponse   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// Healthz godoc
// @Summary Liveness check
// @Description Returns ok when the service can reach its database.
// @Tags health
// @Produce json
// @Success 200 {object} controllers.HealthzSuccessResponse "data contains status ok"
// @Failure 503 {object} helpers.APIResponse "error.code: internal_error (database unreachable)"
// @Router /healthz [get]
func (c *HealthController) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := c.DB.PingContext(r.Context()); err != nil {
		c.Logger.ErrorContext(r.Context(), "health check failed", "err", err)
		helpers.WriteJSONError(w, http.StatusServiceUnavailable, helpers.ErrCodeInternalError, "database unreachable")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, HealthzResponse{Status: "ok"})
}
