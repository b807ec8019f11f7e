package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Sampath5633/Medica-Backend/internal/usecase"
)

// PingHandler reports account store connectivity.
type PingHandler struct {
	status *usecase.StoreStatus
	driver string
	logger *zap.Logger
}

// NewPingHandler names the configured store driver in its replies.
func NewPingHandler(status *usecase.StoreStatus, driver string, logger *zap.Logger) *PingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PingHandler{status: status, driver: driver, logger: logger}
}

// PingDB godoc
// @Summary Store connectivity and account count
// @Tags Health
// @Produce json
// @Success 200 {object} PingResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/ping-db [get]
func (h *PingHandler) PingDB(c *gin.Context) {
	count, err := h.status.AccountCount(c.Request.Context())
	if err != nil {
		h.logger.Error("store ping failed", zap.String("driver", h.driver), zap.Error(err))
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, h.storeName()+" connection failed"))
		return
	}
	c.JSON(http.StatusOK, PingResponse{Message: h.storeName() + " connected", UserCount: count})
}

func (h *PingHandler) storeName() string {
	switch h.driver {
	case "postgres":
		return "PostgreSQL"
	case "memory":
		return "In-memory store"
	default:
		return "MongoDB"
	}
}
