package delivery

import (
	"net/http"
	"strconv"

	"github.com/kishoreUdatha/HRM-sub003/internal/shared/apperror"
	"github.com/kishoreUdatha/HRM-sub003/internal/shared/contextutil"
	"github.com/kishoreUdatha/HRM-sub003/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("delivery.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("delivery.handler")
	}
	return &Handler{service: service, logger: l}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	contextutil.GetLogger(c.Request.Context(), h.logger).Warn("delivery request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
		zap.String("message", httpErr.Message),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) ListBySubscription(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := c.GetString("company_id")
	subscriptionID := c.Param("id")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	resp, total, err := h.service.ListBySubscription(ctx, tenantID, subscriptionID, page, pageSize)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	meta := response.NewPaginationMeta(total, page, pageSize)
	response.Success(c, http.StatusOK, resp, &meta)
}

func (h *Handler) ForceRetry(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := c.GetString("company_id")
	deliveryID := c.Param("id")

	resp, err := h.service.ForceRetry(ctx, tenantID, deliveryID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}
