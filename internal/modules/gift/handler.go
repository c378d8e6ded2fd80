package gift

import (
	"github.com/gin-gonic/gin"
	"github.com/voxroom/core/internal/middleware"
	"github.com/voxroom/core/internal/pkg/response"
)

// Handler exposes the gift catalog and the send RPC. The gateway socket
// operation routes into the same Service, so both paths share one
// idempotency domain.
type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// RegisterRoutes mounts gift endpoints (auth required upstream).
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/gifts", h.catalog)
	rg.POST("/gifts/send", h.send)
}

func (h *Handler) catalog(c *gin.Context) {
	gifts, err := h.svc.Catalog()
	if err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, gifts)
}

func (h *Handler) send(c *gin.Context) {
	var dto SendGiftDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.svc.SendGift(c.Request.Context(), middleware.CurrentUserID(c), dto)
	if err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, result)
}
