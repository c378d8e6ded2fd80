package message

import (
	"github.com/gin-gonic/gin"
	"github.com/voxroom/core/internal/middleware"
	"github.com/voxroom/core/internal/models"
	"github.com/voxroom/core/internal/pkg/pagination"
	"github.com/voxroom/core/internal/pkg/response"
)

// Handler exposes message history reads; writes go through the gateway.
type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// RegisterRoutes mounts message endpoints (auth required upstream).
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/rooms/:id/messages", h.history)
}

func (h *Handler) history(c *gin.Context) {
	tx, err := h.svc.History(c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		response.Err(c, err)
		return
	}

	var rows []models.MessageModel
	pag, err := pagination.Paginate(tx, pagination.FromContext(c), &rows)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, rows, pag)
}
