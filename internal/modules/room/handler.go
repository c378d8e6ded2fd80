package room

import (
	"github.com/gin-gonic/gin"
	"github.com/voxroom/core/internal/modules/presence"
	"github.com/voxroom/core/internal/pkg/response"
)

// Handler exposes room reads.
type Handler struct {
	svc      *Service
	presence *presence.Service
}

func NewHandler(svc *Service, pres *presence.Service) *Handler {
	return &Handler{svc: svc, presence: pres}
}

// RegisterRoutes mounts room endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/rooms/:id", h.get)
	rg.GET("/rooms/:id/online", h.online)
}

func (h *Handler) get(c *gin.Context) {
	r, err := h.svc.Get(c.Param("id"))
	if err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, r)
}

func (h *Handler) online(c *gin.Context) {
	roomID := c.Param("id")
	if _, err := h.svc.Get(roomID); err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, gin.H{
		"roomId": roomID,
		"online": h.presence.OnlineCount(roomID),
	})
}
