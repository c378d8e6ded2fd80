package wallet

import (
	"github.com/gin-gonic/gin"
	"github.com/voxroom/core/internal/middleware"
	"github.com/voxroom/core/internal/models"
	"github.com/voxroom/core/internal/pkg/pagination"
	"github.com/voxroom/core/internal/pkg/response"
)

// Handler exposes wallet balance and ledger reads for the authenticated user.
type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// RegisterRoutes mounts wallet endpoints (auth required upstream).
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/wallet", h.get)
	rg.GET("/wallet/transactions", h.transactions)
}

func (h *Handler) get(c *gin.Context) {
	w, err := h.svc.GetByOwner(middleware.CurrentUserID(c))
	if err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, w)
}

func (h *Handler) transactions(c *gin.Context) {
	tx, err := h.svc.Transactions(middleware.CurrentUserID(c))
	if err != nil {
		response.Err(c, err)
		return
	}

	var rows []models.WalletTransactionModel
	pag, err := pagination.Paginate(tx, pagination.FromContext(c), &rows)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, rows, pag)
}
