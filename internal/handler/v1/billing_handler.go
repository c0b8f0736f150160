package v1

import (
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BillingHandler struct {
	billing  *service.BillingService
	payments *service.PaymentService
	log      *zap.Logger
}

func NewBillingHandler(billing *service.BillingService, payments *service.PaymentService, log *zap.Logger) *BillingHandler {
	return &BillingHandler{billing: billing, payments: payments, log: log}
}

func (h *BillingHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/payments/:id/pay", h.pay)
	rg.POST("/payments/:id/refund", h.refund)
	rg.GET("/patients/:id/payments", h.view)
	rg.GET("/revenue", h.revenue)
}

func (h *BillingHandler) pay(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	p, err := h.billing.Pay(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, p)
}

func (h *BillingHandler) refund(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	p, err := h.billing.Refund(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, p)
}

func (h *BillingHandler) view(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.payments.View(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, res)
}

func (h *BillingHandler) revenue(c *gin.Context) {
	res, err := h.payments.RevenueSummary(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, res)
}
