package handler

import (
	"github.com/gin-gonic/gin"

	apppayment "github.com/xiebiao/library/internal/application/payment"
	"github.com/xiebiao/library/internal/interface/http/dto"
	"github.com/xiebiao/library/pkg/response"
)

// PaymentHandler 滞纳金缴费与退款HTTP处理器
type PaymentHandler struct {
	payUseCase    *apppayment.PayLateFeesUseCase
	refundUseCase *apppayment.RefundLateFeeUseCase
}

// NewPaymentHandler 创建缴费处理器
func NewPaymentHandler(payUseCase *apppayment.PayLateFeesUseCase, refundUseCase *apppayment.RefundLateFeeUseCase) *PaymentHandler {
	return &PaymentHandler{
		payUseCase:    payUseCase,
		refundUseCase: refundUseCase,
	}
}

// PayLateFees 缴纳滞纳金
// @Summary      缴纳滞纳金
// @Description  按未缴金额通过支付网关扣款并记入台账
// @Tags         缴费
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.PayLateFeesRequest true "读者与图书"
// @Success      200 {object} response.Response{data=apppayment.PayLateFeesResponse}
// @Failure      200 {object} response.Response "40014无需缴费 / 40017扣款被拒 / 50003网关故障"
// @Router       /api/v1/payments/late-fees [post]
func (h *PaymentHandler) PayLateFees(c *gin.Context) {
	var req dto.PayLateFeesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.payUseCase.Execute(c.Request.Context(), apppayment.PayLateFeesRequest{
		PatronID: req.PatronID,
		BookID:   req.BookID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, result.Message, result)
}

// Refund 滞纳金退款
// @Summary      滞纳金退款
// @Description  金额需大于0且不超过15.00; 台账已知的交易不能超过剩余可退金额
// @Tags         缴费
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.RefundRequest true "交易号与金额"
// @Success      200 {object} response.Response{data=apppayment.RefundLateFeeResponse}
// @Failure      200 {object} response.Response "40015交易号无效 / 40016金额无效 / 40017退款被拒"
// @Router       /api/v1/payments/refunds [post]
func (h *PaymentHandler) Refund(c *gin.Context) {
	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.refundUseCase.Execute(c.Request.Context(), apppayment.RefundLateFeeRequest{
		TransactionID: req.TransactionID,
		Amount:        req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, result.Message, result)
}
