package handler

import (
	"github.com/gin-gonic/gin"

	apploan "github.com/xiebiao/library/internal/application/loan"
	"github.com/xiebiao/library/internal/interface/http/dto"
	"github.com/xiebiao/library/pkg/response"
)

// LoanHandler 借还与读者查询HTTP处理器
type LoanHandler struct {
	borrowUseCase  *apploan.BorrowBookUseCase
	returnUseCase  *apploan.ReturnBookUseCase
	lateFeeUseCase *apploan.CalculateLateFeeUseCase
	reportUseCase  *apploan.PatronReportUseCase
}

// NewLoanHandler 创建借还处理器
func NewLoanHandler(
	borrowUseCase *apploan.BorrowBookUseCase,
	returnUseCase *apploan.ReturnBookUseCase,
	lateFeeUseCase *apploan.CalculateLateFeeUseCase,
	reportUseCase *apploan.PatronReportUseCase,
) *LoanHandler {
	return &LoanHandler{
		borrowUseCase:  borrowUseCase,
		returnUseCase:  returnUseCase,
		lateFeeUseCase: lateFeeUseCase,
		reportUseCase:  reportUseCase,
	}
}

// Borrow 借书
// @Summary      借书
// @Description  借期14天, 每位读者最多同时借5本, 同一本书不能重复借
// @Tags         借还
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CirculationRequest true "读者与图书"
// @Success      200 {object} response.Response{data=apploan.BorrowBookResponse}
// @Failure      200 {object} response.Response "40902读者证号无效 / 40010无可借副本 / 40011重复借阅 / 40012超出上限"
// @Router       /api/v1/loans/borrow [post]
func (h *LoanHandler) Borrow(c *gin.Context) {
	var req dto.CirculationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.borrowUseCase.Execute(c.Request.Context(), apploan.BorrowBookRequest{
		PatronID: req.PatronID,
		BookID:   req.BookID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, result.Message, result)
}

// Return 还书
// @Summary      还书
// @Description  关闭最早的在借记录, 返回应缴滞纳金
// @Tags         借还
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CirculationRequest true "读者与图书"
// @Success      200 {object} response.Response{data=apploan.ReturnBookResponse}
// @Failure      200 {object} response.Response "40013未借阅该书"
// @Router       /api/v1/loans/return [post]
func (h *LoanHandler) Return(c *gin.Context) {
	var req dto.CirculationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.returnUseCase.Execute(c.Request.Context(), apploan.ReturnBookRequest{
		PatronID: req.PatronID,
		BookID:   req.BookID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, result.Message, result)
}

// LateFee 查询滞纳金
// @Summary      查询滞纳金
// @Tags         借还
// @Produce      json
// @Param        patron_id query string true "读者证号(6位数字)"
// @Param        book_id   query int    true "图书ID"
// @Success      200 {object} response.Response{data=apploan.LateFeeResponse}
// @Router       /api/v1/loans/fee [get]
func (h *LoanHandler) LateFee(c *gin.Context) {
	var query dto.LateFeeQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.lateFeeUseCase.Execute(c.Request.Context(), apploan.LateFeeRequest{
		PatronID: query.PatronID,
		BookID:   query.BookID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, result.Message, result)
}

// PatronReport 读者借阅报表
// @Summary      读者借阅报表
// @Description  在借图书、应缴滞纳金合计、借阅历史
// @Tags         读者
// @Produce      json
// @Param        patron_id path string true "读者证号"
// @Success      200 {object} response.Response{data=apploan.PatronReport}
// @Router       /api/v1/patrons/{patron_id}/report [get]
func (h *LoanHandler) PatronReport(c *gin.Context) {
	result, err := h.reportUseCase.Execute(c.Request.Context(), c.Param("patron_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
