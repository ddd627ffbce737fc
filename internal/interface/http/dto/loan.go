package dto

// CirculationRequest 借书/还书请求
type CirculationRequest struct {
	PatronID string `json:"patron_id" example:"123456"`
	BookID   uint   `json:"book_id" binding:"required" example:"1"`
}

// LateFeeQuery 滞纳金查询
type LateFeeQuery struct {
	PatronID string `form:"patron_id" example:"123456"`
	BookID   uint   `form:"book_id" binding:"required" example:"1"`
}
