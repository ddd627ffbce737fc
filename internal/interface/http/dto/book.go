package dto

// AddBookRequest 图书入库请求
// 字段规则(必填、长度、ISBN格式)由领域层校验, 返回固定文案
type AddBookRequest struct {
	Title       string `json:"title" example:"The Great Gatsby"`
	Author      string `json:"author" example:"F. Scott Fitzgerald"`
	ISBN        string `json:"isbn" example:"9780743273565"`
	TotalCopies int    `json:"total_copies" example:"3"`
}

// ListBooksQuery 图书列表查询
type ListBooksQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100" example:"20"`
}

// SearchBooksQuery 图书检索
// type: title(默认, 子串匹配) | author(子串匹配) | isbn(精确匹配)
type SearchBooksQuery struct {
	Q    string `form:"q" example:"gatsby"`
	Type string `form:"type" binding:"omitempty,oneof=title author isbn" example:"title"`
}
