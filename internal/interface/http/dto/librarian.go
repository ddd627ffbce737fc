package dto

// RegisterRequest 馆员注册
type RegisterRequest struct {
	Email    string `json:"email" binding:"required" example:"alice@library.org"`
	Password string `json:"password" binding:"required" example:"shelves2024"`
	Name     string `json:"name" binding:"required" example:"Alice"`
}

// LoginRequest 馆员登录
type LoginRequest struct {
	Email    string `json:"email" binding:"required" example:"alice@library.org"`
	Password string `json:"password" binding:"required" example:"shelves2024"`
}

// RefreshRequest 刷新Access Token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}
