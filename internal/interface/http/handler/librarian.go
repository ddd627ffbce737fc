package handler

import (
	"github.com/gin-gonic/gin"

	applibrarian "github.com/xiebiao/library/internal/application/librarian"
	"github.com/xiebiao/library/internal/interface/http/dto"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/pkg/response"
)

// LibrarianHandler 馆员账号HTTP处理器
type LibrarianHandler struct {
	registerUseCase *applibrarian.RegisterUseCase
	loginUseCase    *applibrarian.LoginUseCase
	logoutUseCase   *applibrarian.LogoutUseCase
	refreshUseCase  *applibrarian.RefreshUseCase
}

// NewLibrarianHandler 创建馆员处理器
func NewLibrarianHandler(
	registerUseCase *applibrarian.RegisterUseCase,
	loginUseCase *applibrarian.LoginUseCase,
	logoutUseCase *applibrarian.LogoutUseCase,
	refreshUseCase *applibrarian.RefreshUseCase,
) *LibrarianHandler {
	return &LibrarianHandler{
		registerUseCase: registerUseCase,
		loginUseCase:    loginUseCase,
		logoutUseCase:   logoutUseCase,
		refreshUseCase:  refreshUseCase,
	}
}

// Register 馆员注册
// @Summary      馆员注册
// @Tags         馆员
// @Accept       json
// @Produce      json
// @Param        request body dto.RegisterRequest true "注册信息"
// @Success      200 {object} response.Response{data=applibrarian.LibrarianInfo}
// @Failure      200 {object} response.Response "40900参数错误 / 40003邮箱已注册"
// @Router       /api/v1/librarians/register [post]
func (h *LibrarianHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.registerUseCase.Execute(c.Request.Context(), applibrarian.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Login 馆员登录
// @Summary      馆员登录
// @Description  校验邮箱密码, 返回JWT Token对
// @Tags         馆员
// @Accept       json
// @Produce      json
// @Param        request body dto.LoginRequest true "登录信息"
// @Success      200 {object} response.Response{data=applibrarian.LoginResponse}
// @Failure      200 {object} response.Response "40103邮箱或密码错误"
// @Router       /api/v1/librarians/login [post]
func (h *LibrarianHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.loginUseCase.Execute(c.Request.Context(), applibrarian.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
		ClientIP: c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Refresh 刷新Access Token
// @Summary      刷新Access Token
// @Tags         馆员
// @Accept       json
// @Produce      json
// @Param        request body dto.RefreshRequest true "Refresh Token"
// @Success      200 {object} response.Response{data=applibrarian.RefreshResponse}
// @Router       /api/v1/librarians/refresh [post]
func (h *LibrarianHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.refreshUseCase.Execute(req.RefreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Logout 馆员登出
// @Summary      馆员登出
// @Description  删除会话, 当前Access Token加入黑名单
// @Tags         馆员
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response
// @Router       /api/v1/librarians/logout [post]
func (h *LibrarianHandler) Logout(c *gin.Context) {
	claims := middleware.MustGetClaims(c)
	if err := h.logoutUseCase.Execute(c.Request.Context(), claims, middleware.GetAccessToken(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, "Logged out.", nil)
}
