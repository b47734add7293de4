package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"barplexity/internal/app"
	"barplexity/internal/transport/http/response"
)

type AdminHandler struct {
	adminService *app.AdminService
}

type SetBlockedRequest struct {
	Blocked *bool `json:"blocked" binding:"required"`
}

type SetBannedRequest struct {
	Banned *bool `json:"banned" binding:"required"`
}

func NewAdminHandler(adminService *app.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.adminService.ListUsers()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list users failed")
		return
	}
	response.OK(c, users)
}

func (h *AdminHandler) BlockUser(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid user id")
		return
	}

	var req SetBlockedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if err := h.adminService.SetBlocked(c.Request.Context(), userID, *req.Blocked); err != nil {
		h.writeAdminError(c, err, "update block state failed")
		return
	}

	response.OK(c, gin.H{"user_id": userID, "blocked": *req.Blocked})
}

func (h *AdminHandler) BanUser(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid user id")
		return
	}

	var req SetBannedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if err := h.adminService.SetBanned(c.Request.Context(), userID, *req.Banned); err != nil {
		h.writeAdminError(c, err, "update ban state failed")
		return
	}

	response.OK(c, gin.H{"user_id": userID, "banned": *req.Banned})
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid user id")
		return
	}

	if err := h.adminService.DeleteUser(c.Request.Context(), userID); err != nil {
		h.writeAdminError(c, err, "delete user failed")
		return
	}

	response.OK(c, gin.H{"deleted_user_id": userID})
}

func (h *AdminHandler) writeAdminError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrUserNotFound):
		response.Error(c, http.StatusNotFound, response.CodeUserNotFound, err.Error())
	case errors.Is(err, app.ErrAdminAccount):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
