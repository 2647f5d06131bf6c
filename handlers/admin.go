package handlers

import (
	"net/http"
	"strconv"

	"skystore/middleware"
	"skystore/models"
	"skystore/services"
	"skystore/utils"

	"github.com/gin-gonic/gin"
)

type ApproveUserRequest struct {
	Role string `json:"role" binding:"required"`
}

type SetQuotaRequest struct {
	QuotaType  string `json:"quota_type" binding:"required"`
	QuotaLimit int64  `json:"quota_limit" binding:"required,min=1"`
}

func ListPendingUsers(c *gin.Context) {
	principal := middleware.GetPrincipal(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "0"))
	cfg := getConfig()
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > cfg.Pagination.MaxPageSize {
		pageSize = cfg.Pagination.DefaultPageSize
	}

	users, err := getServices().Admin.ListPendingUsers(c.Request.Context(), principal, (page-1)*pageSize, pageSize)
	if respondServiceError(c, err) {
		return
	}

	utils.Success(c, gin.H{"items": users, "page": page, "page_size": pageSize})
}

func ApproveUser(c *gin.Context) {
	principal := middleware.GetPrincipal(c)

	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid user id")
		return
	}

	var req ApproveUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	user, err := getServices().Admin.ApproveUser(c.Request.Context(), principal, services.ApproveUserInput{
		UserID: uint(userID),
		Role:   req.Role,
	})
	if respondServiceError(c, err) {
		return
	}

	utils.Success(c, user)
}

func SetQuota(c *gin.Context) {
	principal := middleware.GetPrincipal(c)

	var req SetQuotaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	quota, err := getServices().Quota.SetLimit(c.Request.Context(), principal, models.Space(req.QuotaType), req.QuotaLimit)
	if respondServiceError(c, err) {
		return
	}

	utils.Success(c, quota)
}

func GetUserStorageUsage(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	if !principal.IsAdmin() {
		utils.Error(c, http.StatusForbidden, "admin privileges required")
		return
	}

	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid user id")
		return
	}

	usage, err := getServices().Quota.GetUsage(c.Request.Context(), uint(userID))
	if respondServiceError(c, err) {
		return
	}

	utils.Success(c, usage)
}
