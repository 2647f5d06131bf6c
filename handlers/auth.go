package handlers

import (
	"net/http"

	"skystore/middleware"
	"skystore/services"
	"skystore/utils"

	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6"`
	Email    string `json:"email" binding:"omitempty,email"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	user, err := getServices().Auth.Register(c.Request.Context(), services.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
	})
	if respondServiceError(c, err) {
		return
	}

	utils.Success(c, user)
}

func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	out, err := getServices().Auth.Login(c.Request.Context(), services.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if respondServiceError(c, err) {
		return
	}

	utils.Success(c, out)
}

func GetProfile(c *gin.Context) {
	principal := middleware.GetPrincipal(c)

	profile, err := getServices().Auth.GetProfile(c.Request.Context(), principal.ID)
	if respondServiceError(c, err) {
		return
	}

	utils.Success(c, profile)
}

func GetStorageQuota(c *gin.Context) {
	principal := middleware.GetPrincipal(c)

	usage, err := getServices().Quota.GetUsage(c.Request.Context(), principal.ID)
	if respondServiceError(c, err) {
		return
	}

	utils.Success(c, usage)
}
