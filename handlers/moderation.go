package handlers

import (
	"skystore/middleware"
	"skystore/utils"

	"github.com/gin-gonic/gin"
)

func ListPendingFiles(c *gin.Context) {
	principal := middleware.GetPrincipal(c)

	nodes, err := getServices().Moderation.ListPending(c.Request.Context(), principal)
	if respondServiceError(c, err) {
		return
	}

	utils.Success(c, gin.H{"items": nodes})
}

func ApproveFile(c *gin.Context) {
	principal := middleware.GetPrincipal(c)

	node, err := getServices().Moderation.Approve(c.Request.Context(), principal, c.Param("id"))
	if respondServiceError(c, err) {
		return
	}

	utils.Success(c, node)
}

func RejectFile(c *gin.Context) {
	principal := middleware.GetPrincipal(c)

	node, err := getServices().Moderation.Reject(c.Request.Context(), principal, c.Param("id"))
	if respondServiceError(c, err) {
		return
	}

	utils.Success(c, node)
}
