package handlers

import (
	"net/http"

	"skystore/middleware"
	"skystore/models"
	"skystore/services"
	"skystore/utils"

	"github.com/gin-gonic/gin"
)

type CreateFolderRequest struct {
	Name     string  `json:"name" binding:"required,max=255"`
	Space    string  `json:"space" binding:"required"`
	ParentID *string `json:"parent_id"`
}

type MoveNodeRequest struct {
	TargetParentID string `json:"target_parent_id" binding:"required"`
}

func ListRoots(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	utils.Success(c, getServices().File.ListRoots(c.Request.Context(), principal))
}

func ListChildren(c *gin.Context) {
	principal := middleware.GetPrincipal(c)

	space := models.Space(c.Query("space"))
	var parentID *string
	if raw := c.Query("parent_id"); raw != "" {
		parentID = &raw
	}

	nodes, err := getServices().File.ListChildren(c.Request.Context(), principal, space, parentID)
	if respondServiceError(c, err) {
		return
	}

	utils.Success(c, gin.H{"items": nodes})
}

func CreateFolder(c *gin.Context) {
	principal := middleware.GetPrincipal(c)

	var req CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	node, err := getServices().File.CreateFolder(c.Request.Context(), principal, services.CreateFolderInput{
		Name:     req.Name,
		Space:    models.Space(req.Space),
		ParentID: req.ParentID,
	})
	if respondServiceError(c, err) {
		return
	}

	utils.Success(c, node)
}

func MoveNode(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	nodeID := c.Param("id")

	var req MoveNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	node, err := getServices().File.Move(c.Request.Context(), principal, nodeID, req.TargetParentID)
	if respondServiceError(c, err) {
		return
	}

	utils.Success(c, node)
}

func DeleteNode(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	nodeID := c.Param("id")

	if respondServiceError(c, getServices().File.Delete(c.Request.Context(), principal, nodeID)) {
		return
	}

	utils.Success(c, gin.H{"id": nodeID})
}

func DownloadFile(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	nodeID := c.Param("id")

	out, err := getServices().File.GetDownloadInfo(c.Request.Context(), principal, nodeID)
	if respondServiceError(c, err) {
		return
	}

	c.Header("Content-Type", out.ContentType)
	c.FileAttachment(out.AbsPath, out.DownloadName)
}

func GetThumbnail(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	nodeID := c.Param("id")

	out, err := getServices().File.GetThumbnailInfo(c.Request.Context(), principal, nodeID)
	if respondServiceError(c, err) {
		return
	}

	c.Header("Content-Type", out.ContentType)
	c.File(out.AbsPath)
}
