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

type InitUploadRequest struct {
	FileName    string  `json:"file_name" binding:"required,max=255"`
	FileSize    int64   `json:"file_size" binding:"min=0"`
	FileMD5     string  `json:"file_md5" binding:"required,len=32"`
	TotalChunks int     `json:"total_chunks" binding:"required,min=1"`
	Space       string  `json:"space" binding:"required"`
	ParentID    *string `json:"parent_id"`
}

type CompleteUploadRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

func InitUpload(c *gin.Context) {
	principal := middleware.GetPrincipal(c)

	var req InitUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	out, err := getServices().Upload.BeginOrProbe(c.Request.Context(), principal, services.BeginUploadInput{
		FileName:    req.FileName,
		FileSize:    req.FileSize,
		FileMD5:     req.FileMD5,
		TotalChunks: req.TotalChunks,
		Space:       models.Space(req.Space),
		ParentID:    req.ParentID,
	})
	if respondServiceError(c, err) {
		return
	}

	utils.Success(c, out)
}

func UploadChunk(c *gin.Context) {
	principal := middleware.GetPrincipal(c)

	sessionID := c.PostForm("session_id")
	if sessionID == "" {
		utils.Error(c, http.StatusBadRequest, "session_id is required")
		return
	}
	index, err := strconv.Atoi(c.PostForm("chunk_index"))
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid chunk_index")
		return
	}

	file, _, err := c.Request.FormFile("chunk")
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "failed to read chunk data")
		return
	}
	defer file.Close()

	out, err := getServices().Upload.PutChunk(c.Request.Context(), principal, sessionID, index, file)
	if respondServiceError(c, err) {
		return
	}

	utils.Success(c, out)
}

func UploadStatus(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	sessionID := c.Param("session_id")

	out, err := getServices().Upload.Status(c.Request.Context(), principal, sessionID)
	if respondServiceError(c, err) {
		return
	}

	utils.Success(c, out)
}

func CompleteUpload(c *gin.Context) {
	principal := middleware.GetPrincipal(c)

	var req CompleteUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	node, err := getServices().Upload.Complete(c.Request.Context(), principal, req.SessionID)
	if respondServiceError(c, err) {
		return
	}

	utils.Success(c, node)
}
