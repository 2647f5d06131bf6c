package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"skystore/config"
	"skystore/database"
	"skystore/handlers"
	"skystore/logger"
	"skystore/middleware"
	"skystore/models"
	"skystore/repositories"
	"skystore/services"

	"github.com/gin-gonic/gin"
)

func main() {
	log.Println("starting skystore service")

	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	logger.SetLevel(cfg.Log.Level)

	db, err := database.OpenMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("open mysql failed: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.StorageQuota{},
		&models.Blob{},
		&models.FileNode{},
		&models.UploadSession{},
	); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}
	log.Println("database migration completed")

	redisClient := database.OpenRedis(&cfg.Redis)
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("redis ping failed: %v", err)
	}

	for _, dir := range []string{
		cfg.Storage.PublicRoot,
		cfg.Storage.GroupRoot,
		cfg.Storage.UserRoot,
		cfg.Storage.ChunkTempRoot,
		cfg.Storage.ThumbnailRoot,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("create storage dir %s failed: %v", dir, err)
		}
	}

	repoContainer := repositories.NewGormRepositories(db, redisClient).BuildContainer()
	serviceContainer := services.NewContainer(cfg, repoContainer)
	handlers.SetServices(serviceContainer)
	handlers.SetConfig(cfg)

	serviceContainer.Cleanup.Start(context.Background())
	log.Println("session cleanup worker started")

	r := gin.Default()
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.RequestLogger())
	setupRoutes(r, cfg, repoContainer)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("server listening on http://%s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server start failed: %v", err)
	}
}

func setupRoutes(r *gin.Engine, cfg *config.Config, repos repositories.Container) {
	api := r.Group("/api")

	api.GET("/health", handlers.HealthCheck)

	auth := api.Group("/auth")
	{
		auth.POST("/register", handlers.Register)
		auth.POST("/login", handlers.Login)
	}

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(cfg, repos.Users))
	{
		protected.GET("/auth/profile", handlers.GetProfile)
		protected.GET("/user/storage/quota", handlers.GetStorageQuota)

		protected.GET("/files/roots", handlers.ListRoots)
		protected.GET("/files/list", handlers.ListChildren)
		protected.POST("/files/folders", handlers.CreateFolder)
		protected.PUT("/files/:id/move", handlers.MoveNode)
		protected.DELETE("/files/:id", handlers.DeleteNode)
		protected.GET("/files/:id/download", handlers.DownloadFile)
		protected.GET("/files/:id/thumbnail", handlers.GetThumbnail)

		protected.POST("/files/upload/init", handlers.InitUpload)
		protected.POST("/files/upload/chunk", handlers.UploadChunk)
		protected.GET("/files/upload/status/:session_id", handlers.UploadStatus)
		protected.POST("/files/upload/complete", handlers.CompleteUpload)
	}

	admin := api.Group("")
	admin.Use(middleware.AuthMiddleware(cfg, repos.Users), middleware.RequireAdmin())
	{
		admin.GET("/moderation/pending", handlers.ListPendingFiles)
		admin.POST("/moderation/:id/approve", handlers.ApproveFile)
		admin.POST("/moderation/:id/reject", handlers.RejectFile)

		admin.GET("/admin/pending-users", handlers.ListPendingUsers)
		admin.POST("/admin/users/:id/approve", handlers.ApproveUser)
		admin.POST("/admin/quota", handlers.SetQuota)
		admin.GET("/admin/storage-usage/:id", handlers.GetUserStorageUsage)
	}
}
