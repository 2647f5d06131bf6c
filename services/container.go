package services

import (
	"skystore/config"
	"skystore/repositories"
)

type Container struct {
	Auth       AuthService
	Admin      AdminService
	Quota      QuotaService
	Upload     UploadService
	File       FileService
	Moderation ModerationService
	Cleanup    CleanupService
}

func NewContainer(cfg *config.Config, repos repositories.Container) *Container {
	quota := NewQuotaService(repos.Users, repos.Quotas, repos.Nodes)
	return &Container{
		Auth:       NewAuthService(cfg, repos.Users, quota),
		Admin:      NewAdminService(repos.Users),
		Quota:      quota,
		Upload:     NewUploadService(cfg, repos.TxManager, repos.Users, repos.Nodes, repos.Blobs, repos.Sessions, repos.ChunkProgress, quota),
		File:       NewFileService(repos.TxManager, repos.Nodes, repos.Blobs, quota),
		Moderation: NewModerationService(repos.TxManager, repos.Nodes, repos.Blobs, quota),
		Cleanup:    NewCleanupService(cfg, repos.Sessions, repos.ChunkProgress),
	}
}
