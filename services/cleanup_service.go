package services

import (
	"context"
	"os"
	"time"

	"skystore/config"
	"skystore/logger"
	"skystore/repositories"
)

// CleanupService reaps upload sessions whose deadline passed before the
// client finished. Completed sessions are purged inline by the upload flow,
// so only abandoned ones reach the sweeper.
type CleanupService interface {
	Start(ctx context.Context)
	SweepExpiredSessions(ctx context.Context) int
}

type cleanupService struct {
	cfg      *config.Config
	sessions repositories.UploadSessionRepository
	progress repositories.ChunkProgressRepository
}

func NewCleanupService(
	cfg *config.Config,
	sessions repositories.UploadSessionRepository,
	progress repositories.ChunkProgressRepository,
) CleanupService {
	return &cleanupService{cfg: cfg, sessions: sessions, progress: progress}
}

func (s *cleanupService) Start(ctx context.Context) {
	interval := time.Duration(s.cfg.Storage.CleanupInterval) * time.Second
	if interval <= 0 {
		interval = time.Hour
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.SweepExpiredSessions(ctx)
			}
		}
	}()
}

func (s *cleanupService) SweepExpiredSessions(ctx context.Context) int {
	sessions, err := s.sessions.ListExpired(ctx, nil, time.Now())
	if err != nil {
		logger.Errorf("list expired upload sessions: %v", err)
		return 0
	}

	cleaned := 0
	for _, session := range sessions {
		if session.TempDir != "" {
			if err := os.RemoveAll(session.TempDir); err != nil {
				logger.Errorf("remove temp dir %s: %v", session.TempDir, err)
				continue
			}
		}
		if err := s.progress.Clear(ctx, session.SessionID); err != nil {
			logger.Errorf("clear chunk progress for %s: %v", session.SessionID, err)
		}
		if err := s.sessions.DeleteByID(ctx, nil, session.ID); err != nil {
			logger.Errorf("delete upload session %s: %v", session.SessionID, err)
			continue
		}
		cleaned++
	}

	if cleaned > 0 {
		logger.Infof("cleaned %d expired upload sessions", cleaned)
	}
	return cleaned
}
