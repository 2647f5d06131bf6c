package repositories

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisChunkProgressRepository struct {
	redis *redis.Client
}

func NewRedisChunkProgressRepository(redisClient *redis.Client) *RedisChunkProgressRepository {
	return &RedisChunkProgressRepository{redis: redisClient}
}

func sessionChunkKey(sessionID string) string {
	return fmt.Sprintf("upload:%s:chunks", sessionID)
}

func (r *RedisChunkProgressRepository) AddChunk(ctx context.Context, sessionID string, index int, expireSeconds int) error {
	key := sessionChunkKey(sessionID)
	if err := r.redis.SAdd(ctx, key, index).Err(); err != nil {
		return err
	}
	if expireSeconds > 0 {
		return r.redis.Expire(ctx, key, time.Duration(expireSeconds)*time.Second).Err()
	}
	return nil
}

func (r *RedisChunkProgressRepository) PresentCount(ctx context.Context, sessionID string) (int64, error) {
	return r.redis.SCard(ctx, sessionChunkKey(sessionID)).Result()
}

func (r *RedisChunkProgressRepository) PresentIndices(ctx context.Context, sessionID string) ([]int, error) {
	members, err := r.redis.SMembers(ctx, sessionChunkKey(sessionID)).Result()
	if err != nil {
		return nil, err
	}
	result := make([]int, 0, len(members))
	for _, member := range members {
		idx, convErr := strconv.Atoi(member)
		if convErr != nil {
			continue
		}
		result = append(result, idx)
	}
	return result, nil
}

func (r *RedisChunkProgressRepository) Clear(ctx context.Context, sessionID string) error {
	return r.redis.Del(ctx, sessionChunkKey(sessionID)).Err()
}
