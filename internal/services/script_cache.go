package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/chalkboard-backend/internal/logger"
	"github.com/yungbote/chalkboard-backend/internal/script"
)

// ScriptCache keeps hot lesson scripts out of postgres on the playback
// path. Scripts are immutable once ready, so a plain TTL is enough.
type ScriptCache interface {
	Get(ctx context.Context, lessonID uuid.UUID) (*script.Script, bool)
	Set(ctx context.Context, lessonID uuid.UUID, s *script.Script)
	Invalidate(ctx context.Context, lessonID uuid.UUID)
}

type scriptCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewScriptCache(log *logger.Logger) (ScriptCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &scriptCache{
		log: log.With("service", "ScriptCache"),
		rdb: rdb,
		ttl: time.Hour,
	}, nil
}

func cacheKey(lessonID uuid.UUID) string {
	return "lesson_script:" + lessonID.String()
}

func (c *scriptCache) Get(ctx context.Context, lessonID uuid.UUID) (*script.Script, bool) {
	raw, err := c.rdb.Get(ctx, cacheKey(lessonID)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.log.Warn("Script cache read failed", "lesson_id", lessonID, "error", err)
		}
		return nil, false
	}
	var s script.Script
	if err := json.Unmarshal(raw, &s); err != nil {
		c.log.Warn("Script cache entry corrupt, dropping", "lesson_id", lessonID, "error", err)
		_ = c.rdb.Del(ctx, cacheKey(lessonID)).Err()
		return nil, false
	}
	return &s, true
}

func (c *scriptCache) Set(ctx context.Context, lessonID uuid.UUID, s *script.Script) {
	raw, err := json.Marshal(s)
	if err != nil {
		c.log.Warn("Script cache marshal failed", "lesson_id", lessonID, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(lessonID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("Script cache write failed", "lesson_id", lessonID, "error", err)
	}
}

func (c *scriptCache) Invalidate(ctx context.Context, lessonID uuid.UUID) {
	if err := c.rdb.Del(ctx, cacheKey(lessonID)).Err(); err != nil {
		c.log.Warn("Script cache invalidate failed", "lesson_id", lessonID, "error", err)
	}
}
