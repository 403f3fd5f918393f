package publisher

import (
	"context"
	"fmt"
	"log"

	"github.com/LJTian/FeedBot/internal/collector"
)

// Session 已认证的发布通道，每次调用发布一条条目
type Session interface {
	Publish(ctx context.Context, e collector.Entry) error
}

// SessionProvider 按身份获取发布通道，每轮执行只获取一次
type SessionProvider interface {
	GetSession(ctx context.Context, identity string) (Session, error)
}

// Profile 机器人的对外身份信息
type Profile struct {
	Identity string `json:"identity"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Summary  string `json:"summary"`
}

// Publish 按顺序逐条发布，任意一条失败即中止，返回已成功发布的数量
func Publish(ctx context.Context, s Session, entries []collector.Entry) (int, error) {
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return i, fmt.Errorf("publisher: aborted before entry %d: %w", i, err)
		}
		if err := s.Publish(ctx, e); err != nil {
			return i, fmt.Errorf("publisher: publish %s: %w", e.Link.OrElse("<no link>"), err)
		}
	}
	return len(entries), nil
}

// LogSession 只打印不投递，用于 dry-run
type LogSession struct {
	Identity string
}

func (s *LogSession) Publish(_ context.Context, e collector.Entry) error {
	log.Printf("dry-run publish as %s: %s %s", s.Identity, e.Title.OrElse(""), e.Link.OrElse(""))
	return nil
}

// LogSessionProvider 为任意身份返回 LogSession
type LogSessionProvider struct{}

func (LogSessionProvider) GetSession(_ context.Context, identity string) (Session, error) {
	return &LogSession{Identity: identity}, nil
}
