package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LJTian/FeedBot/internal/collector"
	"github.com/LJTian/FeedBot/internal/processor"
	"github.com/LJTian/FeedBot/internal/publisher"
	"gorm.io/datatypes"
)

// OutboxMessage 投递队列中的消息
type OutboxMessage struct {
	EntryID     string    `json:"entryId"`
	Identity    string    `json:"identity"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
	Content     string    `json:"content"`
}

// postSink 发布通道依赖的存储能力
type postSink interface {
	SavePost(ctx context.Context, p *Post) error
	Enqueue(ctx context.Context, msg OutboxMessage) error
}

// postLedger 提供事务边界，入队失败时已写入的记录随事务回滚
type postLedger interface {
	InTx(ctx context.Context, fn func(sink postSink) error) error
}

// Session 在同一事务内落库并入队，两步都成功才算发布成功
type Session struct {
	identity string
	ledger   postLedger
}

// GetSession 实现 publisher.SessionProvider
func (s *Store) GetSession(_ context.Context, identity string) (publisher.Session, error) {
	return newSession(identity, s)
}

func newSession(identity string, ledger postLedger) (*Session, error) {
	if identity == "" {
		return nil, errors.New("storage: empty identity")
	}
	return &Session{identity: identity, ledger: ledger}, nil
}

func (s *Session) Publish(ctx context.Context, e collector.Entry) error {
	title, ok := e.Title.Get()
	if !ok {
		return errors.New("storage: entry without title")
	}
	link, ok := e.Link.Get()
	if !ok {
		return errors.New("storage: entry without link")
	}
	publishedAt, ok := e.PublishedAt.Get()
	if !ok {
		return fmt.Errorf("storage: entry %s without published time", link)
	}

	id := processor.EntryID(link)
	post := &Post{
		EntryID:     id,
		Identity:    s.identity,
		Title:       title,
		URL:         link,
		Summary:     e.Summary,
		Source:      e.Source,
		PublishedAt: publishedAt,
		ExtraData: datatypes.JSONMap{
			"feed": e.Source,
		},
	}
	msg := OutboxMessage{
		EntryID:     id,
		Identity:    s.identity,
		Title:       title,
		URL:         link,
		Summary:     e.Summary,
		PublishedAt: publishedAt,
		Content:     renderContent(title, link),
	}

	return s.ledger.InTx(ctx, func(sink postSink) error {
		if err := sink.SavePost(ctx, post); err != nil {
			return err
		}
		return sink.Enqueue(ctx, msg)
	})
}

func renderContent(title, link string) string {
	return title + "\n" + link
}
