package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/LJTian/FeedBot/internal/collector"
	"github.com/LJTian/FeedBot/internal/processor"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type memorySink struct {
	posts      []*Post
	messages   []OutboxMessage
	enqueueErr error
}

func (m *memorySink) SavePost(_ context.Context, p *Post) error {
	m.posts = append(m.posts, p)
	return nil
}

func (m *memorySink) Enqueue(_ context.Context, msg OutboxMessage) error {
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.messages = append(m.messages, msg)
	return nil
}

// InTx 先写入暂存副本，fn 成功后再提交，模拟数据库事务
func (m *memorySink) InTx(_ context.Context, fn func(sink postSink) error) error {
	staged := &memorySink{
		posts:      append([]*Post(nil), m.posts...),
		messages:   append([]OutboxMessage(nil), m.messages...),
		enqueueErr: m.enqueueErr,
	}
	if err := fn(staged); err != nil {
		return err
	}
	m.posts, m.messages = staged.posts, staged.messages
	return nil
}

func TestTruncateRunesDB(t *testing.T) {
	if got := truncateRunesDB("  你好世界  ", 2); got != "你好" {
		t.Fatalf("truncateRunesDB = %q, want 你好", got)
	}
	if got := truncateRunesDB("short", 10); got != "short" {
		t.Fatalf("truncateRunesDB should keep short strings: %q", got)
	}
	if got := truncateRunesDB("anything", 0); got != "" {
		t.Fatalf("limit 0 should return empty, got %q", got)
	}
}

func TestToValidUTF8(t *testing.T) {
	if got := toValidUTF8("ok\xffok"); got != "ok\uFFFDok" {
		t.Fatalf("toValidUTF8 = %q", got)
	}
}

func TestCacheKeys(t *testing.T) {
	if got := postsCacheKey(20, "2024-05-01"); got != "posts:list:20:2024-05-01" {
		t.Fatalf("postsCacheKey = %q", got)
	}
	if got := datesCacheKey(31); got != "posts:dates:31" {
		t.Fatalf("datesCacheKey = %q", got)
	}
	if got := outboxKey("cyberdeck-news-bot"); got != "bot:cyberdeck-news-bot:outbox" {
		t.Fatalf("outboxKey = %q", got)
	}
}

func TestSessionSavesThenEnqueues(t *testing.T) {
	sink := &memorySink{}
	s, err := newSession("https://bot.example.com", sink)
	if err != nil {
		t.Fatalf("newSession error: %v", err)
	}

	published := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	e := collector.Entry{
		Title:       collector.Some("New deck"),
		Link:        collector.Some("https://example.com/deck"),
		PublishedAt: collector.Some(published),
		Summary:     "summary",
		Source:      "https://example.com/feed",
	}
	if err := s.Publish(context.Background(), e); err != nil {
		t.Fatalf("Publish error: %v", err)
	}

	if len(sink.posts) != 1 || len(sink.messages) != 1 {
		t.Fatalf("expected 1 post and 1 message, got %d/%d", len(sink.posts), len(sink.messages))
	}
	p := sink.posts[0]
	if p.EntryID != processor.EntryID("https://example.com/deck") || p.Identity != "https://bot.example.com" {
		t.Fatalf("unexpected post %+v", p)
	}
	if !p.PublishedAt.Equal(published) || p.Source != "https://example.com/feed" {
		t.Fatalf("unexpected post fields %+v", p)
	}
	if msg := sink.messages[0]; msg.Content != "New deck\nhttps://example.com/deck" {
		t.Fatalf("unexpected content %q", msg.Content)
	}
}

func TestSessionEnqueueFailureIsPublishFailure(t *testing.T) {
	sink := &memorySink{enqueueErr: errors.New("redis down")}
	s, _ := newSession("https://bot.example.com", sink)

	e := collector.Entry{
		Title:       collector.Some("t"),
		Link:        collector.Some("https://example.com/t"),
		PublishedAt: collector.Some(time.Now()),
	}
	if err := s.Publish(context.Background(), e); err == nil {
		t.Fatalf("expected error when enqueue fails")
	}
	if len(sink.posts) != 0 || len(sink.messages) != 0 {
		t.Fatalf("failed publish must not leave a post behind, posts=%d messages=%d", len(sink.posts), len(sink.messages))
	}
}

func TestSessionRejectsIncompleteEntry(t *testing.T) {
	sink := &memorySink{}
	s, _ := newSession("https://bot.example.com", sink)

	e := collector.Entry{Title: collector.Some("t"), Link: collector.None[string](), PublishedAt: collector.Some(time.Now())}
	if err := s.Publish(context.Background(), e); err == nil {
		t.Fatalf("expected error for entry without link")
	}
	if len(sink.posts) != 0 {
		t.Fatalf("incomplete entry must not be saved")
	}
}

func TestNewSessionRequiresIdentity(t *testing.T) {
	if _, err := newSession("", &memorySink{}); err == nil {
		t.Fatalf("expected error for empty identity")
	}
}

// dryRunDB 只生成 SQL，不连接数据库
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.Open("host=localhost user=feedbot dbname=feedbot sslmode=disable"), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	if err != nil {
		t.Fatalf("open dry-run db: %v", err)
	}
	return db
}

func TestPostsQueryOrdersByPublishedAt(t *testing.T) {
	var list []Post
	stmt := postsQuery(dryRunDB(t), 5, "2024-05-01").Find(&list).Statement
	sql := stmt.SQL.String()

	if !strings.Contains(sql, "ORDER BY published_at DESC") {
		t.Fatalf("posts should be ordered by published_at desc: %s", sql)
	}
	if !strings.Contains(sql, "published_date = ") {
		t.Fatalf("date filter missing: %s", sql)
	}
	if strings.Contains(sql, "created_at") {
		t.Fatalf("posts must not be ordered by created_at: %s", sql)
	}
}
