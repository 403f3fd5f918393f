package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Source 描述一个订阅源
type Source struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	URL    string `gorm:"size:1024;uniqueIndex" json:"url"`
	Status string `gorm:"size:32;index" json:"status"` // active / disabled

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Post 已发布条目的记录。同一链接可能出现多次：是否“新”由筛选逻辑决定，存储层只记录
type Post struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	EntryID       string            `gorm:"size:40;index" json:"entryId"` // sha1(url)
	Identity      string            `gorm:"size:256;index" json:"identity"`
	Title         string            `gorm:"size:512" json:"title"`
	URL           string            `gorm:"size:1024;index" json:"url"`
	Summary       string            `gorm:"size:600" json:"summary"`
	Source        string            `gorm:"size:1024" json:"source"`
	PublishedAt   time.Time         `gorm:"index" json:"publishedAt"`
	PublishedDate string            `gorm:"size:10;index" json:"publishedDate"` // 日期 YYYY-MM-DD，按机器人时区
	ExtraData     datatypes.JSONMap `gorm:"type:jsonb" json:"extraData"`

	CreatedAt time.Time `json:"createdAt"`
}

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client

	// 出队消费由投递服务负责，这里只负责入队
	outboxKey string
	loc       *time.Location
}

func NewStore(dsn, redisAddr, username string, loc *time.Location) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Source{}, &Post{}); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("warn: redis ping failed: %v", err)
	}

	if loc == nil {
		loc = time.Local
	}
	return &Store{DB: db, Redis: rdb, outboxKey: outboxKey(username), loc: loc}, nil
}

func outboxKey(username string) string {
	return fmt.Sprintf("bot:%s:outbox", username)
}

// EnsureSource 确保某个订阅源存在
func (s *Store) EnsureSource(url string) (*Source, error) {
	src := &Source{}
	if err := s.DB.Where("url = ?", url).First(src).Error; err == nil {
		return src, nil
	}

	src = &Source{
		URL:    url,
		Status: "active",
	}
	if err := s.DB.Create(src).Error; err != nil {
		return nil, err
	}
	return src, nil
}

// ListSources 按创建顺序返回订阅源
func (s *Store) ListSources() ([]Source, error) {
	var list []Source
	err := s.DB.Order("id ASC").Find(&list).Error
	return list, err
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// truncateRunesDB 按 rune 数截断字符串，确保不会超过数据库字段长度
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}

// SavePost 写入一条发布记录
func (s *Store) SavePost(ctx context.Context, p *Post) error {
	p.Title = truncateRunesDB(toValidUTF8(p.Title), 512)
	p.Summary = truncateRunesDB(toValidUTF8(p.Summary), 600)
	if p.PublishedDate == "" {
		p.PublishedDate = p.PublishedAt.In(s.loc).Format("2006-01-02")
	}
	if err := s.DB.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("storage: save post %s: %w", p.URL, err)
	}
	return nil
}

// InTx 在同一数据库事务中执行 fn，fn 返回错误时回滚本次写入的发布记录
func (s *Store) InTx(ctx context.Context, fn func(sink postSink) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{DB: tx, Redis: s.Redis, outboxKey: s.outboxKey, loc: s.loc})
	})
}

// Enqueue 将待投递消息追加到 Redis 队列尾部
func (s *Store) Enqueue(ctx context.Context, msg OutboxMessage) error {
	if s.Redis == nil {
		return fmt.Errorf("storage: redis not configured")
	}
	bs, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := s.Redis.RPush(ctx, s.outboxKey, bs).Err(); err != nil {
		return fmt.Errorf("storage: enqueue %s: %w", msg.URL, err)
	}
	return nil
}

const listCacheTTL = 5 * time.Minute

func postsCacheKey(limit int, date string) string {
	return fmt.Sprintf("posts:list:%d:%s", limit, date)
}

func datesCacheKey(limit int) string {
	return fmt.Sprintf("posts:dates:%d", limit)
}

// ListPosts 按发布时间倒序返回发布记录，date 可选（YYYY-MM-DD），结果缓存 5 分钟
func (s *Store) ListPosts(limit int, date string) ([]Post, error) {
	if limit <= 0 || limit > 1000 {
		limit = 20
	}

	ctx := context.Background()
	cacheKey := postsCacheKey(limit, date)

	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []Post
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var list []Post
	if err := postsQuery(s.DB, limit, date).Find(&list).Error; err != nil {
		return nil, err
	}

	// 不主动失效缓存，依赖短 TTL 自然过期
	if s.Redis != nil && len(list) > 0 {
		if bs, err := json.Marshal(list); err == nil {
			_ = s.Redis.Set(ctx, cacheKey, bs, listCacheTTL).Err()
		}
	}

	return list, nil
}

// postsQuery 按条目发布时间倒序
func postsQuery(db *gorm.DB, limit int, date string) *gorm.DB {
	q := db.Model(&Post{})
	if date != "" {
		q = q.Where("published_date = ?", date)
	}
	return q.Order("published_at DESC").Limit(limit)
}

// ListPublishedDates 返回有发布记录的日期列表（倒序）
func (s *Store) ListPublishedDates(limit int) ([]string, error) {
	if limit <= 0 || limit > 365 {
		limit = 31
	}
	ctx := context.Background()
	cacheKey := datesCacheKey(limit)
	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []string
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var dates []string
	err := s.DB.Model(&Post{}).
		Distinct("published_date").
		Where("published_date <> ''").
		Order("published_date DESC").
		Limit(limit).
		Pluck("published_date", &dates).Error
	if err != nil {
		return nil, err
	}

	if s.Redis != nil && len(dates) > 0 {
		if bs, err := json.Marshal(dates); err == nil {
			_ = s.Redis.Set(ctx, cacheKey, bs, listCacheTTL).Err()
		}
	}
	return dates, nil
}
