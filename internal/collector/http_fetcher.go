package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
)

const (
	defaultUserAgent   = "FeedNoveltyBot/1.0"
	defaultTimeout     = 15 * time.Second
	defaultMaxBodySize = 5 << 20 // 5MB
)

// HTTPFetcher 使用 colly 发起 GET 并返回完整响应文本；非 2xx 状态由 colly 以错误返回
type HTTPFetcher struct {
	UserAgent   string
	Timeout     time.Duration
	MaxBodySize int
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		UserAgent:   defaultUserAgent,
		Timeout:     timeout,
		MaxBodySize: defaultMaxBodySize,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ua := f.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	maxBody := f.MaxBodySize
	if maxBody <= 0 {
		maxBody = defaultMaxBodySize
	}
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	// 每次拉取使用独立的 collector，允许同一 URL 在不同轮次重复访问
	c := colly.NewCollector(
		colly.UserAgent(ua),
		colly.AllowURLRevisit(),
		colly.MaxBodySize(maxBody),
	)
	c.SetRequestTimeout(timeout)

	var body []byte
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})

	if err := c.Visit(url); err != nil {
		return "", fmt.Errorf("collector: get %s: %w", url, err)
	}
	return string(body), nil
}
