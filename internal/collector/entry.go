package collector

import (
	"context"
	"time"
)

// Entry 统一解析后的订阅条目；Title/Link/PublishedAt 可能缺失，需显式判断
type Entry struct {
	Title       Optional[string]
	Link        Optional[string] // 只保留第一个链接
	PublishedAt Optional[time.Time]

	// 以下字段只用于展示与入库，不参与筛选
	Summary string
	Source  string
}

// Usable 三个必需字段逐个检查，任一缺失即不可用
func (e Entry) Usable() bool {
	if !e.Title.Present() {
		return false
	}
	if !e.Link.Present() {
		return false
	}
	if !e.PublishedAt.Present() {
		return false
	}
	return true
}

// Parser 将原始订阅文档解析为条目序列
type Parser interface {
	Parse(raw string) ([]Entry, error)
}

// Fetcher 抽象按 URL 拉取原始文档
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}
