package processor

import (
	"crypto/sha1"
	"encoding/hex"
	"time"

	"github.com/LJTian/FeedBot/internal/collector"
)

// DefaultLimit 单轮最多发布的条目数
const DefaultLimit = 10

// NoveltyFilter 从聚合后的条目中挑选“今天的新条目”：
// 必需字段齐全、发布日期与当前同一天、链接在本轮未出现过，且总数不超过 Limit。
type NoveltyFilter struct {
	Limit    int
	Location *time.Location
}

func NewNoveltyFilter(loc *time.Location) *NoveltyFilter {
	return &NoveltyFilter{Limit: DefaultLimit, Location: loc}
}

// Select 按输入顺序扫描，先出现者优先占用名额与链接
func (f *NoveltyFilter) Select(entries []collector.Entry, now time.Time) []collector.Entry {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	loc := f.location()

	out := make([]collector.Entry, 0, min(limit, len(entries)))
	seen := make(map[string]struct{})

	for _, e := range entries {
		if len(out) >= limit {
			break
		}

		link, ok := e.Link.Get()
		if !ok {
			continue
		}
		if !e.Title.Present() {
			continue
		}
		publishedAt, ok := e.PublishedAt.Get()
		if !ok {
			continue
		}

		if !SameDay(publishedAt, now, loc) {
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}

		seen[link] = struct{}{}
		out = append(out, e)
	}

	return out
}

func (f *NoveltyFilter) location() *time.Location {
	if f.Location != nil {
		return f.Location
	}
	return time.Local
}

// SameDay 在 loc 时区下比较两个时间是否属于同一自然日
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// EntryID 以链接的 sha1 作为条目 ID
func EntryID(link string) string {
	return hashURL(link)
}

func hashURL(url string) string {
	h := sha1.New()
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}
