package pipeline

import (
	"context"
	"time"

	"github.com/LJTian/FeedBot/internal/collector"
	"github.com/LJTian/FeedBot/internal/processor"
	"github.com/LJTian/FeedBot/internal/publisher"
)

// Gatherer 拉取全部订阅源并返回按源顺序拼接的条目，单源失败不返回错误
type Gatherer interface {
	Gather(ctx context.Context, sources []string) []collector.Entry
}

// Report 单轮执行的统计
type Report struct {
	Fetched   int
	Selected  int
	Published int
}

// Run 单轮执行：采集 -> 筛选 -> 逐条发布。
// 只依赖入参（订阅源、当前时间、发布通道），不依赖真实调度器。
func Run(ctx context.Context, g Gatherer, f *processor.NoveltyFilter, sources []string, now time.Time, s publisher.Session) (Report, error) {
	entries := g.Gather(ctx, sources)
	selected := f.Select(entries, now)

	rep := Report{Fetched: len(entries), Selected: len(selected)}
	n, err := publisher.Publish(ctx, s, selected)
	rep.Published = n
	if err != nil {
		return rep, err
	}
	return rep, nil
}
