package collector

import (
	"context"
	"log"
	"sync"
)

// Gatherer 拉取并解析所有订阅源，单个源失败只记录警告，不影响其它源
type Gatherer struct {
	fetcher     Fetcher
	parser      Parser
	concurrency int
}

func NewGatherer(f Fetcher, p Parser, concurrency int) *Gatherer {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Gatherer{fetcher: f, parser: p, concurrency: concurrency}
}

// FetchAll 返回与 sources 一一对应、顺序一致的结果
func (g *Gatherer) FetchAll(ctx context.Context, sources []string) []Result {
	results := make([]Result, len(sources))

	if g.concurrency == 1 {
		for i, src := range sources {
			results[i] = g.fetchOne(ctx, src)
		}
		return results
	}

	// 并发拉取时按下标回写，保证聚合顺序与配置顺序一致
	var (
		wg  sync.WaitGroup
		sem = make(chan struct{}, g.concurrency)
	)
	for i, src := range sources {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, src string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = g.fetchOne(ctx, src)
		}(i, src)
	}
	wg.Wait()

	return results
}

func (g *Gatherer) fetchOne(ctx context.Context, src string) Result {
	raw, err := g.fetcher.Fetch(ctx, src)
	if err != nil {
		return Result{Source: src, Err: err}
	}
	entries, err := g.parser.Parse(raw)
	if err != nil {
		return Result{Source: src, Err: err}
	}
	for i := range entries {
		entries[i].Source = src
	}
	return Result{Source: src, Entries: entries}
}

// Gather 拉取全部订阅源并拼接成功源的条目
func (g *Gatherer) Gather(ctx context.Context, sources []string) []Entry {
	ok, failed := Partition(g.FetchAll(ctx, sources))
	for _, r := range failed {
		log.Printf("warn: could not fetch or parse %s: %v", r.Source, r.Err)
	}

	batches := make([][]Entry, 0, len(ok))
	for _, r := range ok {
		batches = append(batches, r.Entries)
	}
	entries := Aggregate(batches...)

	log.Printf("gather done, sources=%d failed=%d entries=%d", len(sources), len(failed), len(entries))
	return entries
}
