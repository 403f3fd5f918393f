package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/LJTian/FeedBot/internal/collector"
	"github.com/LJTian/FeedBot/internal/config"
	"github.com/LJTian/FeedBot/internal/processor"
	"github.com/LJTian/FeedBot/internal/publisher"
	"github.com/LJTian/FeedBot/internal/scheduler"
	"github.com/LJTian/FeedBot/internal/storage"
)

// 一个仅执行一轮发布任务的命令行入口：适合手动触发或交给外部 cron
func main() {
	dryRun := flag.Bool("dry-run", false, "only log selected entries, do not store or enqueue")
	flag.Parse()

	cfg := config.Load()

	var provider publisher.SessionProvider = publisher.LogSessionProvider{}
	if !*dryRun {
		store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr, cfg.BotUsername, cfg.Location)
		if err != nil {
			log.Fatalf("init store failed: %v", err)
		}
		provider = store
	}

	s, err := scheduler.New(scheduler.Options{
		CronSpec: cfg.CronSpec,
		Sources:  cfg.Feeds,
		Identity: cfg.BotIdentity,
		Gatherer: collector.NewGatherer(
			collector.NewHTTPFetcher(cfg.FetchTimeout),
			collector.NewFeedParser(),
			cfg.FetchConcurrency,
		),
		Filter:   processor.NewNoveltyFilter(cfg.Location),
		Provider: provider,
	})
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}

	// 只执行一轮后退出，失败时以非零状态码退出
	if err := s.RunOnce(context.Background()); err != nil {
		os.Exit(1)
	}
}
