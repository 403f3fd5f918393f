package main

import (
	"log"

	"github.com/LJTian/FeedBot/internal/api"
	"github.com/LJTian/FeedBot/internal/collector"
	"github.com/LJTian/FeedBot/internal/config"
	"github.com/LJTian/FeedBot/internal/processor"
	"github.com/LJTian/FeedBot/internal/publisher"
	"github.com/LJTian/FeedBot/internal/scheduler"
	"github.com/LJTian/FeedBot/internal/storage"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr, cfg.BotUsername, cfg.Location)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}

	// 确保各个订阅源存在
	for _, url := range cfg.Feeds {
		if _, err := store.EnsureSource(url); err != nil {
			log.Fatalf("ensure source %s failed: %v", url, err)
		}
	}

	gatherer := collector.NewGatherer(
		collector.NewHTTPFetcher(cfg.FetchTimeout),
		collector.NewFeedParser(),
		cfg.FetchConcurrency,
	)

	s, err := scheduler.New(scheduler.Options{
		CronSpec: cfg.CronSpec,
		Sources:  cfg.Feeds,
		Identity: cfg.BotIdentity,
		Gatherer: gatherer,
		Filter:   processor.NewNoveltyFilter(cfg.Location),
		Provider: store,
	})
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	s.Start()

	// API
	r := gin.Default()
	// 若配置了全局访问密码，则启用 Basic Auth 保护（/health 仍然免认证）
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		r.Use(api.BasicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}

	apiServer := api.NewServer(store, s, publisher.Profile{
		Identity: cfg.BotIdentity,
		Username: cfg.BotUsername,
		Name:     cfg.BotName,
		Summary:  cfg.BotSummary,
	})
	apiServer.RegisterRoutes(r)

	addr := ":" + cfg.AppPort
	log.Printf("starting api server at %s ...", addr)
	if err := r.Run(addr); err != nil {
		// log.Fatalf 不会执行 defer，先停止调度并等待进行中的任务
		s.Stop()
		log.Fatalf("server exit: %v", err)
	}
}
