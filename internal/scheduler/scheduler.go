package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/LJTian/FeedBot/internal/config"
	"github.com/LJTian/FeedBot/internal/pipeline"
	"github.com/LJTian/FeedBot/internal/processor"
	"github.com/LJTian/FeedBot/internal/publisher"
	"github.com/robfig/cron/v3"
)

// Options 进程启动时确定、各轮复用的配置
type Options struct {
	CronSpec string
	Sources  []string
	Identity string
	Gatherer pipeline.Gatherer
	Filter   *processor.NoveltyFilter
	Provider publisher.SessionProvider

	// 为空时使用 config.Now
	Clock func() time.Time
}

type Scheduler struct {
	cron *cron.Cron
	opts Options

	// 手动触发与定时任务串行执行
	mu sync.Mutex
}

func New(opts Options) (*Scheduler, error) {
	if opts.Gatherer == nil || opts.Filter == nil || opts.Provider == nil {
		return nil, fmt.Errorf("scheduler: gatherer, filter and provider are required")
	}
	if opts.Clock == nil {
		opts.Clock = config.Now
	}

	c := cron.New()
	s := &Scheduler{
		cron: c,
		opts: opts,
	}

	_, err := c.AddFunc(opts.CronSpec, func() {
		_ = s.RunOnce(context.Background())
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce 对外暴露的单次执行入口，方便手动触发
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Println("start publish job...")
	rep, err := s.runOnce(ctx)
	if err != nil {
		log.Printf("error: run failed: %v", err)
		return err
	}
	log.Printf("%d entries published successfully (fetched=%d selected=%d)", rep.Published, rep.Fetched, rep.Selected)
	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) (pipeline.Report, error) {
	now := s.opts.Clock()

	session, err := s.opts.Provider.GetSession(ctx, s.opts.Identity)
	if err != nil {
		return pipeline.Report{}, fmt.Errorf("get session for %s: %w", s.opts.Identity, err)
	}

	return pipeline.Run(ctx, s.opts.Gatherer, s.opts.Filter, s.opts.Sources, now, session)
}
