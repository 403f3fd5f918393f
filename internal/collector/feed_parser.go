package collector

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
)

// FeedParser 基于 gofeed 解析 RSS/Atom 文档，可被多个 goroutine 同时使用
type FeedParser struct{}

func NewFeedParser() *FeedParser {
	return &FeedParser{}
}

// newGofeedParser gofeed.Parser 会懒加载 translator，不能跨 goroutine 共享，每次解析单独创建
func newGofeedParser() *gofeed.Parser {
	fp := gofeed.NewParser()
	fp.AtomTranslator = &publishedOnlyAtomTranslator{}
	return fp
}

// publishedOnlyAtomTranslator 缺少 <published> 时不使用 <updated> 兜底
type publishedOnlyAtomTranslator struct {
	gofeed.DefaultAtomTranslator
}

func (t *publishedOnlyAtomTranslator) Translate(feed interface{}) (*gofeed.Feed, error) {
	out, err := t.DefaultAtomTranslator.Translate(feed)
	if err != nil {
		return nil, err
	}
	af, ok := feed.(*atom.Feed)
	if !ok || out == nil {
		return out, nil
	}
	// 条目与 entry 一一对应
	for i, entry := range af.Entries {
		if i >= len(out.Items) {
			break
		}
		if entry.PublishedParsed == nil {
			out.Items[i].Published = ""
			out.Items[i].PublishedParsed = nil
		}
	}
	return out, nil
}

func (p *FeedParser) Parse(raw string) ([]Entry, error) {
	feed, err := newGofeedParser().ParseString(raw)
	if err != nil {
		return nil, fmt.Errorf("collector: parse feed: %w", err)
	}
	if feed == nil || len(feed.Items) == 0 {
		return nil, nil
	}

	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, convertItem(item))
	}
	return entries, nil
}

func convertItem(item *gofeed.Item) Entry {
	e := Entry{
		Title:       None[string](),
		Link:        None[string](),
		PublishedAt: None[time.Time](),
		Summary:     plainText(item.Description),
	}

	if title := plainText(item.Title); title != "" {
		e.Title = Some(title)
	}
	if link := firstLink(item); link != "" {
		e.Link = Some(link)
	}
	// Atom 的 <updated> 已在 publishedOnlyAtomTranslator 中排除
	if item.PublishedParsed != nil {
		e.PublishedAt = Some(*item.PublishedParsed)
	}
	return e
}

func firstLink(item *gofeed.Item) string {
	if len(item.Links) > 0 {
		return strings.TrimSpace(item.Links[0])
	}
	return strings.TrimSpace(item.Link)
}

// plainText 去掉 HTML 标签与实体，并压缩空白
func plainText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err == nil {
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}
