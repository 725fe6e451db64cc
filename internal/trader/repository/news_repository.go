package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"momentum-trader/internal/trader/config"
	"momentum-trader/internal/trader/dto"
	"momentum-trader/pkg/logger"
	"momentum-trader/pkg/utils"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/patrickmn/go-cache"
)

const feedCacheKey = "feed-items"

// assetNames maps base assets to the names headlines usually spell out.
var assetNames = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"SOL":   "solana",
	"ADA":   "cardano",
	"XRP":   "ripple",
	"DOGE":  "dogecoin",
	"AVAX":  "avalanche",
	"DOT":   "polkadot",
	"LINK":  "chainlink",
	"MATIC": "polygon",
	"BNB":   "binance coin",
	"LTC":   "litecoin",
	"SHIB":  "shiba inu",
	"ARB":   "arbitrum",
	"OP":    "optimism",
}

type rssNewsRepository struct {
	feeds  []string
	log    *logger.Logger
	parser *gofeed.Parser
	cache  *cache.Cache
	mu     sync.Mutex
}

// NewRSSNewsRepository creates a NewsRepository that reads the configured RSS feeds.
func NewRSSNewsRepository(cfg config.News, log *logger.Logger) NewsRepository {
	return &rssNewsRepository{
		feeds:  cfg.Feeds,
		log:    log,
		parser: gofeed.NewParser(),
		cache:  cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
	}
}

// GetHeadlines returns the newest headlines mentioning the symbol's base asset.
// Feed failures are logged and skipped; headlines are optional context.
func (r *rssNewsRepository) GetHeadlines(ctx context.Context, symbol string, limit int) ([]dto.NewsItem, error) {
	items := r.loadFeeds(ctx)

	base := utils.BaseAsset(symbol)
	name := assetNames[base]

	var matched []dto.NewsItem
	for _, item := range items {
		if mentions(item, base, name) {
			matched = append(matched, item)
		}
		if limit > 0 && len(matched) >= limit {
			break
		}
	}
	return matched, nil
}

func (r *rssNewsRepository) loadFeeds(ctx context.Context) []dto.NewsItem {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, found := r.cache.Get(feedCacheKey); found {
		return cached.([]dto.NewsItem)
	}

	var items []dto.NewsItem
	for _, url := range r.feeds {
		feed, err := r.parser.ParseURLWithContext(url, ctx)
		if err != nil {
			r.log.WarnContext(ctx, "Failed to parse RSS feed", logger.ErrorField(err), logger.StringField("url", url))
			continue
		}
		for _, it := range feed.Items {
			items = append(items, toNewsItem(feed.Title, it))
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
	r.cache.SetDefault(feedCacheKey, items)
	return items
}

func toNewsItem(source string, it *gofeed.Item) dto.NewsItem {
	item := dto.NewsItem{
		Title:   strings.TrimSpace(it.Title),
		Summary: stripHTML(it.Description),
		Link:    it.Link,
		Source:  source,
	}
	if it.PublishedParsed != nil {
		item.PublishedAt = it.PublishedParsed.UTC()
	} else if it.UpdatedParsed != nil {
		item.PublishedAt = it.UpdatedParsed.UTC()
	}
	return item
}

func stripHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func mentions(item dto.NewsItem, base, name string) bool {
	text := " " + strings.ToUpper(item.Title+" "+item.Summary) + " "
	for _, sep := range []string{" ", "$", "(", "/"} {
		if strings.Contains(text, sep+base+" ") || strings.Contains(text, sep+base+",") || strings.Contains(text, sep+base+")") {
			return true
		}
	}
	return name != "" && strings.Contains(strings.ToLower(text), name)
}
