package dataflows

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/dyike/StockScout/config"
	"github.com/dyike/StockScout/internal/models"
)

const googleNewsRSSURL = "https://news.google.com/rss/search"

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	PubDate     string    `xml:"pubDate"`
	Source      rssSource `xml:"source"`
}

type rssSource struct {
	URL  string `xml:"url,attr"`
	Text string `xml:",chardata"`
}

// GoogleNewsClient fetches recent news headlines from the Google News RSS
// feed.
type GoogleNewsClient struct {
	client *resty.Client
	cache  *CacheManager
}

func NewGoogleNewsClient(cfg *config.Config) *GoogleNewsClient {
	cacheDir := filepath.Join(cfg.DataCacheDir, "google_news")
	cache := NewCacheManager(cacheDir, 30*time.Minute, cfg.CacheEnabled)

	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")

	return &GoogleNewsClient{
		client: client,
		cache:  cache,
	}
}

// GetNews searches Google News for query and returns up to maxResults
// articles, newest first per the feed ordering.
func (gnc *GoogleNewsClient) GetNews(query string, maxResults int) ([]models.NewsItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	cacheParams := map[string]interface{}{"query": query, "max": maxResults}
	var cached []models.NewsItem
	if gnc.cache.Get("google_news", "search", cacheParams, &cached) {
		return cached, nil
	}

	feedURL := fmt.Sprintf("%s?q=%s&hl=en-US&gl=US&ceid=US:en",
		googleNewsRSSURL, url.QueryEscape(query))

	var feed rssFeed
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := gnc.client.R().Get(feedURL)
		if err != nil {
			return fmt.Errorf("fetch google news feed: %w", err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("google news feed returned status %d", resp.StatusCode())
		}
		if err := xml.Unmarshal(resp.Body(), &feed); err != nil {
			return fmt.Errorf("parse google news feed: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	articles := make([]models.NewsItem, 0, maxResults)
	for _, item := range feed.Channel.Items {
		if len(articles) >= maxResults {
			break
		}
		articles = append(articles, models.NewsItem{
			Title:       strings.TrimSpace(item.Title),
			URL:         strings.TrimSpace(item.Link),
			Source:      strings.TrimSpace(item.Source.Text),
			PublishedAt: parsePubDate(item.PubDate),
			Snippet:     stripHTML(item.Description),
		})
	}

	gnc.cache.Set("google_news", "search", cacheParams, articles)
	return articles, nil
}

func parsePubDate(raw string) time.Time {
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822} {
		if t, err := time.Parse(layout, strings.TrimSpace(raw)); err == nil {
			return t
		}
	}
	return time.Time{}
}

// stripHTML reduces an RSS description to plain text.
func stripHTML(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(doc.Text())
}
