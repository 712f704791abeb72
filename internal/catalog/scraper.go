package catalog

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly"
	"github.com/jaki95/spotify-downloader/internal/domain"
)

// PageInfo is what the public collection page advertises through its
// OpenGraph tags.
type PageInfo struct {
	Title   string
	Artwork []domain.Artwork
}

// PageScraper reads OpenGraph metadata from public catalog pages. It fills
// in collection artwork when the API returns none.
type PageScraper struct {
	userAgent string
}

func NewPageScraper() *PageScraper {
	return &PageScraper{
		userAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

func (s *PageScraper) Scrape(pageURL string) (*PageInfo, error) {
	var info PageInfo

	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.Async(false),
	)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", s.userAgent)
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.5")
	})

	var visitErr error
	c.OnError(func(r *colly.Response, err error) {
		visitErr = fmt.Errorf("request to %s failed with status %d: %w", r.Request.URL, r.StatusCode, err)
	})

	c.OnHTML("head", func(e *colly.HTMLElement) {
		var current *domain.Artwork
		e.DOM.Find("meta[property]").Each(func(_ int, sel *goquery.Selection) {
			property, _ := sel.Attr("property")
			content := strings.TrimSpace(sel.AttrOr("content", ""))
			switch property {
			case "og:title":
				info.Title = content
			case "og:image":
				info.Artwork = append(info.Artwork, domain.Artwork{URL: content})
				current = &info.Artwork[len(info.Artwork)-1]
			case "og:image:width":
				if current != nil {
					current.Width, _ = strconv.Atoi(content)
				}
			case "og:image:height":
				if current != nil {
					current.Height, _ = strconv.Atoi(content)
				}
			}
		})
	})

	if err := c.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", pageURL, err)
	}
	if visitErr != nil {
		return nil, visitErr
	}

	slog.Debug("Scraped collection page", "url", pageURL, "title", info.Title, "images", len(info.Artwork))
	return &info, nil
}
