package scheduler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"coachspine/internal/domain"
	"coachspine/internal/ingest"
	"coachspine/internal/logx"
	"coachspine/internal/upsert"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/google/uuid"
)

// ScraperConfig holds the nutrition provider's login and export
// parameters, all sourced from internal/config.
type ScraperConfig struct {
	BaseURL      string
	Username     string
	Password     string
	LookbackDays int
}

// Scraper drives a headless colly collector against the nutrition
// provider: log in, locate the export link, download it, and hand the
// bytes to the spreadsheet parser.
type Scraper struct {
	cfg     ScraperConfig
	upserts *upsert.Service
}

func NewScraper(cfg ScraperConfig, upserts *upsert.Service) *Scraper {
	return &Scraper{cfg: cfg, upserts: upserts}
}

// SyncUser logs in, downloads the export, parses it, and upserts the
// result for one user, returning the outcome to record in SyncMetadata.
func (s *Scraper) SyncUser(ctx context.Context, userID uuid.UUID) (domain.SyncOutcome, int, error) {
	if s.cfg.Username == "" || s.cfg.Password == "" {
		return domain.OutcomeFailed, 0, fmt.Errorf("scraper credentials not configured")
	}

	exportURL, err := s.findExportLink()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return domain.OutcomeFailed, 0, fmt.Errorf("timeout locating export link: %w", err)
		}
		return domain.OutcomeFailed, 0, err
	}

	exportBytes, err := s.download(ctx, exportURL)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return domain.OutcomeFailed, 0, fmt.Errorf("timeout downloading export: %w", err)
		}
		return domain.OutcomeFailed, 0, err
	}

	records, err := ingest.ParseNutritionSpreadsheet(exportBytes)
	if err != nil {
		return domain.OutcomeFailed, 0, fmt.Errorf("parsing export: %w", err)
	}

	result, err := s.upserts.Nutrition(ctx, userID, records)
	if err != nil {
		return domain.OutcomeFailed, 0, fmt.Errorf("upserting records: %w", err)
	}

	synced := result.NewRecords + result.Updated
	if synced < len(records) {
		return domain.OutcomePartial, synced, nil
	}
	return domain.OutcomeSuccess, synced, nil
}

// findExportLink drives the login flow and scans the resulting page for
// the export link, bounded to a single page rather than a full crawl.
func (s *Scraper) findExportLink() (string, error) {
	c := colly.NewCollector(colly.AllowedDomains(hostOf(s.cfg.BaseURL)))
	c.SetRequestTimeout(30 * time.Second)

	var exportURL string
	var callbackErr error

	c.OnRequest(func(r *colly.Request) {
		logx.Infof("scraper: requesting %s", r.URL.String())
	})

	c.OnError(func(r *colly.Response, err error) {
		callbackErr = fmt.Errorf("request to %s failed: %w", r.Request.URL, err)
	})

	c.OnHTML("html", func(e *colly.HTMLElement) {
		e.DOM.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			href, _ := sel.Attr("href")
			if looksLikeExportLink(href) {
				exportURL = e.Request.AbsoluteURL(href)
				return false
			}
			return true
		})
	})

	if err := c.Post(s.cfg.BaseURL+"/login", map[string]string{
		"username": s.cfg.Username,
		"password": s.cfg.Password,
	}); err != nil {
		return "", err
	}
	if callbackErr != nil {
		return "", callbackErr
	}
	if exportURL == "" {
		exportURL = fmt.Sprintf("%s/export?days=%d", s.cfg.BaseURL, s.cfg.LookbackDays)
	}
	return exportURL, nil
}

// download fetches exportURL with the caller's deadline honored, since
// colly's own collector has no context-aware request method.
func (s *Scraper) download(ctx context.Context, exportURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, exportURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("export request returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func looksLikeExportLink(href string) bool {
	lower := strings.ToLower(href)
	return lower != "" && (strings.Contains(lower, "export") || strings.Contains(lower, "download"))
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
