package rightmove

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"property-valuation/models"
	"property-valuation/utils"
)

// resultCountJS reads the total number of matches from the search header.
const resultCountJS = `
(function() {
	var el = document.querySelector('span.searchHeader-resultCount');
	return el ? el.textContent.trim() : '';
})()
`

// pageJS extracts result cards and the embedded listing model. The price
// element is a div on sale pages and a span on rental pages.
const pageJS = `
(function(priceTag) {
	var result = { cards: [], metadata: [] };

	var cards = document.querySelectorAll('div.propertyCard-wrapper');
	for (var i = 0; i < cards.length; i++) {
		var card = cards[i];
		var link = card.querySelector('a.propertyCard-priceLink');
		var price = card.querySelector(priceTag + '.propertyCard-priceValue');
		var img = card.querySelector('img');
		if (!link || !price) continue;
		result.cards.push({
			href:  link.getAttribute('href') || '',
			price: (price.textContent || '').trim(),
			image: img ? (img.getAttribute('src') || '') : ''
		});
	}

	var model = window.jsonModel;
	if (model && model.properties) {
		for (var j = 0; j < model.properties.length; j++) {
			var p = model.properties[j];
			var loc = p.location || {};
			result.metadata.push({
				id:             String(p.id),
				displayAddress: p.displayAddress || '',
				latitude:       typeof loc.latitude === 'number' ? loc.latitude : null,
				longitude:      typeof loc.longitude === 'number' ? loc.longitude : null
			});
		}
	} else {
		result.missingModel = true;
	}
	return result;
})(%q)
`

type pageData struct {
	Cards []struct {
		Href  string `json:"href"`
		Price string `json:"price"`
		Image string `json:"image"`
	} `json:"cards"`
	Metadata []struct {
		ID             string   `json:"id"`
		DisplayAddress string   `json:"displayAddress"`
		Latitude       *float64 `json:"latitude"`
		Longitude      *float64 `json:"longitude"`
	} `json:"metadata"`
	MissingModel bool `json:"missingModel"`
}

// BrowserLoader renders search pages in headless Chrome.
type BrowserLoader struct {
	chromeBin   string
	pageTimeout time.Duration
	settle      time.Duration
	logger      *utils.Logger

	once        sync.Once
	startErr    error
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	browserCtx  context.Context
	cancelBrows context.CancelFunc
}

// NewBrowserLoader prepares a loader; Chrome starts on first use.
func NewBrowserLoader(chromeBin string, pageTimeout time.Duration, logger *utils.Logger) *BrowserLoader {
	if pageTimeout <= 0 {
		pageTimeout = 90 * time.Second
	}
	return &BrowserLoader{
		chromeBin:   chromeBin,
		pageTimeout: pageTimeout,
		settle:      2 * time.Second,
		logger:      logger,
	}
}

func (b *BrowserLoader) start() error {
	b.once.Do(func() {
		chromeBin := findChromeBinary(b.chromeBin)
		b.logger.Info("[rightmove] Using browser binary: %q", chromeBin)

		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-setuid-sandbox", true),
			chromedp.UserAgent(userAgent),
		)
		if chromeBin != "" {
			opts = append(opts, chromedp.ExecPath(chromeBin))
		}

		b.allocCtx, b.cancelAlloc = chromedp.NewExecAllocator(context.Background(), opts...)
		// Suppress chromedp log noise
		b.browserCtx, b.cancelBrows = chromedp.NewContext(b.allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
		// An empty Run launches the browser so every tab shares it.
		if err := chromedp.Run(b.browserCtx); err != nil {
			b.startErr = fmt.Errorf("chromedp start browser: %w", err)
		}
	})
	return b.startErr
}

// tab opens a new browser tab bounded by the page timeout and the caller's context.
func (b *BrowserLoader) tab(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := b.start(); err != nil {
		return nil, nil, err
	}
	tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.pageTimeout)

	stop := context.AfterFunc(ctx, cancelTab)
	return tabCtx, func() {
		stop()
		cancelTimeout()
		cancelTab()
	}, nil
}

// ResultCount implements PageLoader.
func (b *BrowserLoader) ResultCount(ctx context.Context, pageURL string) (int, error) {
	tabCtx, cancel, err := b.tab(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()

	var text string
	err = chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(b.settle),
		chromedp.Evaluate(resultCountJS, &text),
	)
	if err != nil {
		return 0, fmt.Errorf("chromedp result count: %w", err)
	}
	return parseResultCount(text)
}

// LoadPage implements PageLoader.
func (b *BrowserLoader) LoadPage(ctx context.Context, pageURL string, category models.Category) (models.RawPage, error) {
	tabCtx, cancel, err := b.tab(ctx)
	if err != nil {
		return models.RawPage{}, err
	}
	defer cancel()

	priceTag := "div"
	if category == models.CategoryRent {
		priceTag = "span"
	}

	var data pageData
	err = chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(b.settle),
		chromedp.Evaluate(fmt.Sprintf(pageJS, priceTag), &data),
	)
	if err != nil {
		return models.RawPage{}, fmt.Errorf("chromedp page scrape: %w", err)
	}
	if data.MissingModel {
		return models.RawPage{}, fmt.Errorf("unable to get property metadata from %s", pageURL)
	}
	return toRawPage(pageURL, category, data), nil
}

// Close shuts the browser down.
func (b *BrowserLoader) Close() {
	if b.cancelBrows != nil {
		b.cancelBrows()
	}
	if b.cancelAlloc != nil {
		b.cancelAlloc()
	}
}

func toRawPage(pageURL string, category models.Category, data pageData) models.RawPage {
	page := models.RawPage{
		URL:       pageURL,
		Category:  category,
		Cards:     make([]models.RawCard, 0, len(data.Cards)),
		Metadata:  make([]models.RawMetadata, 0, len(data.Metadata)),
		ScrapedAt: time.Now(),
	}
	for _, c := range data.Cards {
		page.Cards = append(page.Cards, models.RawCard{Href: c.Href, RawPrice: c.Price, ImageURL: c.Image})
	}
	for _, m := range data.Metadata {
		page.Metadata = append(page.Metadata, models.RawMetadata{
			ID:             m.ID,
			DisplayAddress: m.DisplayAddress,
			Latitude:       m.Latitude,
			Longitude:      m.Longitude,
		})
	}
	return page
}

// parseResultCount reads header text such as "1,234".
func parseResultCount(text string) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("unable to find property result count")
	}
	n, err := strconv.Atoi(strings.ReplaceAll(text, ",", ""))
	if err != nil {
		return 0, fmt.Errorf("unable to parse property result count %q: %w", text, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("property result count is negative: %d", n)
	}
	return n, nil
}

// findChromeBinary locates Chrome/Chromium, preferring the configured path.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
