package services

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/maxaizer/divar-watcher/internal/clients/divar"
	"github.com/maxaizer/divar-watcher/internal/domain/models"
	"github.com/maxaizer/divar-watcher/internal/metrics"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"net/url"
	"strings"
)

var ErrExtraction = errors.New("listing extraction failed")

type ListingExtractor struct {
	origin    string
	selectors divar.Selectors
}

// NewListingExtractor creates an extractor that prefixes relative links with origin, e.g. "divar.ir".
func NewListingExtractor(origin string, selectors divar.Selectors) (*ListingExtractor, error) {
	origin = strings.TrimSuffix(strings.TrimSpace(origin), "/")
	if origin == "" {
		return nil, errors.New("origin is empty")
	}
	if selectors.Link == "" || selectors.Title == "" {
		return nil, errors.New("link and title selectors are required")
	}
	return &ListingExtractor{origin: origin, selectors: selectors}, nil
}

// ExtractAll keeps page order and skips fragments that fail extraction.
func (e *ListingExtractor) ExtractAll(fragments []*goquery.Selection, entry *log.Entry) []models.Listing {
	return lo.FilterMap(fragments, func(fragment *goquery.Selection, i int) (models.Listing, bool) {
		listing, err := e.Extract(fragment)
		if err != nil {
			metrics.SkippedFragmentsCounter.Inc()
			entry.Warnf("skipping fragment %d: %v", i, err)
			return models.Listing{}, false
		}
		return listing, true
	})
}

func (e *ListingExtractor) Extract(fragment *goquery.Selection) (models.Listing, error) {

	href, found := fragment.Find(e.selectors.Link).First().Attr("href")
	if !found || strings.TrimSpace(href) == "" {
		return models.Listing{}, errors.Wrap(ErrExtraction, "missing link")
	}

	id, err := e.normalizeLink(href)
	if err != nil {
		return models.Listing{}, err
	}

	title := strings.TrimSpace(fragment.Find(e.selectors.Title).First().Text())
	if title == "" {
		return models.Listing{}, errors.Wrapf(ErrExtraction, "missing title for %s", id)
	}

	var prices []string
	if e.selectors.Description != "" {
		prices = fragment.Find(e.selectors.Description).Map(func(_ int, s *goquery.Selection) string {
			return strings.TrimSpace(s.Text())
		})
	}

	return models.Listing{
		ID:          id,
		Title:       title,
		DepositText: nth(prices, 0),
		RentText:    nth(prices, 1),
		ImageURL:    e.imageURL(fragment),
		Link:        "https://" + id,
	}, nil
}

// normalizeLink returns host+path, dropping scheme, query and fragment.
func (e *ListingExtractor) normalizeLink(href string) (string, error) {

	link, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", errors.Wrapf(ErrExtraction, "malformed link %q", href)
	}

	if link.Scheme != "" && link.Scheme != "http" && link.Scheme != "https" {
		return "", errors.Wrapf(ErrExtraction, "unsupported link scheme %q", link.Scheme)
	}

	host := link.Host
	if host == "" {
		host = e.origin
	}

	path := link.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if path == "/" {
		return "", errors.Wrapf(ErrExtraction, "link %q has no path", href)
	}

	return host + path, nil
}

func (e *ListingExtractor) imageURL(fragment *goquery.Selection) string {
	if e.selectors.Image == "" {
		return ""
	}

	image := fragment.Find(e.selectors.Image).First()
	for _, attr := range []string{"data-src", "src"} {
		src, found := image.Attr(attr)
		src = strings.TrimSpace(src)
		if found && src != "" && !strings.HasPrefix(src, "data:") {
			return src
		}
	}
	return ""
}

func nth(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}
