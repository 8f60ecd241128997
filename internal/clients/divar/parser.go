package divar

import (
	"bytes"
	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

var ErrContainerNotFound = errors.New("listing container not found")

// Selectors are CSS selectors of the listing page markup.
type Selectors struct {
	Container   string
	Item        string
	Link        string
	Title       string
	Description string
	Image       string
}

// ParsePage returns item fragments of the first container in document order.
// A container without items is not an error.
func ParsePage(body []byte, selectors Selectors) ([]*goquery.Selection, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "parse html")
	}

	container := doc.Find(selectors.Container).First()
	if container.Length() == 0 {
		return nil, ErrContainerNotFound
	}

	items := container.Find(selectors.Item)
	fragments := make([]*goquery.Selection, 0, items.Length())
	items.Each(func(_ int, item *goquery.Selection) {
		fragments = append(fragments, item)
	})
	return fragments, nil
}
