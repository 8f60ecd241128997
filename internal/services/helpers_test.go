package services

import (
	"context"
	"fmt"
	"github.com/maxaizer/divar-watcher/internal/clients/divar"
	"github.com/stretchr/testify/mock"
	"strings"
	"sync"
)

var testSelectors = divar.Selectors{
	Container:   "div.post-list__items-container-e44b2",
	Item:        "div.post-list__widget-col-c1444",
	Link:        "a[href]",
	Title:       "h2.kt-post-card__title",
	Description: "div.kt-post-card__description",
	Image:       "img",
}

var testQuery = divar.QueryBuilder{
	BaseURL:     "https://divar.ir/s/tehran/rent-apartment/",
	HasPhoto:    true,
	BuildingAge: 10,
	Districts:   []string{"139", "138"},
}

type card struct {
	href    string
	title   string
	deposit string
	rent    string
	image   string
}

func (c card) html() string {
	var b strings.Builder
	b.WriteString(`<div class="post-list__widget-col-c1444">`)
	if c.href != "" {
		fmt.Fprintf(&b, `<a href="%s">`, c.href)
	} else {
		b.WriteString(`<a>`)
	}
	if c.image != "" {
		fmt.Fprintf(&b, `<img src="data:image/gif;base64,R0lGOD" data-src="%s">`, c.image)
	}
	b.WriteString(`<div class="kt-post-card__info">`)
	if c.title != "" {
		fmt.Fprintf(&b, `<h2 class="kt-post-card__title"> %s </h2>`, c.title)
	}
	fmt.Fprintf(&b, `<div class="kt-post-card__description">%s</div>`, c.deposit)
	fmt.Fprintf(&b, `<div class="kt-post-card__description">%s</div>`, c.rent)
	b.WriteString(`</div></a></div>`)
	return b.String()
}

func listingsPage(cards ...card) []byte {
	var b strings.Builder
	b.WriteString(`<html><body><div class="post-list__items-container-e44b2">`)
	for _, c := range cards {
		b.WriteString(c.html())
	}
	b.WriteString(`</div></body></html>`)
	return []byte(b.String())
}

type mockFetcher struct {
	mock.Mock
	mu      sync.Mutex
	targets []string
}

func (m *mockFetcher) GetPage(ctx context.Context, target string) ([]byte, error) {
	m.mu.Lock()
	m.targets = append(m.targets, target)
	m.mu.Unlock()

	args := m.Called(ctx, target)
	body, _ := args.Get(0).([]byte)
	return body, args.Error(1)
}

func (m *mockFetcher) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.targets)
}
