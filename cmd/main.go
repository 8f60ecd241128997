package main

import (
	"context"
	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/divar-watcher/internal/bot"
	"github.com/maxaizer/divar-watcher/internal/clients/divar"
	"github.com/maxaizer/divar-watcher/internal/config"
	"github.com/maxaizer/divar-watcher/internal/logger"
	"github.com/maxaizer/divar-watcher/internal/metrics"
	"github.com/maxaizer/divar-watcher/internal/services"
	log "github.com/sirupsen/logrus"
	"os/signal"
	"syscall"
)

func newScheduler(ctx context.Context, cfg *config.Config, bus EventBus.Bus) *services.WatchScheduler {

	client := divar.NewClient()
	client.SetRateLimit(cfg.Site.MaxRequestsPerSecond)
	client.SetUserAgent(cfg.Site.UserAgent)
	client.SetTimeout(cfg.Site.RequestTimeout)

	query := divar.QueryBuilder{
		BaseURL:     cfg.Site.BaseURL,
		HasPhoto:    cfg.Site.HasPhoto,
		BuildingAge: cfg.Site.BuildingAge,
		Districts:   cfg.Site.Districts,
	}

	selectors := cfg.Site.Selectors
	extractor, err := services.NewListingExtractor(cfg.Site.Origin, divar.Selectors{
		Container:   selectors.Container,
		Item:        selectors.Item,
		Link:        selectors.Link,
		Title:       selectors.Title,
		Description: selectors.Description,
		Image:       selectors.Image,
	})
	if err != nil {
		log.Fatalf("can't create listing extractor: %v", err)
	}

	scheduler, err := services.NewWatchScheduler(ctx, bus, client, query, extractor, cfg.Watch.PollInterval)
	if err != nil {
		log.Fatalf("can't create watch scheduler: %v", err)
	}
	scheduler.SetTickTimeout(cfg.Watch.TickTimeout)
	return scheduler
}

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Get()

	logger.Setup(ctx, cfg.Logger)
	defer logger.Cleanup()

	metrics.StartMetricsServer(cfg.Bot.MetricsAddress)

	bus := EventBus.New()

	scheduler := newScheduler(ctx, cfg, bus)
	scheduler.Start()

	registry, err := services.NewWatchRegistry(ctx, scheduler,
		cfg.Watch.DedupPolicy == config.DedupPreserve, cfg.Watch.DedupTTL)
	if err != nil {
		log.Fatalf("can't create watch registry: %v", err)
	}

	tgbot, err := bot.NewBot(cfg.Bot.Token, bus, registry, cfg.Watch.PollInterval, cfg.Bot.RequestTimeout)
	if err != nil {
		log.Fatalf("can't create bot: %v", err)
	}
	go tgbot.Run()

	<-ctx.Done()

	log.Info("Shutting down services...")
	tgbot.StopUpdates()
	registry.StopAll()
	scheduler.Stop()
	tgbot.Stop()
	log.Info("Services stopped.")
}
