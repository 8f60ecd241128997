package events

import (
	"github.com/maxaizer/divar-watcher/internal/domain/models"
)

var ListingFoundTopic = "ListingFoundEvent"

type ListingFound struct {
	SubscriberID models.SubscriberID
	Listing      models.Listing
}
