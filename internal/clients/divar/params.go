package divar

import (
	"github.com/maxaizer/divar-watcher/internal/domain/models"
	"net/url"
	"strconv"
	"strings"
)

// million is appended as digits so any positive limit scales without overflow.
const million = "000000"

// QueryBuilder holds the site filters shared by every subscriber.
type QueryBuilder struct {
	BaseURL     string
	HasPhoto    bool
	BuildingAge int
	Districts   []string
}

// Build maps criteria to the listing page URL. Ceilings are sent negated, which the site reads as "at most".
func (q QueryBuilder) Build(criteria models.SearchCriteria) string {
	return q.BaseURL + "?" + q.ToUrlParams(criteria).Encode()
}

func (q QueryBuilder) ToUrlParams(criteria models.SearchCriteria) url.Values {

	params := url.Values{}
	params.Add("rent", ceiling(criteria.RentLimit))
	params.Add("credit", ceiling(criteria.DepositLimit))

	if q.HasPhoto {
		params.Add("has-photo", "true")
	}

	if q.BuildingAge > 0 {
		params.Add("building-age", "-"+strconv.Itoa(q.BuildingAge))
	}

	if len(q.Districts) > 0 {
		params.Add("districts", strings.Join(q.Districts, ","))
	}

	return params
}

func ceiling(millions int64) string {
	return "-" + strconv.FormatInt(millions, 10) + million
}
