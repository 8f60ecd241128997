package models

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"strconv"
	"strings"
	"unicode"
)

// SubscriberID is the telegram chat the watch belongs to.
type SubscriberID int64

func (id SubscriberID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

var ErrInvalidCriteria = errors.New("invalid search criteria")

var criteriaValidator = validator.New()

// SearchCriteria holds upper bounds in millions.
type SearchCriteria struct {
	DepositLimit int64 `validate:"gt=0"`
	RentLimit    int64 `validate:"gt=0"`
}

func NewSearchCriteria(depositLimit, rentLimit int64) (SearchCriteria, error) {
	criteria := SearchCriteria{DepositLimit: depositLimit, RentLimit: rentLimit}
	if err := criteria.Validate(); err != nil {
		return SearchCriteria{}, err
	}
	return criteria, nil
}

func (c SearchCriteria) Validate() error {
	if err := criteriaValidator.Struct(c); err != nil {
		return errors.Wrap(ErrInvalidCriteria, err.Error())
	}
	return nil
}

// ParseLimit parses a limit typed by a subscriber. Only strictly positive integers are accepted.
// Digits of any script are accepted, e.g. "۴۰۰" typed on a persian keyboard.
func ParseLimit(input string) (int64, error) {
	value, err := strconv.ParseInt(toASCIIDigits(input), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidCriteria, "%q is not a number", input)
	}
	if value <= 0 {
		return 0, errors.Wrapf(ErrInvalidCriteria, "%d is not positive", value)
	}
	return value, nil
}

// toASCIIDigits maps every decimal digit rune to '0'..'9'.
// Decimal digits are encoded as runs of 0..9, so the value is the offset within its range modulo 10.
func toASCIIDigits(input string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x80 || !unicode.Is(unicode.Nd, r) {
			return r
		}
		return '0' + digitValue(r)
	}, input)
}

func digitValue(r rune) rune {
	for _, rng := range unicode.Nd.R16 {
		if r >= rune(rng.Lo) && r <= rune(rng.Hi) {
			return (r - rune(rng.Lo)) % 10
		}
	}
	for _, rng := range unicode.Nd.R32 {
		if r >= rune(rng.Lo) && r <= rune(rng.Hi) {
			return (r - rune(rng.Lo)) % 10
		}
	}
	return r
}
