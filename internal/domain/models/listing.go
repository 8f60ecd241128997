package models

type Listing struct {
	// ID is the normalized absolute link, e.g. "divar.ir/v/some-title/AaBbCc".
	ID          string
	Title       string
	DepositText string
	RentText    string
	ImageURL    string
	Link        string
}

func (l Listing) HasImage() bool {
	return l.ImageURL != ""
}
