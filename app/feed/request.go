package feed

import (
	"cmp"
	"errors"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MaxPage bounds the page number so the query offset cannot overflow. Pages
// past the last one simply come back empty.
const MaxPage = 100000

// Request carries the feed endpoint's query parameters.
type Request struct {
	Product    string
	Language   string
	Page       int
	UpdateType UpdateType
}

// ParsePage turns a raw page parameter into a page number. Anything that is not
// a positive integer becomes page 1; numbers above MaxPage become MaxPage.
func ParsePage(raw string) int {
	raw = strings.TrimSpace(raw)
	page, err := strconv.Atoi(raw)
	if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(raw, "-") {
		return MaxPage
	}
	if err != nil || page < 1 {
		return 1
	}
	return min(page, MaxPage)
}

// Normalize fills defaults and clamps the page. It never fails.
func (r Request) Normalize() Request {
	r.Product = cmp.Or(strings.TrimSpace(r.Product), DefaultProduct)
	r.Language = NormalizeLanguage(r.Language)
	r.UpdateType = UpdateType(cmp.Or(strings.ToLower(strings.TrimSpace(string(r.UpdateType))), string(UpdateTypeSingle)))
	r.Page = min(max(r.Page, 1), MaxPage)
	return r
}

func (r Request) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Product, validation.Required, validation.Length(1, 128)),
		validation.Field(&r.Language, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.Page, validation.Min(1), validation.Max(MaxPage)),
		validation.Field(&r.UpdateType, validation.In(UpdateTypeSingle, UpdateTypeWeekly).
			Error("must be either single or weekly")),
	)
}

type SearchRequest struct {
	Keyword  string
	Product  string
	Language string
}

func (r SearchRequest) Normalize() SearchRequest {
	r.Keyword = strings.TrimSpace(r.Keyword)
	r.Product = cmp.Or(strings.TrimSpace(r.Product), DefaultProduct)
	r.Language = NormalizeLanguage(r.Language)
	return r
}

func (r SearchRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Keyword, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Product, validation.Required, validation.Length(1, 128)),
		validation.Field(&r.Language, validation.Required, validation.Length(1, 64)),
	)
}
