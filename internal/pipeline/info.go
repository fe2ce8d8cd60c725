package pipeline

import (
	"context"

	"github.com/jonathan/climatewash/internal/extract"
	"github.com/jonathan/climatewash/internal/fetch"
)

// WebInfo fetches a page and reports its title, meta tags, text length and image count
func (d *Diagnoser) WebInfo(ctx context.Context, pageURL string) (*extract.PageInfo, error) {
	if _, err := fetch.ValidateURL(pageURL); err != nil {
		return nil, &InputError{Field: "url", Message: "must start with http:// or https://", Cause: err}
	}
	res, err := d.fetcher.FetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return extract.Info(res.HTML, pageURL)
}
