package geocode

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

const oneMapURL = "https://www.onemap.gov.sg/api/common/elastic/search"

type oneMapResponse struct {
	Found   int `json:"found"`
	Results []struct {
		SearchVal string `json:"SEARCHVAL"`
		Address   string `json:"ADDRESS"`
		Postal    string `json:"POSTAL"`
		Latitude  string `json:"LATITUDE"`
		Longitude string `json:"LONGITUDE"`
	} `json:"results"`
}

// OneMapProvider geocodes through the Singapore Land Authority's OneMap search.
// The search endpoint works without a token; one is sent when configured.
type OneMapProvider struct {
	httpProvider
	token string
}

// NewOneMapProvider creates a OneMap provider. token may be empty.
func NewOneMapProvider(token string, opts ...ProviderOption) *OneMapProvider {
	return &OneMapProvider{
		httpProvider: newHTTPProvider("onemap", oneMapURL, opts),
		token:        token,
	}
}

// Name implements Provider.
func (p *OneMapProvider) Name() string { return p.name }

// Available implements Provider.
func (p *OneMapProvider) Available() bool { return true }

// Geocode implements Provider using the first page of search results.
func (p *OneMapProvider) Geocode(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return &Result{Source: p.name}, nil
	}

	params := url.Values{
		"searchVal":      {query},
		"returnGeom":     {"Y"},
		"getAddrDetails": {"Y"},
		"pageNum":        {"1"},
	}
	var header http.Header
	if p.token != "" {
		header = http.Header{"Authorization": {p.token}}
	}

	var resp oneMapResponse
	if err := p.getJSON(ctx, p.baseURL+"?"+params.Encode(), header, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return &Result{Query: query, Source: p.name}, nil
	}

	hit := resp.Results[0]
	lat, err := strconv.ParseFloat(hit.Latitude, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: onemap latitude %q", hit.Latitude)
	}
	lon, err := strconv.ParseFloat(hit.Longitude, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: onemap longitude %q", hit.Longitude)
	}

	return &Result{
		Query:     query,
		Latitude:  lat,
		Longitude: lon,
		Source:    p.name,
		Label:     hit.Address,
		Matched:   true,
	}, nil
}
