package geocode

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

const radarURL = "https://api.radar.io/v1/geocode/forward"

type radarResponse struct {
	Addresses []struct {
		Latitude         float64 `json:"latitude"`
		Longitude        float64 `json:"longitude"`
		AddressLabel     string  `json:"addressLabel"`
		FormattedAddress string  `json:"formattedAddress"`
	} `json:"addresses"`
}

// RadarProvider geocodes through Radar's forward geocoding API, restricted to
// one country.
type RadarProvider struct {
	httpProvider
	apiKey  string
	country string
}

// NewRadarProvider creates a Radar provider for Singapore addresses.
func NewRadarProvider(apiKey string, opts ...ProviderOption) *RadarProvider {
	return &RadarProvider{
		httpProvider: newHTTPProvider("radar", radarURL, opts),
		apiKey:       apiKey,
		country:      "SG",
	}
}

// Name implements Provider.
func (p *RadarProvider) Name() string { return p.name }

// Available implements Provider.
func (p *RadarProvider) Available() bool { return p.apiKey != "" }

// Geocode implements Provider. Label carries Radar's addressLabel, which the
// fallback client feeds back into the primary provider.
func (p *RadarProvider) Geocode(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return &Result{Source: p.name}, nil
	}

	params := url.Values{
		"query":   {query},
		"country": {p.country},
	}
	header := http.Header{"Authorization": {p.apiKey}}

	var resp radarResponse
	if err := p.getJSON(ctx, p.baseURL+"?"+params.Encode(), header, &resp); err != nil {
		return nil, err
	}
	if len(resp.Addresses) == 0 {
		return &Result{Query: query, Source: p.name}, nil
	}

	a := resp.Addresses[0]
	return &Result{
		Query:     query,
		Latitude:  a.Latitude,
		Longitude: a.Longitude,
		Source:    p.name,
		Label:     a.AddressLabel,
		Matched:   true,
	}, nil
}
