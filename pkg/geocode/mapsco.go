package geocode

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

const mapsCoURL = "https://geocode.maps.co/search"

type mapsCoPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// MapsCoProvider geocodes through geocode.maps.co.
type MapsCoProvider struct {
	httpProvider
	apiKey string
}

// NewMapsCoProvider creates a maps.co provider. It is unavailable without a key.
func NewMapsCoProvider(apiKey string, opts ...ProviderOption) *MapsCoProvider {
	return &MapsCoProvider{
		httpProvider: newHTTPProvider("mapsco", mapsCoURL, opts),
		apiKey:       apiKey,
	}
}

// Name implements Provider.
func (p *MapsCoProvider) Name() string { return p.name }

// Available implements Provider.
func (p *MapsCoProvider) Available() bool { return p.apiKey != "" }

// Geocode implements Provider. The first search hit is used.
func (p *MapsCoProvider) Geocode(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return &Result{Source: p.name}, nil
	}

	params := url.Values{
		"q":       {query},
		"api_key": {p.apiKey},
	}

	var places []mapsCoPlace
	if err := p.getJSON(ctx, p.baseURL+"?"+params.Encode(), nil, &places); err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return &Result{Query: query, Source: p.name}, nil
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: mapsco latitude %q", places[0].Lat)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: mapsco longitude %q", places[0].Lon)
	}

	return &Result{
		Query:     query,
		Latitude:  lat,
		Longitude: lon,
		Source:    p.name,
		Label:     places[0].DisplayName,
		Matched:   true,
	}, nil
}
