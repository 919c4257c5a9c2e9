// Package restcountries fetches the country reference set from the REST
// Countries API (https://restcountries.com). The API caps each request at
// ten fields, so a full load takes two calls merged by country code.
package restcountries

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"flagquiz-service/internal/domain"
)

const (
	defaultBaseURL = "https://restcountries.com/v3.1/all"

	// Two calls because of the 10-field-per-request API limit.
	fieldsCall1 = "cca3,name,flag,flags,coatOfArms,population,capital,latlng,area,languages"
	fieldsCall2 = "cca3,currencies,altSpellings,region"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
	}
}

// NewClientWithBaseURL points the client at a different endpoint (tests).
func NewClientWithBaseURL(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{httpClient: httpClient, baseURL: baseURL}
}

type apiCountry struct {
	CCA3 string `json:"cca3"`
	Name struct {
		Common   string `json:"common"`
		Official string `json:"official"`
	} `json:"name"`
	Flag  string `json:"flag"`
	Flags struct {
		PNG string `json:"png"`
		SVG string `json:"svg"`
		Alt string `json:"alt"`
	} `json:"flags"`
	CoatOfArms struct {
		PNG string `json:"png"`
		SVG string `json:"svg"`
	} `json:"coatOfArms"`
	Population   int64                      `json:"population"`
	Capital      []string                   `json:"capital"`
	LatLng       []float64                  `json:"latlng"`
	Area         float64                    `json:"area"`
	Languages    map[string]string          `json:"languages"`
	Currencies   map[string]domain.Currency `json:"currencies"`
	AltSpellings []string                   `json:"altSpellings"`
	Region       string                     `json:"region"`
}

// FetchAll returns the full country set, with manual alternate spellings
// merged into the API-provided ones.
func (c *Client) FetchAll(ctx context.Context) ([]domain.Country, error) {
	core, err := c.fetch(ctx, fieldsCall1)
	if err != nil {
		return nil, fmt.Errorf("fetch core country data: %w", err)
	}
	extras, err := c.fetch(ctx, fieldsCall2)
	if err != nil {
		return nil, fmt.Errorf("fetch country currencies: %w", err)
	}

	extraByCode := make(map[string]apiCountry, len(extras))
	for _, e := range extras {
		extraByCode[e.CCA3] = e
	}

	countries := make([]domain.Country, 0, len(core))
	for _, raw := range core {
		if raw.CCA3 == "" || raw.Name.Common == "" {
			continue
		}
		extra := extraByCode[raw.CCA3]

		country := domain.Country{
			Code:        raw.CCA3,
			Name:        raw.Name.Common,
			Alternates:  MergeAlternates(raw.CCA3, extra.AltSpellings),
			FlagEmoji:   raw.Flag,
			FlagSVGURL:  raw.Flags.SVG,
			FlagPNGURL:  raw.Flags.PNG,
			FlagAltText: raw.Flags.Alt,
			Population:  raw.Population,
			AreaKm2:     raw.Area,
			Region:      extra.Region,
			Currencies:  extra.Currencies,
			Extra:       map[string]any{"officialName": raw.Name.Official},
		}
		if len(raw.Capital) > 0 {
			country.Capital = raw.Capital[0]
		}
		if len(raw.LatLng) == 2 {
			country.Latitude = raw.LatLng[0]
			country.Longitude = raw.LatLng[1]
		}
		for _, lang := range raw.Languages {
			country.Languages = append(country.Languages, lang)
		}
		if raw.CoatOfArms.SVG != "" {
			country.Extra["coatOfArmsSvgUrl"] = raw.CoatOfArms.SVG
		}
		if raw.CoatOfArms.PNG != "" {
			country.Extra["coatOfArmsPngUrl"] = raw.CoatOfArms.PNG
		}
		countries = append(countries, country)
	}
	return countries, nil
}

func (c *Client) fetch(ctx context.Context, fields string) ([]apiCountry, error) {
	url := c.baseURL + "?fields=" + fields
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "flagquiz-service/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	var payload []apiCountry
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return payload, nil
}
