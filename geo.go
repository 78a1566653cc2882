package main

import (
	"fmt"
	"net"
	"time"

	"github.com/go-resty/resty/v2"
)

// GeoResolver turns a client's IP into a country name, used only to
// decorate game_matched with the opponent's rough location. Lookups run
// once at connect time, off the matching path; any failure just means the
// field stays empty.
type GeoResolver struct {
	http      *resty.Client
	endpoints []string
}

type geoResponse struct {
	CountryName string `json:"country_name"` // ipapi.co
	Country     string `json:"country"`      // ip-api.com, ipinfo.io
}

func newGeoResolver() *GeoResolver {
	return &GeoResolver{
		http: resty.New().
			SetTimeout(5 * time.Second).
			SetHeader("Accept", "application/json"),
		endpoints: []string{
			"https://ipapi.co/%s/json/",
			"http://ip-api.com/json/%s",
			"https://ipinfo.io/%s/json",
		},
	}
}

// lookup tries each endpoint in order and returns the first country name
// found, or "" if none of them answer usefully.
func (g *GeoResolver) lookup(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	ip := net.ParseIP(host)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() {
		return ""
	}

	for _, endpoint := range g.endpoints {
		var result geoResponse

		resp, err := g.http.R().
			SetResult(&result).
			Get(fmt.Sprintf(endpoint, host))
		if err != nil || resp.IsError() {
			continue
		}

		if result.CountryName != "" {
			return result.CountryName
		}
		if result.Country != "" {
			return result.Country
		}
	}

	return ""
}
