package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testGeoResolver(endpoints ...string) *GeoResolver {
	g := newGeoResolver()
	g.endpoints = endpoints
	return g
}

func TestGeoLookupCountryName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"country_name":"Iceland"}`))
	}))
	defer srv.Close()

	g := testGeoResolver(srv.URL + "/%s/json/")

	assert.Equal(t, "Iceland", g.lookup("203.0.113.9:40000"))
}

func TestGeoLookupCountryField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"country":"Japan"}`))
	}))
	defer srv.Close()

	g := testGeoResolver(srv.URL + "/json/%s")

	assert.Equal(t, "Japan", g.lookup("203.0.113.9:40000"))
}

func TestGeoLookupFallsBack(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer broken.Close()

	working := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"country":"Brazil"}`))
	}))
	defer working.Close()

	g := testGeoResolver(broken.URL+"/%s", working.URL+"/%s")

	assert.Equal(t, "Brazil", g.lookup("203.0.113.9:40000"))
}

func TestGeoLookupAllEndpointsDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := testGeoResolver(srv.URL + "/%s")

	assert.Equal(t, "", g.lookup("203.0.113.9:40000"))
}

func TestGeoLookupSkipsNonPublicAddresses(t *testing.T) {
	// No endpoints; a network hit would panic the format string anyway.
	g := testGeoResolver()

	for _, addr := range []string{
		"127.0.0.1:40000",
		"10.0.0.5:40000",
		"192.168.1.20:40000",
		"[::1]:40000",
		"0.0.0.0:40000",
		"not-an-ip",
	} {
		assert.Equal(t, "", g.lookup(addr), addr)
	}
}
