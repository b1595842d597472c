package coinmarketcap_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/aescanero/cmcproxy/pkg/adapters/coinmarketcap"
	"github.com/aescanero/cmcproxy/pkg/domain"
	"github.com/aescanero/cmcproxy/pkg/ports"
	. "github.com/smartystreets/goconvey/convey"
)

const listingsBody = `{"status":{"error_code":0,"error_message":null},"data":[{"id":1,"name":"Bitcoin","symbol":"BTC","quote":{"USD":{"percent_change_24h":1.5}}}]}`

// recordingMetrics captures upstream observations
type recordingMetrics struct {
	mu       sync.Mutex
	statuses []int
	errs     []error
}

func (m *recordingMetrics) ObserveUpstreamRequest(endpoint string, status int, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, status)
	m.errs = append(m.errs, err)
}

func (m *recordingMetrics) ObserveHTTPRequest(route, method string, status int, duration time.Duration) {}

func (m *recordingMetrics) ObserveAssetsServed(route string, count int) {}

// recordingHealth captures reported outcomes
type recordingHealth struct {
	mu      sync.Mutex
	reports []error
}

func (h *recordingHealth) ReportUpstream(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reports = append(h.reports, err)
}

// seenRequest keeps the last request received by a fake upstream
type seenRequest struct {
	mu     sync.Mutex
	url    *url.URL
	header http.Header
}

func (s *seenRequest) record(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *r.URL
	s.url = &u
	s.header = r.Header.Clone()
}

func (s *seenRequest) URL() *url.URL {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

func (s *seenRequest) Header() http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.header
}

func newUpstream(status int, body string, seen *seenRequest) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			seen.record(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestClient_FetchListings(t *testing.T) {
	Convey("Given a healthy upstream", t, func() {
		seen := &seenRequest{}
		server := newUpstream(http.StatusOK, listingsBody, seen)
		defer server.Close()

		metrics := &recordingMetrics{}
		health := &recordingHealth{}
		client, err := coinmarketcap.NewClient(&coinmarketcap.Config{
			BaseURL: server.URL + "/v1/",
			APIKey:  "test-key",
			Timeout: time.Second,
			Metrics: metrics,
			Health:  health,
		})
		So(err, ShouldBeNil)

		Convey("When fetching a sorted page", func() {
			listings, err := client.FetchListings(context.Background(), ports.ListingsQuery{
				Start: 1, Limit: 3, Sort: "percent_change_24h", SortDir: ports.SortAsc,
			})

			Convey("Then the snapshot is parsed", func() {
				So(err, ShouldBeNil)
				So(listings.Assets, ShouldHaveLength, 1)
				So(listings.Assets[0].Symbol, ShouldEqual, "BTC")
			})

			Convey("And the request is authenticated and parameterised", func() {
				So(seen.URL().Path, ShouldEqual, "/v1/cryptocurrency/listings/latest")
				So(seen.Header().Get("X-CMC_PRO_API_KEY"), ShouldEqual, "test-key")

				q := seen.URL().Query()
				So(q.Get("start"), ShouldEqual, "1")
				So(q.Get("limit"), ShouldEqual, "3")
				So(q.Get("sort"), ShouldEqual, "percent_change_24h")
				So(q.Get("sort_dir"), ShouldEqual, "asc")
				So(q.Get("convert"), ShouldEqual, "USD")
			})

			Convey("And the outcome is recorded once", func() {
				So(metrics.statuses, ShouldResemble, []int{http.StatusOK})
				So(metrics.errs[0], ShouldBeNil)
				So(health.reports, ShouldHaveLength, 1)
				So(health.reports[0], ShouldBeNil)
			})
		})

		Convey("When fetching an unsorted page", func() {
			_, err := client.FetchListings(context.Background(), ports.ListingsQuery{Start: 1, Limit: 100})

			Convey("Then no sort parameters are sent", func() {
				So(err, ShouldBeNil)
				_, hasSort := seen.URL().Query()["sort"]
				_, hasDir := seen.URL().Query()["sort_dir"]
				So(hasSort, ShouldBeFalse)
				So(hasDir, ShouldBeFalse)
			})
		})
	})

	Convey("Given an upstream rejecting the API key", t, func() {
		server := newUpstream(http.StatusUnauthorized,
			`{"status":{"error_code":1001,"error_message":"This API Key is invalid."}}`, nil)
		defer server.Close()

		metrics := &recordingMetrics{}
		health := &recordingHealth{}
		client, err := coinmarketcap.NewClient(&coinmarketcap.Config{
			BaseURL: server.URL, Metrics: metrics, Health: health,
		})
		So(err, ShouldBeNil)

		_, err = client.FetchListings(context.Background(), ports.ListingsQuery{Start: 1, Limit: 100})

		Convey("Then an UpstreamError carries the status and message", func() {
			var upstreamErr *domain.UpstreamError
			So(errors.As(err, &upstreamErr), ShouldBeTrue)
			So(upstreamErr.Status, ShouldEqual, http.StatusUnauthorized)
			So(upstreamErr.Message, ShouldEqual, "This API Key is invalid.")
			So(upstreamErr.Endpoint, ShouldEqual, coinmarketcap.ListingsLatestEndpoint)
		})

		Convey("And the failure is recorded", func() {
			So(metrics.statuses, ShouldResemble, []int{http.StatusUnauthorized})
			So(metrics.errs[0], ShouldNotBeNil)
			So(health.reports[0], ShouldNotBeNil)
		})
	})

	Convey("Given an upstream error without a body", t, func() {
		server := newUpstream(http.StatusBadGateway, ``, nil)
		defer server.Close()

		client, err := coinmarketcap.NewClient(&coinmarketcap.Config{BaseURL: server.URL})
		So(err, ShouldBeNil)

		_, err = client.FetchListings(context.Background(), ports.ListingsQuery{Start: 1, Limit: 100})

		Convey("Then the status text is used as message", func() {
			var upstreamErr *domain.UpstreamError
			So(errors.As(err, &upstreamErr), ShouldBeTrue)
			So(upstreamErr.Message, ShouldEqual, "Bad Gateway")
		})
	})

	Convey("Given an upstream returning a malformed body", t, func() {
		cases := []struct {
			name string
			body string
		}{
			{"not JSON", `<html>oops</html>`},
			{"without a data array", `{"status":{"error_code":0}}`},
			{"a record without an id", `{"data":[{"name":"ghost"}]}`},
		}

		for _, tc := range cases {
			body := tc.body
			Convey("When the body is "+tc.name, func() {
				server := newUpstream(http.StatusOK, body, nil)
				defer server.Close()

				health := &recordingHealth{}
				client, err := coinmarketcap.NewClient(&coinmarketcap.Config{BaseURL: server.URL, Health: health})
				So(err, ShouldBeNil)

				_, err = client.FetchListings(context.Background(), ports.ListingsQuery{Start: 1, Limit: 100})

				Convey("Then an UpstreamError is returned and reported", func() {
					var upstreamErr *domain.UpstreamError
					So(errors.As(err, &upstreamErr), ShouldBeTrue)
					So(upstreamErr.Status, ShouldEqual, http.StatusOK)
					So(health.reports, ShouldHaveLength, 1)
					So(health.reports[0], ShouldNotBeNil)
				})
			})
		}
	})

	Convey("Given an unreachable upstream", t, func() {
		server := newUpstream(http.StatusOK, listingsBody, nil)
		baseURL := server.URL
		server.Close()

		metrics := &recordingMetrics{}
		client, err := coinmarketcap.NewClient(&coinmarketcap.Config{BaseURL: baseURL, Metrics: metrics})
		So(err, ShouldBeNil)

		_, err = client.FetchListings(context.Background(), ports.ListingsQuery{Start: 1, Limit: 100})

		Convey("Then a transport UpstreamError with status 0 is returned", func() {
			var upstreamErr *domain.UpstreamError
			So(errors.As(err, &upstreamErr), ShouldBeTrue)
			So(upstreamErr.Status, ShouldEqual, 0)
			So(upstreamErr.Err, ShouldNotBeNil)
			So(metrics.statuses, ShouldResemble, []int{0})
		})
	})

	Convey("Given an upstream slower than the timeout", t, func() {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		client, err := coinmarketcap.NewClient(&coinmarketcap.Config{
			BaseURL: server.URL,
			Timeout: 50 * time.Millisecond,
		})
		So(err, ShouldBeNil)

		_, err = client.FetchListings(context.Background(), ports.ListingsQuery{Start: 1, Limit: 100})

		Convey("Then the call fails with an UpstreamError", func() {
			var upstreamErr *domain.UpstreamError
			So(errors.As(err, &upstreamErr), ShouldBeTrue)
			So(upstreamErr.Status, ShouldEqual, 0)
		})
	})
}

func TestClient_Get(t *testing.T) {
	Convey("Given an upstream endpoint", t, func() {
		seen := &seenRequest{}
		server := newUpstream(http.StatusOK, `{"data":{"1":{"id":1}}}`, seen)
		defer server.Close()

		client, err := coinmarketcap.NewClient(&coinmarketcap.Config{BaseURL: server.URL, APIKey: "k"})
		So(err, ShouldBeNil)

		Convey("When the caller passes its own convert value", func() {
			body, err := client.Get(context.Background(), "/cryptocurrency/quotes/latest", map[string]string{
				"id":      "1",
				"convert": "EUR",
			})

			Convey("Then convert is forced to USD and the body returned", func() {
				So(err, ShouldBeNil)
				So(string(body), ShouldEqual, `{"data":{"1":{"id":1}}}`)
				So(seen.URL().Query()["convert"], ShouldResemble, []string{"USD"})
				So(seen.URL().Query().Get("id"), ShouldEqual, "1")
			})
		})
	})
}

func TestNewClient(t *testing.T) {
	Convey("Invalid base URLs are rejected", t, func() {
		_, err := coinmarketcap.NewClient(&coinmarketcap.Config{BaseURL: "ftp://example.com"})
		So(err, ShouldNotBeNil)

		_, err = coinmarketcap.NewClient(&coinmarketcap.Config{BaseURL: "://bad"})
		So(err, ShouldNotBeNil)
	})

	Convey("An empty base URL defaults to the public API", t, func() {
		client, err := coinmarketcap.NewClient(&coinmarketcap.Config{})
		So(err, ShouldBeNil)
		So(client, ShouldNotBeNil)

		u, err := url.Parse(coinmarketcap.DefaultBaseURL)
		So(err, ShouldBeNil)
		So(u.Host, ShouldEqual, "pro-api.coinmarketcap.com")
	})
}
