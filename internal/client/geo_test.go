package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stepfree/access-planner/internal/client"
)

var _ = Describe("geo clients", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("nominatim", func() {
		It("returns the first match", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/search"))
				Expect(r.URL.Query().Get("q")).To(Equal("1 Main St"))
				Expect(r.Header.Get("User-Agent")).To(Equal("planner-test"))
				_, _ = w.Write([]byte(`[{"lat":"51.5033","lon":"-0.1276","display_name":"Main St"}]`))
			}))
			defer server.Close()

			c := client.NewNominatimClient(server.URL, "planner-test", 0)
			coords, err := c.Geocode(ctx, "1 Main St")
			Expect(err).To(BeNil())
			Expect(coords.Lat).To(BeNumerically("~", 51.5033, 1e-6))
			Expect(coords.Lon).To(BeNumerically("~", -0.1276, 1e-6))
		})

		It("reports no result", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`[]`))
			}))
			defer server.Close()

			c := client.NewNominatimClient(server.URL, "planner-test", 0)
			_, err := c.Geocode(ctx, "nowhere")
			Expect(err).To(MatchError(client.ErrNoResult))
		})
	})

	Describe("overpass", func() {
		It("posts a count query and reads the total", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodPost))
				Expect(r.ParseForm()).To(Succeed())
				query := r.PostForm.Get("data")
				Expect(query).To(ContainSubstring(`node["amenity"="pharmacy"](around:500,`))
				Expect(query).To(ContainSubstring(`way["amenity"="hospital"](around:500,`))
				Expect(query).To(HaveSuffix("out count;"))
				_, _ = w.Write([]byte(`{"elements":[{"type":"count","id":0,"tags":{"nodes":"3","ways":"1","total":"4"}}]}`))
			}))
			defer server.Close()

			c := client.NewOverpassClient(server.URL, "planner-test", 100, 0)
			total, err := c.Count(ctx, client.Coordinates{Lat: 1, Lon: 2}, 500, []string{`["amenity"="pharmacy"]`, `["amenity"="hospital"]`})
			Expect(err).To(BeNil())
			Expect(total).To(Equal(4))
		})

		It("fails without a count element", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"elements":[]}`))
			}))
			defer server.Close()

			c := client.NewOverpassClient(server.URL, "planner-test", 100, 0)
			_, err := c.Count(ctx, client.Coordinates{Lat: 1, Lon: 2}, 500, []string{`["highway"="street_lamp"]`})
			Expect(err).To(HaveOccurred())
		})

		It("stops waiting on the limiter when the context is done", func() {
			c := client.NewOverpassClient("http://127.0.0.1:1", "planner-test", 0.001, 0)
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := c.Count(cctx, client.Coordinates{}, 500, []string{`["amenity"="cafe"]`})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("elevation", func() {
		It("returns one sample per point", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Query().Get("latitude")).To(Equal("1.000000,1.001000"))
				Expect(r.URL.Query().Get("longitude")).To(Equal("2.000000,2.000000"))
				_, _ = w.Write([]byte(`{"elevation":[10.5,12.0]}`))
			}))
			defer server.Close()

			c := client.NewElevationClient(server.URL, 0)
			samples, err := c.Elevations(ctx, []client.Coordinates{{Lat: 1, Lon: 2}, {Lat: 1.001, Lon: 2}})
			Expect(err).To(BeNil())
			Expect(samples).To(Equal([]float64{10.5, 12.0}))
		})

		It("fails when samples are missing", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"elevation":[10.5]}`))
			}))
			defer server.Close()

			c := client.NewElevationClient(server.URL, 0)
			_, err := c.Elevations(ctx, []client.Coordinates{{Lat: 1, Lon: 2}, {Lat: 1.001, Lon: 2}})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("openaq", func() {
		It("joins the latest readings with the station sensors", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Header.Get("X-API-Key")).To(Equal("aq-key"))
				switch r.URL.Path {
				case "/v3/locations":
					Expect(r.URL.Query().Get("radius")).To(Equal("25000"))
					_, _ = w.Write([]byte(`{"results":[{"id":42,"name":"Central","distance":830.5,"sensors":[
						{"id":7,"parameter":{"name":"pm25","units":"µg/m³","displayName":"PM2.5"}},
						{"id":8,"parameter":{"name":"no2","units":"ppm"}}]}]}`))
				case "/v3/locations/42/latest":
					_, _ = w.Write([]byte(`{"results":[{"value":12.5,"sensorsId":7},{"value":0.02,"sensorsId":8}]}`))
				default:
					w.WriteHeader(http.StatusNotFound)
				}
			}))
			defer server.Close()

			c := client.NewOpenAQClient(server.URL+"/v3", "aq-key", 0)
			aq, err := c.Nearest(ctx, client.Coordinates{Lat: 1, Lon: 2}, 0)
			Expect(err).To(BeNil())
			Expect(aq.Station).To(Equal("Central"))
			Expect(aq.Readings).To(ConsistOf(
				client.Reading{Parameter: "PM2.5", Value: 12.5, Units: "µg/m³"},
				client.Reading{Parameter: "no2", Value: 0.02, Units: "ppm"},
			))
		})

		It("reports no station", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"results":[]}`))
			}))
			defer server.Close()

			c := client.NewOpenAQClient(server.URL, "", 0)
			_, err := c.Nearest(ctx, client.Coordinates{Lat: 1, Lon: 2}, 1000)
			Expect(err).To(MatchError(client.ErrNoResult))
		})
	})
})
