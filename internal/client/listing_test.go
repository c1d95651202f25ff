package client_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stepfree/access-planner/internal/client"
)

const listingPage = `<html><head>
<meta property="og:image" content="https://cdn.example.com/photos/front.jpg">
</head><body>
<img src="/photos/kitchen.jpg">
<img src="https://cdn.example.com/photos/front.jpg">
<img data-src="photos/bath.webp" src="data:image/gif;base64,R0lGOD">
<img src="/static/logo.svg">
<picture><source srcset="/photos/garden-800.jpg 800w, /photos/garden-1600.jpg 1600w"></picture>
</body></html>`

var _ = Describe("listing client", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("ExtractImages", func() {
		It("returns absolute photo urls without duplicates in page order", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/listing/1"))
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write([]byte(listingPage))
			}))
			defer server.Close()

			c := client.NewListingClient("", "", "planner-test", 0, 0)
			images, err := c.ExtractImages(ctx, server.URL+"/listing/1")
			Expect(err).To(BeNil())
			Expect(images).To(Equal([]string{
				"https://cdn.example.com/photos/front.jpg",
				server.URL + "/photos/kitchen.jpg",
				server.URL + "/listing/photos/bath.webp",
				server.URL + "/photos/garden-800.jpg",
			}))
		})

		It("stops reading the page at the size limit", func() {
			page := `<html><body><img src="/photos/first.jpg">` +
				strings.Repeat("<p>lorem ipsum</p>", 200) +
				`<img src="/photos/late.jpg"></body></html>`
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write([]byte(page))
			}))
			defer server.Close()

			c := client.NewListingClient("", "", "planner-test", 1024, 0)
			images, err := c.ExtractImages(ctx, server.URL)
			Expect(err).To(BeNil())
			Expect(images).To(Equal([]string{server.URL + "/photos/first.jpg"}))

			c = client.NewListingClient("", "", "planner-test", 0, 0)
			images, err = c.ExtractImages(ctx, server.URL)
			Expect(err).To(BeNil())
			Expect(images).To(ContainElement(server.URL + "/photos/late.jpg"))
		})

		It("fails on a page error", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			}))
			defer server.Close()

			c := client.NewListingClient("", "", "planner-test", 0, 0)
			_, err := c.ExtractImages(ctx, server.URL)
			Expect(err).To(HaveOccurred())
		})

		It("refuses a non http url", func() {
			c := client.NewListingClient("", "", "planner-test", 0, 0)
			_, err := c.ExtractImages(ctx, "ftp://example.com/listing")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("FindListingURL", func() {
		It("returns the first http result", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Query().Get("q")).To(ContainSubstring("1 Main St"))
				Expect(r.Header.Get("X-API-Key")).To(Equal("search-key"))
				_, _ = w.Write([]byte(`{"results":[{"url":"not a url"},{"url":"https://homes.example.com/1-main-st"}]}`))
			}))
			defer server.Close()

			c := client.NewListingClient(server.URL, "search-key", "planner-test", 0, 0)
			u, err := c.FindListingURL(ctx, "1 Main St")
			Expect(err).To(BeNil())
			Expect(u).To(Equal("https://homes.example.com/1-main-st"))
		})

		It("reports no result", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"results":[]}`))
			}))
			defer server.Close()

			c := client.NewListingClient(server.URL, "", "planner-test", 0, 0)
			_, err := c.FindListingURL(ctx, "1 Main St")
			Expect(err).To(MatchError(client.ErrNoResult))
		})

		It("fails when search is not configured", func() {
			c := client.NewListingClient("", "", "planner-test", 0, 0)
			_, err := c.FindListingURL(ctx, "1 Main St")
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("image fetcher", func() {
	pngHeader := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	It("downloads an image", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(pngHeader)
		}))
		defer server.Close()

		f := client.NewImageFetcher("planner-test", 1024, 0)
		img, err := f.Fetch(context.Background(), server.URL+"/a.png")
		Expect(err).To(BeNil())
		Expect(img.ContentType).To(Equal("image/png"))
		Expect(img.Data).To(Equal(pngHeader))
		Expect(img.URL).To(Equal(server.URL + "/a.png"))
	})

	It("refuses payloads over the size cap", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(append(pngHeader, bytes.Repeat([]byte{0}, 64)...))
		}))
		defer server.Close()

		f := client.NewImageFetcher("planner-test", 32, 0)
		_, err := f.Fetch(context.Background(), server.URL)
		Expect(err).To(MatchError(ContainSubstring("larger than")))
	})

	It("refuses html", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html><body>nope</body></html>"))
		}))
		defer server.Close()

		f := client.NewImageFetcher("planner-test", 1024, 0)
		_, err := f.Fetch(context.Background(), server.URL)
		Expect(err).To(MatchError(ContainSubstring("not an image")))
	})
})
