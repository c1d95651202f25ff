package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ImageFetcher downloads listing photos.
type ImageFetcher struct {
	maxSize    int64
	userAgent  string
	httpClient *http.Client
}

func NewImageFetcher(userAgent string, maxSize int64, timeout time.Duration) *ImageFetcher {
	if maxSize <= 0 {
		maxSize = 8 << 20
	}
	return &ImageFetcher{
		maxSize:    maxSize,
		userAgent:  userAgent,
		httpClient: newHTTPClient(timeout, 20*time.Second),
	}
}

// Fetch downloads imageURL. Non image payloads and payloads over the size cap are refused.
func (f *ImageFetcher) Fetch(ctx context.Context, imageURL string) (Image, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return Image{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", f.userAgent)
	httpReq.Header.Set("Accept", "image/*")

	resp, err := f.httpClient.Do(httpReq)
	if err != nil {
		return Image{}, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Image{}, fmt.Errorf("image %s returned status %d", imageURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return Image{}, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > f.maxSize {
		return Image{}, fmt.Errorf("image %s is larger than %d bytes", imageURL, f.maxSize)
	}
	if len(data) == 0 {
		return Image{}, fmt.Errorf("image %s is empty", imageURL)
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return Image{}, fmt.Errorf("%s is not an image (%s)", imageURL, contentType)
	}

	return Image{URL: imageURL, ContentType: contentType, Data: data}, nil
}
