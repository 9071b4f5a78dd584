package billing

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"strings"
)

const maxLogoBytes = 5 << 20

type logo struct {
	data      []byte
	imageType string
}

type logoResult struct {
	logo *logo
	err  error
}

// loadLogo fetches src in the background. An empty src yields no logo and
// no error.
func (r *Renderer) loadLogo(ctx context.Context, src string) <-chan logoResult {
	ch := make(chan logoResult, 1)
	go func() {
		if src == "" {
			ch <- logoResult{}
			return
		}
		l, err := r.fetchLogo(ctx, src)
		ch <- logoResult{logo: l, err: err}
	}()
	return ch
}

func (r *Renderer) fetchLogo(ctx context.Context, src string) (*logo, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		data, err = r.download(ctx, src)
	} else {
		data, err = os.ReadFile(src)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load logo %s: %w", src, err)
	}

	// gofpdf leaves the document in an error state on a bad image, so check
	// the header before registering it.
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode logo %s: %w", src, err)
	}
	imageType := strings.ToUpper(format)
	if imageType == "JPEG" {
		imageType = "JPG"
	}
	return &logo{data: data, imageType: imageType}, nil
}

func (r *Renderer) download(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxLogoBytes))
}
