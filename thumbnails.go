package notionpress

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	jpegQuality       = 80
	maxThumbnailBytes = 10 << 20 // 10MB
)

// processImage decodes an image from src, downscales it to maxWidth when it is
// wider, and encodes it as JPEG.
func processImage(src io.Reader, maxWidth int) ([]byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if maxWidth > 0 && w > maxWidth {
		newH := h * maxWidth / w
		if newH < 1 {
			newH = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// handleThumbnail serves a post's thumbnail through the site. Uploaded files
// are handed out as signed URLs that expire, so pages link here instead of
// to the upstream URL.
func (a *App) handleThumbnail(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := a.Content.Resolve(ctx, c.Param("slug"))
	if err != nil {
		return err
	}
	if post == nil || post.Thumbnail == "" {
		return echo.NewHTTPError(http.StatusNotFound, "Thumbnail not found")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, post.Thumbnail, nil)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "Invalid thumbnail URL")
	}
	resp, err := a.thumbClient.Do(req)
	if err != nil {
		a.Log.Warn("fetch thumbnail", zap.String("slug", post.Slug), zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "Thumbnail unavailable")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		a.Log.Warn("fetch thumbnail", zap.String("slug", post.Slug), zap.Int("status", resp.StatusCode))
		return echo.NewHTTPError(http.StatusBadGateway, "Thumbnail unavailable")
	}

	data, err := processImage(io.LimitReader(resp.Body, maxThumbnailBytes), a.Config.ThumbnailMaxWidth)
	if err != nil {
		a.Log.Warn("process thumbnail", zap.String("slug", post.Slug), zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "Thumbnail unavailable")
	}

	c.Response().Header().Set("Cache-Control", "public, max-age=3600")
	return c.Blob(http.StatusOK, "image/jpeg", data)
}
