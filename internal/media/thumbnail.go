package media

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"leelaaverse/internal/storage"

	"github.com/disintegration/imaging"
)

const (
	ThumbnailModeTransform = "transform"
	ThumbnailModeEncode    = "encode"
	ThumbnailModeOff       = "off"

	defaultThumbnailTemplate = "{url}?w={width}"
)

// thumbnailURL 在原图 URL 上追加处理指令, 后端支持时优先使用后端的图片处理参数
func thumbnailURL(store storage.Storage, template, publicURL string, width int) string {
	if publicURL == "" || width <= 0 {
		return publicURL
	}
	if provider, ok := store.(storage.ThumbnailDirectiveProvider); ok {
		if directive := provider.ThumbnailDirective(width); directive != "" {
			return appendQuery(publicURL, directive)
		}
	}

	if strings.TrimSpace(template) == "" {
		template = defaultThumbnailTemplate
	}
	if !strings.Contains(template, "{url}") {
		return publicURL
	}
	out := strings.ReplaceAll(template, "{width}", strconv.Itoa(width))
	if strings.Contains(publicURL, "?") && strings.HasPrefix(out, "{url}?") {
		out = "{url}&" + strings.TrimPrefix(out, "{url}?")
	}
	return strings.ReplaceAll(out, "{url}", publicURL)
}

func appendQuery(rawURL, query string) string {
	if strings.Contains(rawURL, "?") {
		return rawURL + "&" + query
	}
	return rawURL + "?" + query
}

// encodeThumbnail 缩放到指定宽度并编码为 JPEG
func encodeThumbnail(data []byte, width int) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if src.Bounds().Dx() > width {
		src = imaging.Resize(src, width, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, src, imaging.JPEG, imaging.JPEGQuality(82)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
