package media

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"strings"
)

// decodeDataURL decodes an inline base64 or data URL payload and returns the raw bytes and mime type.
func decodeDataURL(payload string) ([]byte, string, error) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return nil, "", fmt.Errorf("empty media payload")
	}

	mimeType, base64Payload := splitDataURL(trimmed)
	base64Payload = strings.TrimSpace(base64Payload)
	if base64Payload == "" {
		return nil, "", fmt.Errorf("empty base64 payload")
	}

	data, err := base64.StdEncoding.DecodeString(base64Payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode base64: %w", err)
	}
	return data, mimeType, nil
}

func splitDataURL(value string) (string, string) {
	if !strings.HasPrefix(value, "data:") {
		return "", value
	}

	value = strings.TrimPrefix(value, "data:")
	parts := strings.SplitN(value, ";base64,", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}

// sniffContentType 优先使用声明的类型, 不可信时按内容检测
func sniffContentType(declared string, data []byte) string {
	if parsed, _, err := mime.ParseMediaType(strings.TrimSpace(declared)); err == nil {
		parsed = strings.ToLower(parsed)
		if isMediaType(parsed) {
			return parsed
		}
	}
	detected, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return strings.ToLower(detected)
}

func isMediaType(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") || strings.HasPrefix(contentType, "video/")
}

func extensionFromMime(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/png":
		return "png"
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	case "image/bmp":
		return "bmp"
	case "image/heic":
		return "heic"
	case "image/heif":
		return "heif"
	case "video/mp4":
		return "mp4"
	case "video/webm":
		return "webm"
	case "video/quicktime":
		return "mov"
	default:
		return ""
	}
}
