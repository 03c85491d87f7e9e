package filestore

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"net/url"
	"path"
	"strings"
	"unicode"
)

// probeImage fills in content type and pixel size when the payload is a
// decodable image. Unknown formats only get the sniffed content type.
func probeImage(upload []byte, declared string) (contentType string, width, height int) {
	contentType = declared
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(upload)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(upload))
	if err != nil {
		return contentType, 0, 0
	}
	return contentType, cfg.Width, cfg.Height
}

// sanitizeFilename keeps the base name and replaces characters that are
// unsafe in paths or object keys.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		name = ""
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}

// cleanID normalizes a relative id and rejects anything that escapes
// its root.
func cleanID(id string) (string, bool) {
	id = strings.TrimSpace(strings.ReplaceAll(id, "\\", "/"))
	if id == "" || strings.HasPrefix(id, "/") {
		return "", false
	}
	cleaned := path.Clean(id)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false
	}
	return cleaned, true
}

func joinURL(base, key string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(key, "/")
}

func endpointURL(endpoint string, useSSL bool) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return scheme + "://" + endpoint
}

func buildBaseURL(endpoint, bucket string, useSSL bool) string {
	ep := endpointURL(endpoint, useSSL)
	u, err := url.Parse(ep)
	if err != nil {
		return strings.TrimSuffix(ep, "/") + "/" + bucket
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + bucket
	return u.String()
}

func thumbnailURL(fileURL, query string) string {
	query = strings.TrimPrefix(query, "?")
	if query == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(fileURL, "?") {
		sep = "&"
	}
	return fileURL + sep + query
}

func randomHex(size int) string {
	if size <= 0 {
		return ""
	}
	buf := make([]byte, size)
	_, err := rand.Read(buf)
	if err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

func displayName(key string) string {
	name := path.Base(key)
	if _, rest, ok := strings.Cut(name, "_"); ok && rest != "" {
		return rest
	}
	return name
}
