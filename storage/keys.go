package storage

import (
	"net/url"
	"path"
	"strings"
)

// NormalizeKey converts a stored file reference into a canonical
// storage key. Older rows hold full public URLs
// (https://bucket.s3.eu-west-1.amazonaws.com/products/a.zip or the
// path-style https://s3.amazonaws.com/bucket/products/a.zip), newer
// rows hold bare keys, some with stray leading slashes. The function
// is pure and total: malformed input is treated as a bare key, empty
// input yields "" (callers map that to a not-found condition). It is
// idempotent, so double-normalizing stored values is harmless.
func NormalizeKey(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		if u, err := url.Parse(raw); err == nil {
			p := u.Path
			if decoded, err := url.PathUnescape(p); err == nil {
				p = decoded
			}
			p = strings.TrimLeft(p, "/")
			// Path-style S3 URLs carry the bucket as the first
			// segment; virtual-hosted URLs carry it in the host.
			if isPathStyleS3Host(u.Hostname()) {
				if i := strings.Index(p, "/"); i >= 0 {
					p = p[i+1:]
				} else {
					p = ""
				}
			}
			return strings.TrimSpace(strings.TrimLeft(p, "/"))
		}
	}

	return strings.TrimLeft(raw, "/")
}

func isPathStyleS3Host(host string) bool {
	host = strings.ToLower(host)
	return host == "s3.amazonaws.com" || strings.HasPrefix(host, "s3.") || strings.HasPrefix(host, "s3-")
}

// BaseName returns the last path segment of a key, or "" for an empty
// key. Used for filename fallbacks when a product or request has no
// title.
func BaseName(key string) string {
	if key == "" {
		return ""
	}
	return path.Base(key)
}
