// Package pagination normalizes page sizes and opaque page tokens.
package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrInvalidPageToken indicates a token this package did not produce.
var ErrInvalidPageToken = errors.New("invalid page token")

const tokenPrefix = "after:"

// PageSizeConfig configures page size normalization.
type PageSizeConfig struct {
	Default int
	Max     int
}

// ClampPageSize applies defaults and limits for page sizes.
func ClampPageSize(value int, cfg PageSizeConfig) int {
	pageSize := value
	if pageSize <= 0 {
		pageSize = cfg.Default
	}
	if cfg.Max > 0 && pageSize > cfg.Max {
		pageSize = cfg.Max
	}
	if pageSize <= 0 {
		pageSize = 1
	}
	return pageSize
}

// EncodeToken wraps a cursor in an opaque token. An empty cursor yields an
// empty token.
func EncodeToken(cursor string) string {
	if cursor == "" {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(tokenPrefix + cursor))
}

// DecodeToken returns the cursor inside token. An empty token yields an empty
// cursor.
func DecodeToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", ErrInvalidPageToken
	}
	cursor, ok := strings.CutPrefix(string(raw), tokenPrefix)
	if !ok || cursor == "" {
		return "", ErrInvalidPageToken
	}
	return cursor, nil
}
