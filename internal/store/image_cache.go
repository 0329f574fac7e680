package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"
)

// maxImageBytes protects the database from oversized generations.
const maxImageBytes = 8 * 1024 * 1024

var ErrNotDataURI = errors.New("not a data URI")

func ImageKey(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

func ImagePath(key string) string {
	return "/images/" + key
}

// DecodeDataURI parses data:<mime>;base64,<payload>.
func DecodeDataURI(raw string) (contentType string, data []byte, err error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "data:") {
		return "", nil, ErrNotDataURI
	}
	meta, payload, ok := strings.Cut(raw[len("data:"):], ",")
	if !ok {
		return "", nil, errors.New("data URI without payload")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return "", nil, errors.New("data URI is not base64")
	}
	contentType = strings.TrimSuffix(meta, ";base64")

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, err
	}
	if len(data) == 0 || len(data) > maxImageBytes {
		return "", nil, errors.New("image size out of range")
	}

	if contentType == "" || !strings.HasPrefix(contentType, "image/") {
		// sniff as fallback
		sn := http.DetectContentType(data)
		if !strings.HasPrefix(sn, "image/") {
			return "", nil, errors.New("not an image")
		}
		contentType = sn
	}
	return contentType, data, nil
}

// CacheImage stores a data-URI image and returns its key. Remote URLs are
// left alone and yield an empty key.
func CacheImage(ctx context.Context, q execQuerier, raw string) (key string, err error) {
	ct, b, err := DecodeDataURI(raw)
	if errors.Is(err, ErrNotDataURI) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	key = ImageKey(b)

	// If already cached, skip write
	var exists int
	e := q.QueryRowContext(ctx, `SELECT 1 FROM images WHERE key = ? LIMIT 1;`, key).Scan(&exists)
	if e == nil {
		return key, nil
	}
	if !errors.Is(e, sql.ErrNoRows) {
		return "", e
	}

	_, err = q.ExecContext(ctx, `
INSERT OR REPLACE INTO images(key, content_type, bytes, created_at)
VALUES(?,?,?,?);`,
		key,
		ct,
		b,
		time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return "", err
	}
	return key, nil
}

func GetImage(ctx context.Context, db *sql.DB, key string) (contentType string, b []byte, err error) {
	err = db.QueryRowContext(ctx,
		`SELECT content_type, bytes FROM images WHERE key = ? LIMIT 1;`, key,
	).Scan(&contentType, &b)
	return contentType, b, err
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
