package ocr

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/handwriting-tools-mcp/internal/imaging"
)

func TestWithCache_NilClientPassesThrough(t *testing.T) {
	inner := &scriptedEngine{}
	assert.Same(t, inner, WithCache(inner, nil, time.Minute))
}

func TestCacheKey(t *testing.T) {
	a := imaging.RawImage{Data: []byte("one"), Filename: "a.png"}
	b := imaging.RawImage{Data: []byte("one"), Filename: "b.png"}
	c := imaging.RawImage{Data: []byte("two")}

	assert.Equal(t, CacheKey("ocrspace", a), CacheKey("ocrspace", b))
	assert.NotEqual(t, CacheKey("ocrspace", a), CacheKey("ocrspace", c))
	assert.NotEqual(t, CacheKey("ocrspace", a), CacheKey("tesseract", a))
	assert.Contains(t, CacheKey("ocrspace", a), "handwriting:ocr:ocrspace:")
}

func TestCachedEngine_Redis(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx := context.Background()
	rdb, err := OpenRedis(ctx, url)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer rdb.Close()

	img := imaging.RawImage{Data: []byte(time.Now().String())}
	key := CacheKey("scripted", img)
	defer rdb.Del(ctx, key)

	inner := &scriptedEngine{}
	e := WithCache(inner, rdb, time.Minute)

	first, err := e.Recognize(ctx, img)
	require.NoError(t, err)
	second, err := e.Recognize(ctx, img)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestOpenRedis_InvalidURL(t *testing.T) {
	_, err := OpenRedis(context.Background(), "not a url")
	assert.Error(t, err)
}
