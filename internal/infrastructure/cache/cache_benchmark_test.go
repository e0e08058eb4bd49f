package cache

import (
	"fmt"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const cacheSize = 10000

func createGistRecord(index int) ConditionalRecord {
	body := fmt.Sprintf(`{"id":"gist-%d","files":{"shared-debrid.json":{"content":"{\"holder\":\"user-%d\",\"endedAt\":\"2024-01-01T11:00:00.000Z\"}"}}}`, index, index)
	return ConditionalRecord{
		ETag: fmt.Sprintf(`W/"etag-%d"`, index),
		Body: []byte(body),
	}
}

func BenchmarkCacheSetGet(b *testing.B) {
	c := New(cacheSize)
	defer c.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("gist-%d", i%cacheSize)
		c.Set(key, createGistRecord(i), time.Minute)

		_, exists := c.Get(key)
		assert.True(b, exists)
	}
}

func BenchmarkCacheMemoryGrowth(b *testing.B) {
	c := New(cacheSize)
	defer c.Close()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	initialAlloc := m.Alloc

	numItems := int(float64(cacheSize) * 0.8)
	for i := 0; i < numItems; i++ {
		c.Set(fmt.Sprintf("gist-%d", i), createGistRecord(i), time.Hour)
	}

	runtime.GC()
	runtime.ReadMemStats(&m)
	filledAlloc := m.Alloc - initialAlloc

	b.Logf("Memory after filling cache: %v bytes (%.2f MB)", filledAlloc, float64(filledAlloc)/1024/1024)
	assert.Equal(b, numItems, c.Len())
	assert.Less(b, float64(filledAlloc), float64(50*1024*1024), "Memory usage with 80% filled cache should be less than 50MB")
}
