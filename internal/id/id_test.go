package id

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocal_Format(t *testing.T) {
	now := time.UnixMilli(1718000000123)

	id, err := NewLocal(now)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(id, LocalPrefix))

	parts := strings.Split(strings.TrimPrefix(id, LocalPrefix), "_")
	require.Len(t, parts, 2, "id: %s", id)

	millis, err := strconv.ParseInt(parts[0], 10, 64)
	require.NoError(t, err)
	assert.Equal(t, now.UnixMilli(), millis)
	assert.Len(t, parts[1], localSuffixLen)
}

func TestNewLocal_UniqueWithinSameMillisecond(t *testing.T) {
	now := time.Now()
	ids := make(map[string]bool)

	for range 1000 {
		id := MustNewLocal(now)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}

	assert.Len(t, ids, 1000)
}

func TestIsLocal(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{MustNewLocal(time.Now()), true},
		{"local_123", true},
		{NewServer(), false},
		{"", false},
		{"LOCAL_123", false},
		{"evt-local_1", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLocal(tt.id))
		})
	}
}

func TestNewServer_NeverLocal(t *testing.T) {
	for range 100 {
		id := NewServer()
		assert.False(t, IsLocal(id))
		assert.Len(t, id, 36)
	}
}

func BenchmarkNewLocal(b *testing.B) {
	now := time.Now()
	for b.Loop() {
		_, _ = NewLocal(now)
	}
}
