package inmemory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutOverwrites(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	url, err := s.Put(ctx, []byte("v1"), "filings/rec1/acme_data.json", "application/json")
	require.NoError(t, err)
	assert.Equal(t, "mem://filings/rec1/acme_data.json", url)

	_, err = s.Put(ctx, []byte("v2"), "filings/rec1/acme_data.json", "application/json")
	require.NoError(t, err)

	obj, ok := s.Get("filings/rec1/acme_data.json")
	require.True(t, ok)
	assert.Equal(t, "v2", string(obj.Data))
	assert.Equal(t, 2, obj.Writes)
	assert.Len(t, s.Names(), 1)
}

func TestContainers(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	found, err := s.Exists(ctx, "filings")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Create(ctx, "filings"))
	found, err = s.Exists(ctx, "filings")
	require.NoError(t, err)
	assert.True(t, found)
}
