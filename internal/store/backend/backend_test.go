package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMemory(t *testing.T) {
	st, err := Open(context.Background(), "memory://")
	require.NoError(t, err)

	count, err := st.Products.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.NoError(t, st.Close(context.Background()))
}

func TestOpenRejectsUnknownSchemes(t *testing.T) {
	for _, url := range []string{"mysql://localhost/db", "localhost:5432", ""} {
		_, err := Open(context.Background(), url)
		assert.Error(t, err, url)
	}
}
