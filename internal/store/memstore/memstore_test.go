package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront-api/internal/domain"
	"github.com/joao-fontenele/storefront-api/internal/store"
	"github.com/joao-fontenele/storefront-api/internal/store/storetest"
)

func TestMemstore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) *store.Store {
		return New()
	})
}

func TestTotalSalesIsExact(t *testing.T) {
	ctx := context.Background()
	for range 20 {
		st := New()
		for _, total := range []float64{0.1, 0.2, 0.3, 1e-7, 1234.56} {
			require.NoError(t, st.Orders.Create(ctx, &domain.Order{TotalPrice: total}))
		}

		sum, err := st.Orders.TotalSales(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1235.1600001, sum)
	}
}
