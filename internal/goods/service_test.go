package goods_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freightledger/freightledger/internal/goods"
)

func TestGood_MassKg(t *testing.T) {
	assert.Equal(t, 2500.0, goods.Good{Quantity: 2.5, Unit: goods.UnitTons}.MassKg())
	assert.Equal(t, 40.0, goods.Good{Quantity: 40, Unit: goods.UnitKg}.MassKg())
}

func TestCategory_OrDefault(t *testing.T) {
	assert.Equal(t, goods.CategoryUpstream, goods.Category("").OrDefault())
	assert.Equal(t, goods.CategoryDownstream, goods.CategoryDownstream.OrDefault())
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc := goods.NewService(goods.NewInMemoryRepository(), zerolog.Nop())

	g, err := svc.Create(ctx, goods.Input{
		Name:     "  Steel coils ",
		Quantity: 12,
		Unit:     "Tons",
		Category: "downstream",
	})
	require.NoError(t, err)

	assert.Contains(t, g.ID, "gd_")
	assert.Equal(t, "Steel coils", g.Name)
	assert.Equal(t, goods.UnitTons, g.Unit)
	assert.Equal(t, goods.CategoryDownstream, g.Category)
	assert.Equal(t, 12000.0, g.MassKg())

	got, err := svc.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g, got)
}

func TestService_CreateDefaultsCategory(t *testing.T) {
	svc := goods.NewService(goods.NewInMemoryRepository(), zerolog.Nop())

	g, err := svc.Create(context.Background(), goods.Input{Name: "Rice", Quantity: 500, Unit: "kg"})
	require.NoError(t, err)
	assert.Equal(t, goods.CategoryUpstream, g.Category)
}

func TestService_CreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		input  goods.Input
		fields []string
	}{
		{
			name:   "empty",
			input:  goods.Input{},
			fields: []string{"name", "quantity", "unit"},
		},
		{
			name:   "negative quantity",
			input:  goods.Input{Name: "Tea", Quantity: -1, Unit: "kg"},
			fields: []string{"quantity"},
		},
		{
			name:   "bad unit and category",
			input:  goods.Input{Name: "Tea", Quantity: 1, Unit: "lbs", Category: "scope9"},
			fields: []string{"unit", "ghg_category"},
		},
	}

	svc := goods.NewService(goods.NewInMemoryRepository(), zerolog.Nop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.input)

			var verr *goods.ValidationError
			require.True(t, errors.As(err, &verr))

			var fields []string
			for _, fe := range verr.Errors {
				fields = append(fields, fe.Field)
			}
			assert.Equal(t, tt.fields, fields)
		})
	}
}

func TestService_GetNotFound(t *testing.T) {
	svc := goods.NewService(goods.NewInMemoryRepository(), zerolog.Nop())

	_, err := svc.Get(context.Background(), "gd_missing")
	assert.ErrorIs(t, err, goods.ErrGoodNotFound)
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	svc := goods.NewService(goods.NewInMemoryRepository(), zerolog.Nop())

	for _, name := range []string{"A", "B", "C"} {
		_, err := svc.Create(ctx, goods.Input{Name: name, Quantity: 1, Unit: "kg"})
		require.NoError(t, err)
	}

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, goods.Validate(goods.Good{Name: "Rice", Quantity: 10, Unit: goods.UnitTons}))

	err := goods.Validate(goods.Good{Name: " ", Quantity: 0, Unit: "lbs", Category: "scope9"})
	var verr *goods.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Errors, 4)
}
