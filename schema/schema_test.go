package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchemaDefaults(t *testing.T) {
	s := New("OrderItem").
		AddField(NewField("id").Int().PrimaryKey().Build()).
		AddField(NewField("orderId").Int().Build()).
		AddField(NewField("sku").Map("item_sku").Build())

	assert.Equal(t, "order_items", s.TableName)
	assert.Equal(t, "order_id", s.GetColumnNameByFieldName("orderId"))
	assert.Equal(t, "item_sku", s.GetColumnNameByFieldName("sku"))
	assert.Equal(t, "unknown_field", s.GetColumnNameByFieldName("unknownField"))

	pk, err := s.GetPrimaryKey()
	require.NoError(t, err)
	assert.Equal(t, "id", pk.Name)
}

func TestMapColumnDataToSchema(t *testing.T) {
	s := New("OrderItem").
		AddField(NewField("orderId").Int().Build()).
		AddField(NewField("sku").Map("item_sku").Build())

	mapped := s.MapColumnDataToSchema(map[string]any{
		"order_id": int64(1),
		"item_sku": "A-1",
		"extra":    true,
	})

	assert.Equal(t, map[string]any{"orderId": int64(1), "sku": "A-1", "extra": true}, mapped)
}

func TestSchemaValidate(t *testing.T) {
	tests := []struct {
		name          string
		schema        *Schema
		errorContains string
	}{
		{"valid", New("User").AddField(NewField("id").Int().PrimaryKey().Build()), ""},
		{"no fields", New("User"), "at least one field"},
		{"empty name", &Schema{TableName: "x"}, "name cannot be empty"},
		{"duplicate field", New("User").AddField(Field{Name: "id"}).AddField(Field{Name: "id"}), "twice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate()
			if tt.errorContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestFieldShorthands(t *testing.T) {
	key := KeyField("id")
	assert.Equal(t, Field{Name: "id", Type: FieldTypeInt, PrimaryKey: true}, key)

	fk := ForeignKeyField("customerId", true)
	assert.Equal(t, FieldTypeInt, fk.Type)
	assert.True(t, fk.Nullable)
	assert.False(t, ForeignKeyField("orderId", false).Nullable)

	pk := NewField("id").PrimaryKey().Nullable().Build()
	assert.False(t, pk.Nullable, "primary keys stay non-nullable")
}
