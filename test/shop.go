package test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rediwo/redi-eager/schema"
	"github.com/rediwo/redi-eager/types"
)

// ShopYAML describes the store used across driver tests: customers with
// orders, order items and tags joined through item_tag.
const ShopYAML = `
models:
  - name: Customer
    fields:
      - {name: id, type: int, primaryKey: true}
      - {name: name}
    relations:
      orders: {type: hasMany, model: Order, fields: [id], references: [customerId]}
      profile: {type: hasOne, model: Profile, fields: [id], references: [customerId]}
  - name: Profile
    fields:
      - {name: id, type: int, primaryKey: true}
      - {name: customerId, type: int}
      - {name: bio}
  - name: Order
    fields:
      - {name: id, type: int, primaryKey: true}
      - {name: customerId, type: int, nullable: true}
      - {name: status}
      - {name: total, type: float}
    relations:
      customer: {type: belongsTo, model: Customer, fields: [customerId], references: [id]}
      items: {type: hasMany, model: OrderItem, fields: [id], references: [orderId]}
  - name: OrderItem
    fields:
      - {name: id, type: int, primaryKey: true}
      - {name: orderId, type: int}
      - {name: sku, map: item_sku}
      - {name: quantity, type: int}
    relations:
      order: {type: belongsTo, model: Order, fields: [orderId], references: [id]}
      tags:
        type: hasManyThrough
        model: Tag
        fields: [id]
        references: [id]
        through: {model: ItemTag, fields: [itemId], references: [tagId]}
  - name: ItemTag
    table: item_tag
    fields:
      - {name: itemId, type: int, primaryKey: true}
      - {name: tagId, type: int, primaryKey: true}
  - name: Tag
    fields:
      - {name: id, type: int, primaryKey: true}
      - {name: label}
`

// ShopRows is the seed data by model, keyed by field name
var ShopRows = map[string][]map[string]any{
	"Customer": {
		{"id": 1, "name": "Ada"},
		{"id": 2, "name": "Grace"},
		{"id": 3, "name": "Linus"},
	},
	"Profile": {
		{"id": 1, "customerId": 1, "bio": "math"},
	},
	"Order": {
		{"id": 10, "customerId": 1, "status": "paid", "total": 30.5},
		{"id": 11, "customerId": 2, "status": "paid", "total": 12.0},
		{"id": 12, "customerId": 1, "status": "open", "total": 7.25},
		{"id": 13, "customerId": nil, "status": "open", "total": 1.0},
	},
	"OrderItem": {
		{"id": 100, "orderId": 10, "sku": "A", "quantity": 1},
		{"id": 101, "orderId": 10, "sku": "B", "quantity": 2},
		{"id": 102, "orderId": 11, "sku": "C", "quantity": 5},
	},
	"ItemTag": {
		{"itemId": 100, "tagId": 1000},
		{"itemId": 100, "tagId": 1001},
		{"itemId": 102, "tagId": 1000},
	},
	"Tag": {
		{"id": 1000, "label": "red"},
		{"id": 1001, "label": "blue"},
	},
}

// ShopRegistry parses ShopYAML
func ShopRegistry() *schema.Registry {
	registry, err := schema.LoadYAML(strings.NewReader(ShopYAML))
	if err != nil {
		panic(fmt.Sprintf("shop schema: %v", err))
	}
	return registry
}

// Execer is satisfied by *sql.DB and *sql.Tx
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SeedSQL recreates the shop tables and inserts ShopRows
func SeedSQL(ctx context.Context, db Execer, dialect types.DriverCapabilities, registry *schema.Registry) error {
	models, err := registry.DependencyOrder()
	if err != nil {
		return err
	}

	for i := len(models) - 1; i >= 0; i-- {
		s, err := registry.GetSchema(models[i])
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+dialect.QuoteIdentifier(s.TableName)); err != nil {
			return fmt.Errorf("drop %s: %w", s.TableName, err)
		}
	}

	for _, model := range models {
		s, err := registry.GetSchema(model)
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, createTableSQL(dialect, s)); err != nil {
			return fmt.Errorf("create %s: %w", s.TableName, err)
		}
		for _, row := range ShopRows[model] {
			query, args := insertSQL(dialect, s, row)
			if _, err := db.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("insert into %s: %w", s.TableName, err)
			}
		}
	}
	return nil
}

func createTableSQL(dialect types.DriverCapabilities, s *schema.Schema) string {
	var columns, keys []string
	for _, field := range s.Fields {
		column := dialect.QuoteIdentifier(field.GetColumnName())
		definition := column + " " + columnType(field.Type)
		if !field.Nullable {
			definition += " NOT NULL"
		}
		columns = append(columns, definition)
		if field.PrimaryKey {
			keys = append(keys, column)
		}
	}
	if len(keys) > 0 {
		columns = append(columns, "PRIMARY KEY ("+strings.Join(keys, ", ")+")")
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", dialect.QuoteIdentifier(s.TableName), strings.Join(columns, ", "))
}

func columnType(t schema.FieldType) string {
	switch t {
	case schema.FieldTypeInt, schema.FieldTypeInt64:
		return "BIGINT"
	case schema.FieldTypeFloat:
		return "DOUBLE PRECISION"
	case schema.FieldTypeBool:
		return "BOOLEAN"
	case schema.FieldTypeDateTime:
		return "TIMESTAMP"
	default:
		return "VARCHAR(255)"
	}
}

func insertSQL(dialect types.DriverCapabilities, s *schema.Schema, row map[string]any) (string, []any) {
	columns := make([]string, 0, len(s.Fields))
	placeholders := make([]string, 0, len(s.Fields))
	args := make([]any, 0, len(s.Fields))
	for _, field := range s.Fields {
		columns = append(columns, dialect.QuoteIdentifier(field.GetColumnName()))
		args = append(args, row[field.Name])
		placeholders = append(placeholders, dialect.GetPlaceholder(len(args)))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		dialect.QuoteIdentifier(s.TableName), strings.Join(columns, ", "), strings.Join(placeholders, ", ")), args
}
