package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rediwo/redi-eager/schema"
)

const idField = "_id"

// documentField maps a schema field to its document key. A single primary
// key is stored as _id; every other field uses its column name.
func documentField(model *schema.Schema, fieldName string) string {
	if pk := singlePrimaryKey(model); pk != nil && pk.Name == fieldName {
		return idField
	}
	return model.GetColumnNameByFieldName(fieldName)
}

func singlePrimaryKey(model *schema.Schema) *schema.Field {
	var found *schema.Field
	for i := range model.Fields {
		if !model.Fields[i].PrimaryKey {
			continue
		}
		if found != nil {
			return nil
		}
		found = &model.Fields[i]
	}
	return found
}

// ToDocument converts field values keyed by schema field name into a document
func ToDocument(model *schema.Schema, fields map[string]any) bson.M {
	doc := make(bson.M, len(fields))
	for name, value := range fields {
		doc[documentField(model, name)] = value
	}
	return doc
}

// fromDocument maps a decoded document back to schema field names. Keys
// that match no field, such as the generated _id of a composite-key
// model, are dropped.
func fromDocument(model *schema.Schema, doc bson.M) map[string]any {
	fields := make(map[string]any, len(model.Fields))
	for _, field := range model.Fields {
		value, ok := doc[documentField(model, field.Name)]
		if !ok {
			continue
		}
		fields[field.Name] = normalizeValue(value)
	}
	return fields
}

func normalizeValue(value any) any {
	switch v := value.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case primitive.DateTime:
		return v.Time().UTC()
	case primitive.Timestamp:
		return time.Unix(int64(v.T), 0).UTC()
	case primitive.Decimal128:
		return v.String()
	case bson.M:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = normalizeValue(item)
		}
		return out
	case bson.A:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return value
	}
}
