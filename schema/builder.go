package schema

// FieldBuilder assembles a Field in code, mirroring the keys a YAML schema
// accepts. Fields default to non-nullable strings.
type FieldBuilder struct {
	field Field
}

func NewField(name string) *FieldBuilder {
	return &FieldBuilder{field: Field{Name: name, Type: FieldTypeString}}
}

// KeyField is shorthand for an int primary key, the usual target of
// relation References.
func KeyField(name string) Field {
	return NewField(name).Int().PrimaryKey().Build()
}

// ForeignKeyField is shorthand for an int column relating to another
// model's key. Nullable foreign keys produce nil BelongsTo results.
func ForeignKeyField(name string, nullable bool) Field {
	fb := NewField(name).Int()
	if nullable {
		fb.Nullable()
	}
	return fb.Build()
}

func (fb *FieldBuilder) typed(t FieldType) *FieldBuilder {
	fb.field.Type = t
	return fb
}

func (fb *FieldBuilder) String() *FieldBuilder   { return fb.typed(FieldTypeString) }
func (fb *FieldBuilder) Int() *FieldBuilder      { return fb.typed(FieldTypeInt) }
func (fb *FieldBuilder) Int64() *FieldBuilder    { return fb.typed(FieldTypeInt64) }
func (fb *FieldBuilder) Float() *FieldBuilder    { return fb.typed(FieldTypeFloat) }
func (fb *FieldBuilder) Bool() *FieldBuilder     { return fb.typed(FieldTypeBool) }
func (fb *FieldBuilder) DateTime() *FieldBuilder { return fb.typed(FieldTypeDateTime) }

// PrimaryKey marks the field as the model key. Keys are never nullable.
func (fb *FieldBuilder) PrimaryKey() *FieldBuilder {
	fb.field.PrimaryKey, fb.field.Nullable = true, false
	return fb
}

// Nullable is ignored on primary keys
func (fb *FieldBuilder) Nullable() *FieldBuilder {
	fb.field.Nullable = !fb.field.PrimaryKey
	return fb
}

// Map stores the field under an explicit column instead of the snake_cased name
func (fb *FieldBuilder) Map(column string) *FieldBuilder {
	fb.field.Map = column
	return fb
}

func (fb *FieldBuilder) Build() Field {
	return fb.field
}
