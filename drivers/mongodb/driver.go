package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rediwo/redi-eager/drivers/base"
	"github.com/rediwo/redi-eager/logger"
	"github.com/rediwo/redi-eager/query"
	"github.com/rediwo/redi-eager/schema"
	"github.com/rediwo/redi-eager/types"
	"github.com/rediwo/redi-eager/utils"
)

func init() {
	base.Register(URIParser, func(nativeURI string, schemas *schema.Registry) (types.Database, error) {
		return NewMongoDB(nativeURI, schemas)
	})
}

// ErrNotConnected is returned by queries issued before Connect
var ErrNotConnected = errors.New("not connected to MongoDB")

// MongoDB implements the Database interface for MongoDB. Each model is a
// collection named after the schema's table name.
type MongoDB struct {
	client    *mongo.Client
	nativeURI string
	dbName    string
	schemas   *schema.Registry
	logger    *logger.DBLogger
}

// NewMongoDB creates a new MongoDB database instance
// The uri parameter should be a MongoDB connection string
func NewMongoDB(nativeURI string, schemas *schema.Registry) (*MongoDB, error) {
	dbName := databaseName(nativeURI)
	if dbName == "" {
		return nil, fmt.Errorf("database name is required in MongoDB URI")
	}
	if schemas == nil {
		schemas = schema.NewRegistry()
	}

	return &MongoDB{
		nativeURI: nativeURI,
		dbName:    dbName,
		schemas:   schemas,
		logger:    logger.NewDBLogger(nil),
	}, nil
}

// Connect establishes connection to MongoDB
func (m *MongoDB) Connect(ctx context.Context) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(m.nativeURI))
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	m.client = client
	return nil
}

// Close closes the MongoDB connection
func (m *MongoDB) Close() error {
	if m.client != nil {
		return m.client.Disconnect(context.Background())
	}
	return nil
}

// Ping checks if the database is reachable
func (m *MongoDB) Ping(ctx context.Context) error {
	if m.client == nil {
		return ErrNotConnected
	}
	return m.client.Ping(ctx, nil)
}

// SetLogger replaces the command logger
func (m *MongoDB) SetLogger(l logger.Logger) {
	m.logger = logger.NewDBLogger(l)
}

func (m *MongoDB) Schemas() *schema.Registry {
	return m.schemas
}

func (m *MongoDB) GetDriverType() string {
	return string(types.DriverMongoDB)
}

// Collection returns the collection holding a model's documents
func (m *MongoDB) Collection(modelName string) (*mongo.Collection, error) {
	if m.client == nil {
		return nil, ErrNotConnected
	}
	model, err := m.schemas.GetSchema(modelName)
	if err != nil {
		return nil, err
	}
	return m.client.Database(m.dbName).Collection(model.TableName), nil
}

// FetchBatch issues one $in find for the request and groups the documents by
// the owner key they belong to. HasManyThrough reads the pivot collection
// first, then the related collection.
func (m *MongoDB) FetchBatch(ctx context.Context, req types.BatchRequest) (types.Batch, error) {
	if m.client == nil {
		return nil, ErrNotConnected
	}
	rel := req.Relation
	related, err := m.schemas.GetSchema(rel.Model)
	if err != nil {
		return nil, err
	}
	b, err := query.Apply(req.Constraint)
	if err != nil {
		return nil, fmt.Errorf("eager load %q: %w", req.Path, err)
	}

	if rel.Type == schema.RelationHasManyThrough {
		return m.fetchThrough(ctx, related, rel, req.Values, b)
	}

	b = b.WhereIn(rel.ReferencedKey(), req.Values).(*query.Builder)
	records, err := m.find(ctx, related, b)
	if err != nil {
		return nil, err
	}

	batch := types.Batch{}
	for _, record := range records {
		if key, ok := utils.KeyOf(record.Field(rel.ReferencedKey())); ok {
			batch[key] = append(batch[key], record)
		}
	}
	return batch, nil
}

func (m *MongoDB) fetchThrough(ctx context.Context, related *schema.Schema, rel schema.Relation, values []any, b *query.Builder) (types.Batch, error) {
	through := rel.Through
	if through == nil || len(through.Fields) != 1 || len(through.References) != 1 {
		return nil, fmt.Errorf("relation %s: invalid through definition", rel.Alias)
	}
	pivot, err := m.schemas.GetSchema(through.Model)
	if err != nil {
		return nil, err
	}

	links, err := m.find(ctx, pivot, query.NewBuilder().WhereIn(through.Fields[0], values).(*query.Builder))
	if err != nil {
		return nil, err
	}

	// related key -> owner keys, in pivot order
	owners := make(map[string][]string)
	var relatedValues []any
	for _, link := range links {
		owner, ok := utils.KeyOf(link.Field(through.Fields[0]))
		if !ok {
			continue
		}
		target := link.Field(through.References[0])
		key, ok := utils.KeyOf(target)
		if !ok {
			continue
		}
		if _, seen := owners[key]; !seen {
			relatedValues = append(relatedValues, target)
		}
		owners[key] = append(owners[key], owner)
	}

	batch := types.Batch{}
	if len(relatedValues) == 0 {
		return batch, nil
	}

	records, err := m.find(ctx, related, b.WhereIn(rel.ReferencedKey(), relatedValues).(*query.Builder))
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		key, ok := utils.KeyOf(record.Field(rel.ReferencedKey()))
		if !ok {
			continue
		}
		for _, owner := range owners[key] {
			batch[owner] = append(batch[owner], record)
		}
	}
	return batch, nil
}

// FindMany returns the records of a model matching constraint
func (m *MongoDB) FindMany(ctx context.Context, modelName string, constraint types.Constraint) ([]types.Entity, error) {
	if m.client == nil {
		return nil, ErrNotConnected
	}
	model, err := m.schemas.GetSchema(modelName)
	if err != nil {
		return nil, err
	}
	b, err := query.Apply(constraint)
	if err != nil {
		return nil, err
	}

	records, err := m.find(ctx, model, b)
	if err != nil {
		return nil, err
	}
	entities := make([]types.Entity, len(records))
	for i, record := range records {
		entities[i] = record
	}
	return entities, nil
}

func (m *MongoDB) find(ctx context.Context, model *schema.Schema, b *query.Builder) ([]*types.Record, error) {
	filter, err := compileFilter(model, b)
	if err != nil {
		return nil, err
	}
	collection := m.client.Database(m.dbName).Collection(model.TableName)

	start := time.Now()
	cursor, err := collection.Find(ctx, filter, findOptions(model, b))
	m.logger.LogCommand(describeFind(model.TableName, filter), time.Since(start))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	records := make([]*types.Record, len(docs))
	for i, doc := range docs {
		records[i] = types.NewRecord(model.Name, fromDocument(model, doc))
	}
	return records, nil
}

func describeFind(collection string, filter bson.M) string {
	data, err := bson.MarshalExtJSON(filter, false, false)
	if err != nil {
		return fmt.Sprintf("db.%s.find(%v)", collection, filter)
	}
	return fmt.Sprintf("db.%s.find(%s)", collection, data)
}
