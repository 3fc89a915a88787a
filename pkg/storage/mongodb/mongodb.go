// Package mongodb provides a MongoDB-backed implementation of the document
// store capability, wrapping the official driver's cursors as lazy iterators.
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"

	"github.com/SIXwishlist/pulp/pkg/storage"
)

var tracer = otel.Tracer("pulp/pkg/storage/mongodb")

// AssociationCollection is the name of the repo-unit association collection.
const AssociationCollection = "repo_content_units"

// Datastore is a MongoDB implementation of storage.Datastore. Unit
// collections are exposed through Collection for registry wiring.
type Datastore struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ storage.Datastore = (*Datastore)(nil)

// New connects to the given MongoDB URI and returns a datastore over the
// named database.
func New(ctx context.Context, uri, database string) (*Datastore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("initialize mongodb connection: %w", err)
	}

	return &Datastore{
		client: client,
		db:     client.Database(database),
	}, nil
}

// Associations implements storage.Datastore.
func (d *Datastore) Associations() storage.Collection {
	return d.Collection(AssociationCollection)
}

// Collection returns a handle on the named collection.
func (d *Datastore) Collection(name string) storage.Collection {
	return &collection{coll: d.db.Collection(name)}
}

// IsReady implements storage.Datastore.
func (d *Datastore) IsReady(ctx context.Context) (bool, error) {
	if err := d.client.Ping(ctx, nil); err != nil {
		return false, err
	}
	return true, nil
}

// Close implements storage.Datastore.
func (d *Datastore) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

type collection struct {
	coll *mongo.Collection
}

var _ storage.Collection = (*collection)(nil)

// Find implements storage.Collection.
func (c *collection) Find(ctx context.Context, filter storage.Filter, opts storage.FindOptions) (storage.DocumentIterator, error) {
	ctx, span := tracer.Start(ctx, "mongodb.Find")
	defer span.End()

	findOpts := options.Find()
	if opts.Fields != nil {
		projection := bson.M{storage.FieldID: 1}
		for _, f := range opts.Fields {
			projection[f] = 1
		}
		findOpts.SetProjection(projection)
	}
	if len(opts.Sort) > 0 {
		sortDoc := make(bson.D, 0, len(opts.Sort))
		for _, key := range opts.Sort {
			direction := 1
			if key.Desc {
				direction = -1
			}
			sortDoc = append(sortDoc, bson.E{Key: key.Field, Value: direction})
		}
		findOpts.SetSort(sortDoc)
	}

	cursor, err := c.coll.Find(ctx, toBSON(filter), findOpts)
	if err != nil {
		return nil, err
	}

	return &cursorIterator{cursor: cursor}, nil
}

// Distinct implements storage.Collection.
func (c *collection) Distinct(ctx context.Context, field string, filter storage.Filter) ([]string, error) {
	ctx, span := tracer.Start(ctx, "mongodb.Distinct")
	defer span.End()

	raw, err := c.coll.Distinct(ctx, field, toBSON(filter))
	if err != nil {
		return nil, err
	}

	values := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			values = append(values, s)
		}
	}
	return values, nil
}

// Insert implements storage.Collection.
func (c *collection) Insert(ctx context.Context, doc storage.Document) (string, error) {
	res, err := c.coll.InsertOne(ctx, bson.M(doc))
	if err != nil {
		return "", err
	}

	switch id := res.InsertedID.(type) {
	case primitive.ObjectID:
		return id.Hex(), nil
	case string:
		return id, nil
	default:
		return fmt.Sprintf("%v", id), nil
	}
}

// toBSON translates the engine filter into a driver filter document.
func toBSON(filter storage.Filter) bson.M {
	out := bson.M{}
	for field, want := range filter {
		if in, ok := want.(storage.In); ok {
			out[field] = bson.M{"$in": []any(in)}
			continue
		}
		out[field] = want
	}
	return out
}

// cursorIterator adapts a driver cursor to storage.DocumentIterator. Stop
// closes the server-side cursor, so abandoning iteration early releases it.
type cursorIterator struct {
	cursor  *mongo.Cursor
	stopped bool
}

var _ storage.DocumentIterator = (*cursorIterator)(nil)

// Next see storage.Iterator.
func (c *cursorIterator) Next(ctx context.Context) (storage.Document, error) {
	if c.stopped {
		return nil, storage.ErrIteratorDone
	}

	if !c.cursor.Next(ctx) {
		if err := c.cursor.Err(); err != nil {
			return nil, err
		}
		c.Stop()
		return nil, storage.ErrIteratorDone
	}

	var raw bson.M
	if err := c.cursor.Decode(&raw); err != nil {
		return nil, err
	}
	return fromBSON(raw), nil
}

// Stop see storage.Iterator.
func (c *cursorIterator) Stop() {
	if c.stopped {
		return
	}
	c.stopped = true
	_ = c.cursor.Close(context.Background())
}

// fromBSON normalizes driver value types to the engine's document types:
// ObjectID ids become hex strings, DateTime becomes time.Time.
func fromBSON(raw bson.M) storage.Document {
	doc := make(storage.Document, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case primitive.ObjectID:
			doc[k] = val.Hex()
		case primitive.DateTime:
			doc[k] = val.Time().UTC()
		case primitive.A:
			doc[k] = []any(val)
		default:
			doc[k] = v
		}
	}
	return doc
}
