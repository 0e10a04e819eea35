package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/novella/pkg/cache"
	errs "github.com/matzehuels/novella/pkg/errors"
)

const (
	defaultMongoDatabase   = "novella"
	mongoProjectCollection = "projects"
)

// mongoProject is the stored document. The project JSON is kept as an
// opaque blob so legacy shapes survive until the next load normalizes them.
type mongoProject struct {
	Name      string    `bson:"_id"`
	Data      []byte    `bson:"data,omitempty"`
	Size      int       `bson:"size"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStore keeps one document per project.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// OpenMongo connects to uri and uses the given database ("novella" when
// empty).
func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeStorage, err, "connect mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errs.Wrap(errs.ErrCodeStorage, cache.Network(err), "ping mongodb")
	}
	if database == "" {
		database = defaultMongoDatabase
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(mongoProjectCollection),
	}, nil
}

// mongoRetryable marks connection-level failures as network errors and
// retries them.
func mongoRetryable(err error) error {
	if err != nil && (mongo.IsNetworkError(err) || mongo.IsTimeout(err)) {
		return cache.Retryable(cache.Network(err))
	}
	return err
}

func (s *MongoStore) Load(ctx context.Context, name string) ([]byte, error) {
	var doc mongoProject
	err := cache.RetryWithBackoff(ctx, func() error {
		err := s.coll.FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return projectNotFound(name)
		}
		return mongoRetryable(err)
	})
	if err != nil {
		return nil, storageErr(err, "load project")
	}
	return doc.Data, nil
}

func (s *MongoStore) Save(ctx context.Context, name string, data []byte) error {
	if err := errs.ValidateProjectName(name); err != nil {
		return err
	}
	doc := mongoProject{Name: name, Data: data, Size: len(data), UpdatedAt: time.Now().UTC()}
	err := cache.RetryWithBackoff(ctx, func() error {
		_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": name}, doc, options.Replace().SetUpsert(true))
		return mongoRetryable(err)
	})
	return storageErr(err, "save project")
}

func (s *MongoStore) Delete(ctx context.Context, name string) error {
	err := cache.RetryWithBackoff(ctx, func() error {
		_, err := s.coll.DeleteOne(ctx, bson.M{"_id": name})
		return mongoRetryable(err)
	})
	return storageErr(err, "delete project")
}

func (s *MongoStore) List(ctx context.Context) ([]Entry, error) {
	opts := options.Find().
		SetProjection(bson.M{"data": 0}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, storageErr(err, "list projects")
	}
	defer cur.Close(ctx)

	var docs []mongoProject
	if err := cur.All(ctx, &docs); err != nil {
		return nil, storageErr(err, "list projects")
	}
	out := make([]Entry, 0, len(docs))
	for _, d := range docs {
		out = append(out, Entry{Name: d.Name, Size: d.Size, UpdatedAt: d.UpdatedAt})
	}
	return out, nil
}

func (s *MongoStore) Backend() string { return "mongodb" }

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
