package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/matzehuels/cpanmeta/pkg/deps"
	cerrors "github.com/matzehuels/cpanmeta/pkg/errors"
	"github.com/matzehuels/cpanmeta/pkg/pipeline"
)

// Mongo defaults.
const (
	DefaultDatabase   = "cpanmeta"
	DefaultCollection = "results"

	connectTimeout = 10 * time.Second
)

// MongoConfig holds MongoDB connection configuration.
type MongoConfig struct {
	URI        string // e.g. "mongodb://localhost:27017"
	Database   string // defaults to DefaultDatabase
	Collection string // defaults to DefaultCollection
}

// Mongo stores results in a MongoDB collection.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongo connects to MongoDB, verifies the connection and ensures the
// directory index exists.
func NewMongo(ctx context.Context, cfg MongoConfig) (*Mongo, error) {
	if cfg.URI == "" {
		return nil, cerrors.New(cerrors.ErrCodeInvalidInput, "mongodb URI cannot be empty")
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeStoreFailure, err, "connect to mongodb")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, cerrors.Wrap(cerrors.ErrCodeStoreFailure, err, "ping mongodb")
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "dir", Value: 1}, {Key: "resolved_at", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, cerrors.Wrap(cerrors.ErrCodeStoreFailure, err, "create index")
	}

	return &Mongo{client: client, coll: coll}, nil
}

func (m *Mongo) Save(ctx context.Context, res *pipeline.Result) error {
	if res == nil {
		return cerrors.New(cerrors.ErrCodeInvalidInput, "result cannot be nil")
	}
	if err := validateID(res.ID); err != nil {
		return err
	}
	doc := toDocument(res)
	_, err := m.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return cerrors.Wrap(cerrors.ErrCodeStoreFailure, err, "save result %s", res.ID)
	}
	return nil
}

func (m *Mongo) Get(ctx context.Context, id string) (*pipeline.Result, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	var doc resultDocument
	err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeStoreFailure, err, "get result %s", id)
	}
	return fromDocument(&doc), nil
}

func (m *Mongo) List(ctx context.Context, dir string, limit int) ([]*pipeline.Result, error) {
	filter := bson.M{}
	if dir != "" {
		filter["dir"] = dir
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "resolved_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(listLimit(limit)))

	cur, err := m.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeStoreFailure, err, "list results")
	}
	var docs []resultDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeStoreFailure, err, "decode results")
	}

	out := make([]*pipeline.Result, len(docs))
	for i := range docs {
		out[i] = fromDocument(&docs[i])
	}
	return out, nil
}

func (m *Mongo) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if _, err := m.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return cerrors.Wrap(cerrors.ErrCodeStoreFailure, err, "delete result %s", id)
	}
	return nil
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}

var _ Store = (*Mongo)(nil)

// =============================================================================
// Document mapping
// =============================================================================

type resultDocument struct {
	ID         string            `bson:"_id"`
	Dir        string            `bson:"dir"`
	Files      []string          `bson:"files"`
	Sources    []sourceDocument  `bson:"sources"`
	Failures   []failureDocument `bson:"failures,omitempty"`
	ResolvedAt time.Time         `bson:"resolved_at"`
	Stats      statsDocument     `bson:"stats"`
}

type sourceDocument struct {
	Name         string               `bson:"name,omitempty"`
	Version      string               `bson:"version,omitempty"`
	Path         string               `bson:"path"`
	Origin       string               `bson:"origin"`
	Kind         string               `bson:"kind"`
	Dependencies []dependencyDocument `bson:"dependencies"`
	Files        []string             `bson:"files,omitempty"`
}

type dependencyDocument struct {
	Name    string `bson:"name"`
	Version string `bson:"version,omitempty"`
	Path    string `bson:"path,omitempty"`
}

type failureDocument struct {
	File    string `bson:"file"`
	Kind    string `bson:"kind"`
	Code    string `bson:"code,omitempty"`
	Message string `bson:"message"`
}

type statsDocument struct {
	FileCount       int   `bson:"file_count"`
	SourceCount     int   `bson:"source_count"`
	DependencyCount int   `bson:"dependency_count"`
	DurationNS      int64 `bson:"duration_ns"`
}

// toDocument maps a result to its stored form. CacheHit describes a single
// delivery and is not persisted.
func toDocument(res *pipeline.Result) *resultDocument {
	doc := &resultDocument{
		ID:         res.ID,
		Dir:        res.Dir,
		Files:      res.Files,
		Sources:    make([]sourceDocument, len(res.Sources)),
		ResolvedAt: res.ResolvedAt.UTC(),
		Stats: statsDocument{
			FileCount:       res.Stats.FileCount,
			SourceCount:     res.Stats.SourceCount,
			DependencyCount: res.Stats.DependencyCount,
			DurationNS:      int64(res.Stats.Duration),
		},
	}
	if doc.Files == nil {
		doc.Files = []string{}
	}
	for i, s := range res.Sources {
		sd := sourceDocument{
			Name:         s.Name,
			Version:      s.Version,
			Path:         s.Path,
			Origin:       s.Origin,
			Kind:         s.Kind,
			Dependencies: make([]dependencyDocument, len(s.Dependencies)),
			Files:        s.Files,
		}
		for j, d := range s.Dependencies {
			sd.Dependencies[j] = dependencyDocument(d)
		}
		doc.Sources[i] = sd
	}
	for _, f := range res.Failures {
		doc.Failures = append(doc.Failures, failureDocument{
			File:    f.File,
			Kind:    f.Kind,
			Code:    string(f.Code),
			Message: f.Message,
		})
	}
	return doc
}

func fromDocument(doc *resultDocument) *pipeline.Result {
	res := &pipeline.Result{
		ID:         doc.ID,
		Dir:        doc.Dir,
		Files:      doc.Files,
		Sources:    make([]deps.Source, len(doc.Sources)),
		ResolvedAt: doc.ResolvedAt,
		Stats: pipeline.Stats{
			FileCount:       doc.Stats.FileCount,
			SourceCount:     doc.Stats.SourceCount,
			DependencyCount: doc.Stats.DependencyCount,
			Duration:        time.Duration(doc.Stats.DurationNS),
		},
	}
	if res.Files == nil {
		res.Files = []string{}
	}
	for i, sd := range doc.Sources {
		s := deps.Source{
			Name:         sd.Name,
			Version:      sd.Version,
			Path:         sd.Path,
			Origin:       sd.Origin,
			Kind:         sd.Kind,
			Dependencies: make([]deps.Dependency, len(sd.Dependencies)),
			Files:        sd.Files,
		}
		for j, d := range sd.Dependencies {
			s.Dependencies[j] = deps.Dependency(d)
		}
		res.Sources[i] = s
	}
	for _, f := range doc.Failures {
		res.Failures = append(res.Failures, pipeline.Failure{
			File:    f.File,
			Kind:    f.Kind,
			Code:    cerrors.Code(f.Code),
			Message: f.Message,
		})
	}
	return res
}
