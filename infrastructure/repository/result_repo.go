package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"demoqa-e2e/domain/report"
)

const resultCollection = "test_result"

// resultDocument is the MongoDB document structure for test results.
type resultDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	RunID      string             `bson:"run_id"`
	Suite      string             `bson:"suite"`
	Name       string             `bson:"name"`
	Profile    string             `bson:"profile"`
	Outcome    string             `bson:"outcome"`
	DurationMS int64              `bson:"duration_ms"`
	Retries    int                `bson:"retries"`
	Error      string             `bson:"error,omitempty"`
	Screenshot string             `bson:"screenshot,omitempty"`
	StartedAt  time.Time          `bson:"started_at"`
}

// MongoResultRepository implements report.Repository using MongoDB.
type MongoResultRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewMongoResultRepository creates a new MongoDB-based result repository.
func NewMongoResultRepository(db *MongoDB, logger *slog.Logger) *MongoResultRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoResultRepository{
		collection: db.Collection(resultCollection),
		logger:     logger,
	}
}

// Insert stores a result and sets its ID to the generated ObjectID.
func (r *MongoResultRepository) Insert(ctx context.Context, result *report.Result) error {
	res, err := r.collection.InsertOne(ctx, resultToDocument(result))
	if err != nil {
		return fmt.Errorf("failed to insert result: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		result.ID = oid.Hex()
	}

	r.logger.Debug("Result inserted", "id", result.ID, "test", result.Identity(), "outcome", result.Outcome)
	return nil
}

// FindByRun retrieves the results of a run in start order.
func (r *MongoResultRepository) FindByRun(ctx context.Context, runID string) ([]*report.Result, error) {
	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: 1}})
	return r.find(ctx, bson.M{"run_id": runID}, opts)
}

// FindRecent retrieves the latest results, newest first.
func (r *MongoResultRepository) FindRecent(ctx context.Context, limit int) ([]*report.Result, error) {
	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, bson.D{}, opts)
}

func (r *MongoResultRepository) find(ctx context.Context, filter any, opts *options.FindOptions) ([]*report.Result, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find results: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []resultDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}

	results := make([]*report.Result, len(docs))
	for i := range docs {
		results[i] = documentToResult(&docs[i])
	}
	return results, nil
}

func resultToDocument(r *report.Result) *resultDocument {
	doc := &resultDocument{
		RunID:      r.RunID,
		Suite:      r.Suite,
		Name:       r.Name,
		Profile:    r.Profile,
		Outcome:    string(r.Outcome),
		DurationMS: r.Duration.Milliseconds(),
		Retries:    r.Retries,
		Error:      r.Error,
		Screenshot: r.Screenshot,
		StartedAt:  r.StartedAt.UTC(),
	}
	if oid, err := primitive.ObjectIDFromHex(r.ID); err == nil {
		doc.ID = oid
	}
	return doc
}

func documentToResult(doc *resultDocument) *report.Result {
	r := &report.Result{
		RunID:      doc.RunID,
		Suite:      doc.Suite,
		Name:       doc.Name,
		Profile:    doc.Profile,
		Outcome:    report.Outcome(doc.Outcome),
		Duration:   time.Duration(doc.DurationMS) * time.Millisecond,
		Retries:    doc.Retries,
		Error:      doc.Error,
		Screenshot: doc.Screenshot,
		StartedAt:  doc.StartedAt,
	}
	if !doc.ID.IsZero() {
		r.ID = doc.ID.Hex()
	}
	return r
}

var _ report.Repository = (*MongoResultRepository)(nil)
