package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	pkgerrors "github.com/matzehuels/maskstack/pkg/errors"
	maskio "github.com/matzehuels/maskstack/pkg/io"
	"github.com/matzehuels/maskstack/pkg/observability"
)

// connectTimeout bounds the initial connect, ping, and index build.
const connectTimeout = 5 * time.Second

// MongoStore persists run reports in a MongoDB collection, one document per
// run keyed by run_id.
type MongoStore struct {
	client *mongo.Client
	col    *mongo.Collection
}

// runRow is the projection decoded by ListRuns: summary fields plus patient
// IDs, so the summary can carry a patient count without loading visits.
type runRow struct {
	RunID     string    `bson:"run_id"`
	Source    string    `bson:"source"`
	CreatedAt time.Time `bson:"created_at"`
	Patients  []struct {
		ID string `bson:"id"`
	} `bson:"patients"`
}

// NewMongoStore connects to MongoDB, verifies the connection, and prepares
// the run collection including its unique run_id index.
func NewMongoStore(ctx context.Context, uri, database, collection string) (Store, error) {
	if uri == "" || database == "" || collection == "" {
		return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidConfig, "store requires uri, database, and collection")
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeStore, err, "connect to store")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeStore, err, "ping store")
	}

	col := client.Database(database).Collection(collection)
	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "run_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := col.Indexes().CreateOne(ctx, index); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeStore, err, "ensure run index")
	}

	return &MongoStore{client: client, col: col}, nil
}

// SaveRun upserts the report under its run ID.
func (s *MongoStore) SaveRun(ctx context.Context, rep *maskio.Report) error {
	if rep == nil || rep.RunID == "" {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "report with a run id is required")
	}
	if err := rep.Validate(); err != nil {
		return err
	}

	filter := bson.M{"run_id": rep.RunID}
	if _, err := s.col.ReplaceOne(ctx, filter, rep, options.Replace().SetUpsert(true)); err != nil {
		err = pkgerrors.Wrap(pkgerrors.ErrCodeStore, err, "save run %s", rep.RunID)
		observability.Store().OnError(ctx, s.col.Name(), "save", err)
		return err
	}
	observability.Store().OnSave(ctx, s.col.Name(), rep.RunID)
	return nil
}

// GetRun loads the report stored under runID.
func (s *MongoStore) GetRun(ctx context.Context, runID string) (*maskio.Report, error) {
	var rep maskio.Report
	err := s.col.FindOne(ctx, bson.M{"run_id": runID}).Decode(&rep)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		observability.Store().OnLoad(ctx, s.col.Name(), runID, false)
		return nil, pkgerrors.New(pkgerrors.ErrCodeReportNotFound, "run %s not found", runID)
	case err != nil:
		err = pkgerrors.Wrap(pkgerrors.ErrCodeStore, err, "load run %s", runID)
		observability.Store().OnError(ctx, s.col.Name(), "load", err)
		return nil, err
	}
	observability.Store().OnLoad(ctx, s.col.Name(), runID, true)
	return &rep, nil
}

// ListRuns returns run summaries sorted by creation time, newest first.
func (s *MongoStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetProjection(bson.M{"run_id": 1, "source": 1, "created_at": 1, "patients.id": 1}).
		SetLimit(int64(limit))
	cur, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		err = pkgerrors.Wrap(pkgerrors.ErrCodeStore, err, "list runs")
		observability.Store().OnError(ctx, s.col.Name(), "list", err)
		return nil, err
	}

	var rows []runRow
	if err := cur.All(ctx, &rows); err != nil {
		err = pkgerrors.Wrap(pkgerrors.ErrCodeStore, err, "decode run listing")
		observability.Store().OnError(ctx, s.col.Name(), "list", err)
		return nil, err
	}

	summaries := make([]RunSummary, len(rows))
	for i, row := range rows {
		summaries[i] = RunSummary{
			RunID:     row.RunID,
			Source:    row.Source,
			CreatedAt: row.CreatedAt,
			Patients:  len(row.Patients),
		}
	}
	return summaries, nil
}

// DeleteRun removes the run stored under runID.
func (s *MongoStore) DeleteRun(ctx context.Context, runID string) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"run_id": runID})
	if err != nil {
		err = pkgerrors.Wrap(pkgerrors.ErrCodeStore, err, "delete run %s", runID)
		observability.Store().OnError(ctx, s.col.Name(), "delete", err)
		return err
	}
	if res.DeletedCount == 0 {
		return pkgerrors.New(pkgerrors.ErrCodeReportNotFound, "run %s not found", runID)
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeStore, err, "disconnect store")
	}
	return nil
}

var _ Store = (*MongoStore)(nil)
