package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nikhilkumar000/Intern/internal/models"
)

const (
	TranscriptsCollection        = "call_transcripts"
	TranscriptCountersCollection = "call_transcript_counters"
)

type TranscriptRepository interface {
	// NextSeq atomically reserves the next insertion sequence number for callID.
	NextSeq(ctx context.Context, callID string) (int64, error)
	Insert(ctx context.Context, c *models.TranscriptChunk) error
	// ListByCall orders by seq. chunk_index is not part of the sort.
	ListByCall(ctx context.Context, callID string) ([]models.TranscriptChunk, error)
}

type transcriptRepo struct {
	col      *mongo.Collection
	counters *mongo.Collection
}

func NewTranscriptRepo(db *mongo.Database) TranscriptRepository {
	return &transcriptRepo{
		col:      db.Collection(TranscriptsCollection),
		counters: db.Collection(TranscriptCountersCollection),
	}
}

func (r *transcriptRepo) NextSeq(ctx context.Context, callID string) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": callID},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	return doc.Seq, err
}

func (r *transcriptRepo) Insert(ctx context.Context, c *models.TranscriptChunk) error {
	_, err := r.col.InsertOne(ctx, c)
	return err
}

func (r *transcriptRepo) ListByCall(ctx context.Context, callID string) ([]models.TranscriptChunk, error) {
	cur, err := r.col.Find(ctx,
		bson.M{"call_id": callID},
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}, {Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.TranscriptChunk{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
