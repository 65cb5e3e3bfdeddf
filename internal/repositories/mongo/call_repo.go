package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nikhilkumar000/Intern/internal/models"
	"github.com/nikhilkumar000/Intern/internal/utils"
)

const CallSessionsCollection = "call_sessions"

type CallRepository interface {
	Create(ctx context.Context, c *models.CallSession) error
	GetByID(ctx context.Context, id string) (*models.CallSession, error)
	// Transition writes next only if the stored status is one of from.
	// It returns utils.ErrConflict when the guard does not match (or utils.ErrNotFound
	// when the session does not exist).
	Transition(ctx context.Context, next *models.CallSession, from []models.CallStatus) (*models.CallSession, error)
	ListByParty(ctx context.Context, partyID string, limit int64) ([]models.CallSession, error)
	List(ctx context.Context, status models.CallStatus, limit int64) ([]models.CallSession, error)
	ListStale(ctx context.Context, status models.CallStatus, startedBefore time.Time, limit int64) ([]models.CallSession, error)
}

type callRepo struct {
	col *mongo.Collection
}

func NewCallRepo(db *mongo.Database) CallRepository {
	return &callRepo{col: db.Collection(CallSessionsCollection)}
}

func (r *callRepo) Create(ctx context.Context, c *models.CallSession) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	_, err := r.col.InsertOne(ctx, c)
	return err
}

func (r *callRepo) GetByID(ctx context.Context, id string) (*models.CallSession, error) {
	var c models.CallSession
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *callRepo) Transition(ctx context.Context, next *models.CallSession, from []models.CallStatus) (*models.CallSession, error) {
	set := bson.M{
		"status":     next.Status,
		"updated_at": next.UpdatedAt.UTC(),
	}
	if next.EndedAt != nil {
		set["ended_at"] = next.EndedAt.UTC()
	}
	if next.DurationSeconds != nil {
		set["duration_seconds"] = *next.DurationSeconds
	}
	if next.EndReason != "" {
		set["end_reason"] = next.EndReason
	}

	var out models.CallSession
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": next.ID, "status": bson.M{"$in": from}},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		n, cerr := r.col.CountDocuments(ctx, bson.M{"_id": next.ID})
		if cerr != nil {
			return nil, cerr
		}
		if n == 0 {
			return nil, utils.ErrNotFound
		}
		return nil, utils.ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *callRepo) ListByParty(ctx context.Context, partyID string, limit int64) ([]models.CallSession, error) {
	return r.find(ctx, bson.M{"$or": bson.A{
		bson.M{"caller_id": partyID},
		bson.M{"expert_id": partyID},
	}}, limit, bson.D{{Key: "created_at", Value: -1}})
}

func (r *callRepo) List(ctx context.Context, status models.CallStatus, limit int64) ([]models.CallSession, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return r.find(ctx, filter, limit, bson.D{{Key: "created_at", Value: -1}})
}

func (r *callRepo) ListStale(ctx context.Context, status models.CallStatus, startedBefore time.Time, limit int64) ([]models.CallSession, error) {
	return r.find(ctx, bson.M{
		"status":     status,
		"started_at": bson.M{"$lt": startedBefore.UTC()},
	}, limit, bson.D{{Key: "started_at", Value: 1}})
}

func (r *callRepo) find(ctx context.Context, filter bson.M, limit int64, sort bson.D) ([]models.CallSession, error) {
	if limit <= 0 {
		limit = 50
	}

	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(sort).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.CallSession{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
