package config

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongorepo "github.com/nikhilkumar000/Intern/internal/repositories/mongo"
)

func EnsureMongoIndexes() error {
	if MongoClient == nil {
		return errors.New("MongoClient is nil; call InitMongo() first")
	}
	db := MongoDatabase()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sessions := db.Collection(mongorepo.CallSessionsCollection)
	_, err := sessions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "caller_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("by_caller_created"),
		},
		{
			Keys:    bson.D{{Key: "expert_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("by_expert_created"),
		},
		// ringing sweep and admin listing
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "started_at", Value: 1}},
			Options: options.Index().SetName("by_status_started"),
		},
	})
	if err != nil {
		return err
	}

	transcripts := db.Collection(mongorepo.TranscriptsCollection)
	_, err = transcripts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "call_id", Value: 1}, {Key: "seq", Value: 1}},
			Options: options.Index().
				SetName("uniq_call_seq").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "call_id", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("by_call_created"),
		},
	})
	return err
}
