package mongo

import (
	"context"
	"time"

	"github.com/yoockh/lingualink/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TranscriptRepository interface {
	Append(ctx context.Context, t *models.CallTranscript) error
	ListByCall(ctx context.Context, callID string, limit int64) ([]models.CallTranscript, error)
}

type transcriptRepo struct {
	col *mongo.Collection
}

func NewTranscriptRepo(db *mongo.Database) TranscriptRepository {
	return &transcriptRepo{col: db.Collection("call_transcripts")}
}

func (r *transcriptRepo) Append(ctx context.Context, t *models.CallTranscript) error {
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, t)
	return err
}

func (r *transcriptRepo) ListByCall(ctx context.Context, callID string, limit int64) ([]models.CallTranscript, error) {
	if limit <= 0 {
		limit = 500
	}

	cur, err := r.col.Find(ctx,
		bson.M{"call_id": callID},
		options.Find().
			SetSort(bson.D{{Key: "seq", Value: 1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.CallTranscript
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
