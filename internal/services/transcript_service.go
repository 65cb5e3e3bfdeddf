package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilkumar000/Intern/internal/events"
	"github.com/nikhilkumar000/Intern/internal/metrics"
	"github.com/nikhilkumar000/Intern/internal/models"
	mongorepo "github.com/nikhilkumar000/Intern/internal/repositories/mongo"
	"github.com/nikhilkumar000/Intern/internal/utils"
)

type AppendChunkInput struct {
	CallID     string
	Speaker    string
	Text       string
	Language   string
	StartedAt  *time.Time
	EndedAt    *time.Time
	ChunkIndex *int64
}

type TranscriptService interface {
	Append(ctx context.Context, in AppendChunkInput) (*models.TranscriptChunk, error)
	// List returns every chunk of the call ordered by the server-assigned seq,
	// i.e. the order Append accepted them. A client chunkIndex is stored and
	// echoed back but never reorders the result. Empty when none exist.
	List(ctx context.Context, callID string) ([]models.TranscriptChunk, error)
}

type transcriptService struct {
	chunks    mongorepo.TranscriptRepository
	publisher events.Publisher
	now       func() time.Time
}

func NewTranscriptService(chunks mongorepo.TranscriptRepository, publisher events.Publisher) TranscriptService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &transcriptService{chunks: chunks, publisher: publisher, now: time.Now}
}

func (s *transcriptService) Append(ctx context.Context, in AppendChunkInput) (*models.TranscriptChunk, error) {
	const op = "TranscriptService.Append"

	callID := strings.TrimSpace(in.CallID)
	text := strings.TrimSpace(in.Text)
	speaker := models.Speaker(strings.TrimSpace(in.Speaker))
	if callID == "" || speaker == "" || text == "" {
		return nil, utils.Invalid(op, "callId, speaker and text are required")
	}
	if !speaker.Valid() {
		return nil, utils.Invalid(op, "speaker must be caller or expert")
	}
	if in.StartedAt != nil && in.EndedAt != nil && in.EndedAt.Before(*in.StartedAt) {
		return nil, utils.Invalid(op, "endedAt must not be before startedAt")
	}

	lang := strings.TrimSpace(in.Language)
	if lang == "" {
		lang = models.DefaultTranscriptLanguage
	}

	seq, err := s.chunks.NextSeq(ctx, callID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to reserve transcript sequence", err)
	}

	chunk := &models.TranscriptChunk{
		ID:         uuid.NewString(),
		CallID:     callID,
		Seq:        seq,
		Speaker:    speaker,
		Text:       text,
		Language:   lang,
		StartedAt:  in.StartedAt,
		EndedAt:    in.EndedAt,
		ChunkIndex: in.ChunkIndex,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.chunks.Insert(ctx, chunk); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to save transcript chunk", err)
	}

	metrics.TranscriptChunks.WithLabelValues(string(speaker)).Inc()
	_ = s.publisher.Publish(ctx, events.Event{
		Name:       events.TranscriptChunk,
		CallID:     callID,
		OccurredAt: chunk.CreatedAt,
		Data:       chunk,
	})
	return chunk, nil
}

func (s *transcriptService) List(ctx context.Context, callID string) ([]models.TranscriptChunk, error) {
	const op = "TranscriptService.List"

	callID = strings.TrimSpace(callID)
	if callID == "" {
		return nil, utils.Invalid(op, "callId is required")
	}

	out, err := s.chunks.ListByCall(ctx, callID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to fetch transcript", err)
	}
	if out == nil {
		out = []models.TranscriptChunk{}
	}
	return out, nil
}
