package models

import "time"

type Speaker string

const (
	SpeakerCaller Speaker = "caller"
	SpeakerExpert Speaker = "expert"
)

func (s Speaker) Valid() bool { return s == SpeakerCaller || s == SpeakerExpert }

const DefaultTranscriptLanguage = "en-US"

// TranscriptChunk is one finalized speech-to-text segment. Chunks are append-only.
type TranscriptChunk struct {
	ID         string     `bson:"_id" json:"id"`
	CallID     string     `bson:"call_id" json:"callId"`
	Seq        int64      `bson:"seq" json:"seq"` // per-call insertion order
	Speaker    Speaker    `bson:"speaker" json:"speaker"`
	Text       string     `bson:"text" json:"text"`
	Language   string     `bson:"language" json:"language"`
	StartedAt  *time.Time `bson:"started_at,omitempty" json:"startedAt,omitempty"`
	EndedAt    *time.Time `bson:"ended_at,omitempty" json:"endedAt,omitempty"`
	ChunkIndex *int64     `bson:"chunk_index,omitempty" json:"chunkIndex,omitempty"` // client hint, informational only
	CreatedAt  time.Time  `bson:"created_at" json:"createdAt"`
}
