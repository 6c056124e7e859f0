package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TranscriptKind distinguishes what a transcript entry captured.
type TranscriptKind string

const (
	TranscriptSource      TranscriptKind = "source"      // what the speaker said, in their own language
	TranscriptTranslation TranscriptKind = "translation" // what the bridge spoke to the other party
)

// CallTranscript is one archived line of a call's translation stream.
// Entries are append-only; the archive survives the call as a terminal record
// next to the CallSession row.
type CallTranscript struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CallID string             `bson:"call_id" json:"call_id"`
	Seq    int64              `bson:"seq" json:"seq"`

	Kind     TranscriptKind `bson:"kind" json:"kind"`
	Language string         `bson:"language,omitempty" json:"language,omitempty"`
	Text     string         `bson:"text" json:"text"`

	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}
