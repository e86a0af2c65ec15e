package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/januslabs/janusd/internal/domain"
)

// SessionArchiver implements domain.SessionArchiver by serializing a
// session's raw position records to JSONL and uploading the file to object
// storage. The archive is the replay source when settlement decisions need
// auditing after the fact.
type SessionArchiver struct {
	writer domain.BlobWriter
}

// NewSessionArchiver creates a SessionArchiver backed by the given writer.
func NewSessionArchiver(writer domain.BlobWriter) *SessionArchiver {
	return &SessionArchiver{writer: writer}
}

var _ domain.SessionArchiver = (*SessionArchiver)(nil)

// archiveRecord is one JSONL line of a session archive.
type archiveRecord struct {
	SessionKey  int64  `json:"session_key"`
	SessionName string `json:"session_name"`
	EntrantID   int    `json:"entrant_id"`
	Position    int    `json:"position"`
}

// ArchiveSession uploads the session's raw records to
// sessions/{year}/{session_key}.jsonl and returns the object key.
func (a *SessionArchiver) ArchiveSession(ctx context.Context, session domain.Session, records []domain.PositionRecord) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		line := archiveRecord{
			SessionKey:  session.Key,
			SessionName: session.Name,
			EntrantID:   rec.EntrantID,
			Position:    rec.Position,
		}
		if err := enc.Encode(line); err != nil {
			return "", fmt.Errorf("s3blob: encode session record %d: %w", i, err)
		}
	}

	key := sessionPath(session, time.Now().UTC())
	if err := a.writer.Write(ctx, key, buf.Bytes(), "application/x-ndjson"); err != nil {
		return "", fmt.Errorf("s3blob: archive session %d: %w", session.Key, err)
	}
	return key, nil
}

// sessionPath builds the object key for a session archive, partitioned by
// year.
//
//	sessions/2026/9158.jsonl
func sessionPath(session domain.Session, now time.Time) string {
	return fmt.Sprintf("sessions/%d/%d.jsonl", now.Year(), session.Key)
}
