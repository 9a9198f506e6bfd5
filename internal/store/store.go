// Package store persists recording-session and transcript history in a
// local SQLite database.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		audioPath TEXT NOT NULL,
		startedAt REAL NOT NULL,
		endedAt REAL NOT NULL,
		durationSeconds REAL NOT NULL,
		gapCount INTEGER NOT NULL,
		segmentCount INTEGER NOT NULL,
		crashed INTEGER NOT NULL DEFAULT 0,
		mergeError INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS transcripts (
		id TEXT PRIMARY KEY,
		audioPath TEXT NOT NULL,
		language TEXT NOT NULL,
		durationSeconds REAL NOT NULL,
		chunkCount INTEGER NOT NULL,
		segmentCount INTEGER NOT NULL,
		failedChunks INTEGER NOT NULL,
		jsonPath TEXT NOT NULL,
		textPath TEXT NOT NULL,
		createdAt REAL NOT NULL
	);
`

// SessionRecord is one finished recording session.
type SessionRecord struct {
	ID              string
	Mode            string
	AudioPath       string
	StartedAt       time.Time
	EndedAt         time.Time
	DurationSeconds float64
	GapCount        int
	SegmentCount    int
	Crashed         bool
	MergeError      bool
}

// TranscriptRecord is one completed transcription job.
type TranscriptRecord struct {
	ID              string
	AudioPath       string
	Language        string
	DurationSeconds float64
	ChunkCount      int
	SegmentCount    int
	FailedChunks    int
	JSONPath        string
	TextPath        string
	CreatedAt       time.Time
}

// Store wraps the history database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// SaveSession records a finished session.
func (s *Store) SaveSession(rec SessionRecord) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO sessions
		(id, mode, audioPath, startedAt, endedAt, durationSeconds, gapCount, segmentCount, crashed, mergeError)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Mode, rec.AudioPath,
		float64(rec.StartedAt.UnixMilli())/1000, float64(rec.EndedAt.UnixMilli())/1000,
		rec.DurationSeconds, rec.GapCount, rec.SegmentCount,
		boolToInt(rec.Crashed), boolToInt(rec.MergeError))
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// RecentSessions returns up to limit sessions, newest first.
func (s *Store) RecentSessions(limit int) ([]SessionRecord, error) {
	rows, err := s.db.Query(`SELECT id, mode, audioPath, startedAt, endedAt,
		durationSeconds, gapCount, segmentCount, crashed, mergeError
		FROM sessions ORDER BY startedAt DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var started, ended float64
		var crashed, mergeErr int
		if err := rows.Scan(&rec.ID, &rec.Mode, &rec.AudioPath, &started, &ended,
			&rec.DurationSeconds, &rec.GapCount, &rec.SegmentCount, &crashed, &mergeErr); err != nil {
			return nil, err
		}
		rec.StartedAt = secondsToTime(started)
		rec.EndedAt = secondsToTime(ended)
		rec.Crashed = crashed != 0
		rec.MergeError = mergeErr != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SaveTranscript records a completed transcription job.
func (s *Store) SaveTranscript(rec TranscriptRecord) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO transcripts
		(id, audioPath, language, durationSeconds, chunkCount, segmentCount, failedChunks, jsonPath, textPath, createdAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.AudioPath, rec.Language, rec.DurationSeconds,
		rec.ChunkCount, rec.SegmentCount, rec.FailedChunks,
		rec.JSONPath, rec.TextPath, float64(rec.CreatedAt.UnixMilli())/1000)
	if err != nil {
		return fmt.Errorf("saving transcript: %w", err)
	}
	return nil
}

// TranscriptForAudio returns the latest transcript for an audio file, or nil.
func (s *Store) TranscriptForAudio(audioPath string) (*TranscriptRecord, error) {
	row := s.db.QueryRow(`SELECT id, audioPath, language, durationSeconds,
		chunkCount, segmentCount, failedChunks, jsonPath, textPath, createdAt
		FROM transcripts WHERE audioPath = ? ORDER BY createdAt DESC LIMIT 1`, audioPath)

	var rec TranscriptRecord
	var created float64
	err := row.Scan(&rec.ID, &rec.AudioPath, &rec.Language, &rec.DurationSeconds,
		&rec.ChunkCount, &rec.SegmentCount, &rec.FailedChunks,
		&rec.JSONPath, &rec.TextPath, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.CreatedAt = secondsToTime(created)
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func secondsToTime(s float64) time.Time {
	return time.UnixMilli(int64(s * 1000)).UTC()
}
