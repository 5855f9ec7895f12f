package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wernerpe/strava-mcp-server/internal/strava"
)

// SQLiteStore implements Store using SQLite. It is the default store:
// a single file, no server, suitable for the single-athlete setups this
// tool is built for. Note similarity search loads the embeddings into
// memory and scores them with cosine similarity, which is fine at the
// note cap of MaxSessionNotes.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at the given path.
// Use ":memory:" for an in-memory database in tests.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	// WAL mode and foreign keys for better durability and integrity
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// InitSchema creates the tables if they don't exist. Call once after
// NewSQLiteStore.
func (s *SQLiteStore) InitSchema(ctx context.Context) error {
	schema := `
		-- Mirrored Strava runs, one JSON document per activity
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY,
			start_date TEXT NOT NULL,
			sport_type TEXT NOT NULL,
			document TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_start_date ON runs(start_date);

		-- Training plans, full plan JSON plus listing columns
		CREATE TABLE IF NOT EXISTS training_plans (
			id TEXT PRIMARY KEY,
			plan_name TEXT NOT NULL,
			race_date TEXT,
			race_name TEXT,
			is_active INTEGER DEFAULT 1,
			created_at TEXT,
			updated_at TEXT,
			document TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS athlete_profiles (
			athlete_id TEXT PRIMARY KEY,
			document TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS session_notes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			athlete_id TEXT NOT NULL,
			note_type TEXT NOT NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			document TEXT NOT NULL,
			embedding BLOB
		);
		CREATE INDEX IF NOT EXISTS idx_notes_athlete ON session_notes(athlete_id);

		CREATE TABLE IF NOT EXISTS plan_adjustments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			athlete_id TEXT NOT NULL,
			plan_id TEXT NOT NULL,
			change_description TEXT NOT NULL,
			reason TEXT NOT NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP
		);

		-- Single-row table for the coaching persona markdown
		CREATE TABLE IF NOT EXISTS coaching_persona (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			content TEXT NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// --- Runs ---

func (s *SQLiteStore) SaveRun(ctx context.Context, run *strava.Activity) error {
	doc, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	query := `
		INSERT INTO runs (id, start_date, sport_type, document)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			start_date = excluded.start_date,
			sport_type = excluded.sport_type,
			document = excluded.document
	`
	if _, err := s.db.ExecContext(ctx, query, run.ID, run.StartDate, run.SportType, string(doc)); err != nil {
		return fmt.Errorf("failed to save run %d: %w", run.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, activityID int64) (*strava.Activity, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM runs WHERE id = ?`, activityID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run %d: %w", activityID, err)
	}

	var run strava.Activity
	if err := json.Unmarshal([]byte(doc), &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run %d: %w", activityID, err)
	}
	return &run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context) ([]strava.Activity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT document FROM runs ORDER BY start_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []strava.Activity
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		var run strava.Activity
		if err := json.Unmarshal([]byte(doc), &run); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

func (s *SQLiteStore) ExistingRunIDs(ctx context.Context) (map[int64]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs`)
	if err != nil {
		return nil, fmt.Errorf("failed to query run IDs: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan run ID: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run IDs: %w", err)
	}
	return ids, nil
}

func (s *SQLiteStore) DeleteRun(ctx context.Context, activityID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, activityID)
	if err != nil {
		return false, fmt.Errorf("failed to delete run %d: %w", activityID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	return n > 0, nil
}

// --- Training plans ---

func (s *SQLiteStore) SavePlan(ctx context.Context, plan *TrainingPlan) error {
	doc, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}

	active := 0
	if plan.Active() {
		active = 1
	}

	query := `
		INSERT INTO training_plans (id, plan_name, race_date, race_name, is_active, created_at, updated_at, document)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			plan_name = excluded.plan_name,
			race_date = excluded.race_date,
			race_name = excluded.race_name,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at,
			document = excluded.document
	`
	_, err = s.db.ExecContext(ctx, query,
		plan.ID, plan.PlanName, plan.GoalRace.Date, plan.GoalRace.RaceName,
		active, plan.CreatedAt, plan.UpdatedAt, string(doc))
	if err != nil {
		return fmt.Errorf("failed to save plan %s: %w", plan.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetPlan(ctx context.Context, planID string) (*TrainingPlan, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM training_plans WHERE id = ?`, planID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query plan %s: %w", planID, err)
	}

	var plan TrainingPlan
	if err := json.Unmarshal([]byte(doc), &plan); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan %s: %w", planID, err)
	}
	return &plan, nil
}

func (s *SQLiteStore) ListPlans(ctx context.Context) ([]PlanSummary, error) {
	// Upcoming races first
	query := `
		SELECT id, plan_name, race_date, race_name, is_active, created_at, updated_at
		FROM training_plans
		ORDER BY race_date ASC, id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	var summaries []PlanSummary
	for rows.Next() {
		var p PlanSummary
		var raceDate, raceName, createdAt, updatedAt sql.NullString
		var active int
		if err := rows.Scan(&p.ID, &p.PlanName, &raceDate, &raceName, &active, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plan summary: %w", err)
		}
		p.RaceDate = raceDate.String
		p.RaceName = raceName.String
		p.IsActive = active != 0
		p.CreatedAt = createdAt.String
		p.UpdatedAt = updatedAt.String
		summaries = append(summaries, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plans: %w", err)
	}
	return summaries, nil
}

func (s *SQLiteStore) DeletePlan(ctx context.Context, planID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM training_plans WHERE id = ?`, planID)
	if err != nil {
		return false, fmt.Errorf("failed to delete plan %s: %w", planID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	return n > 0, nil
}

// --- Athlete profile ---

func (s *SQLiteStore) GetProfile(ctx context.Context, athleteID string) (*AthleteProfile, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM athlete_profiles WHERE athlete_id = ?`, athleteID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile %s: %w", athleteID, err)
	}

	var profile AthleteProfile
	if err := json.Unmarshal([]byte(doc), &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile %s: %w", athleteID, err)
	}
	return &profile, nil
}

func (s *SQLiteStore) SaveProfile(ctx context.Context, profile *AthleteProfile) error {
	doc, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	query := `
		INSERT INTO athlete_profiles (athlete_id, document)
		VALUES (?, ?)
		ON CONFLICT(athlete_id) DO UPDATE SET document = excluded.document
	`
	if _, err := s.db.ExecContext(ctx, query, profile.AthleteID, string(doc)); err != nil {
		return fmt.Errorf("failed to save profile %s: %w", profile.AthleteID, err)
	}
	return nil
}

// --- Session notes ---

func (s *SQLiteStore) AddNote(ctx context.Context, note *SessionNote, embedding []float32) error {
	doc, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("failed to marshal note: %w", err)
	}

	query := `
		INSERT INTO session_notes (athlete_id, note_type, created_at, document, embedding)
		VALUES (?, ?, ?, ?, ?)
	`
	res, err := s.db.ExecContext(ctx, query,
		note.AthleteID, note.NoteType, note.Timestamp.Format(time.RFC3339), string(doc), encodeVector(embedding))
	if err != nil {
		return fmt.Errorf("failed to save note: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		note.ID = id
	}

	// Prune the oldest notes beyond the cap
	prune := `
		DELETE FROM session_notes
		WHERE athlete_id = ? AND id NOT IN (
			SELECT id FROM session_notes
			WHERE athlete_id = ?
			ORDER BY id DESC
			LIMIT ?
		)
	`
	if _, err := s.db.ExecContext(ctx, prune, note.AthleteID, note.AthleteID, MaxSessionNotes); err != nil {
		return fmt.Errorf("failed to prune notes: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListNotes(ctx context.Context, athleteID string, limit int) ([]SessionNote, error) {
	query := `
		SELECT id, document FROM session_notes
		WHERE athlete_id = ?
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, athleteID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	return scanNoteRows(rows)
}

// noteWithScore is an internal type for sorting notes by similarity.
type noteWithScore struct {
	SessionNote
	score float32
}

// SearchSimilarNotes scores every embedded note against the query
// vector in application memory and returns the top matches. The note
// cap keeps the scan trivially small.
func (s *SQLiteStore) SearchSimilarNotes(ctx context.Context, queryVector []float32, limit int) ([]SessionNote, error) {
	query := `
		SELECT id, document, embedding FROM session_notes
		WHERE embedding IS NOT NULL
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var results []noteWithScore
	for rows.Next() {
		var id int64
		var doc string
		var embeddingBlob []byte
		if err := rows.Scan(&id, &doc, &embeddingBlob); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}

		var note SessionNote
		if err := json.Unmarshal([]byte(doc), &note); err != nil {
			return nil, fmt.Errorf("failed to unmarshal note: %w", err)
		}
		note.ID = id

		stored := decodeVector(embeddingBlob)
		if len(stored) > 0 && len(stored) == len(queryVector) {
			similarity := cosineSimilarity(queryVector, stored)
			note.Similarity = similarity
			results = append(results, noteWithScore{SessionNote: note, score: similarity})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	topK := min(limit, len(results))
	notes := make([]SessionNote, topK)
	for i := range topK {
		notes[i] = results[i].SessionNote
	}
	return notes, nil
}

// --- Plan adjustments ---

func (s *SQLiteStore) AddAdjustment(ctx context.Context, adj *PlanAdjustment) error {
	query := `
		INSERT INTO plan_adjustments (athlete_id, plan_id, change_description, reason, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	res, err := s.db.ExecContext(ctx, query,
		adj.AthleteID, adj.PlanID, adj.ChangeDescription, adj.Reason, adj.Timestamp.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save adjustment: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		adj.ID = id
	}
	return nil
}

func (s *SQLiteStore) ListAdjustments(ctx context.Context, athleteID string, limit int) ([]PlanAdjustment, error) {
	query := `
		SELECT id, athlete_id, plan_id, change_description, reason, created_at
		FROM plan_adjustments
		WHERE athlete_id = ?
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, athleteID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query adjustments: %w", err)
	}
	defer rows.Close()

	var adjustments []PlanAdjustment
	for rows.Next() {
		var adj PlanAdjustment
		var createdAt string
		if err := rows.Scan(&adj.ID, &adj.AthleteID, &adj.PlanID, &adj.ChangeDescription, &adj.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan adjustment: %w", err)
		}
		adj.Timestamp, _ = parseTimestamp(createdAt)
		adjustments = append(adjustments, adj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating adjustments: %w", err)
	}
	return adjustments, nil
}

// --- Persona ---

func (s *SQLiteStore) GetPersona(ctx context.Context) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx, `SELECT content FROM coaching_persona WHERE id = 1`).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query persona: %w", err)
	}
	return content, nil
}

func (s *SQLiteStore) SavePersona(ctx context.Context, content string) error {
	query := `
		INSERT INTO coaching_persona (id, content, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, content, time.Now().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to save persona: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanNoteRows reads (id, document) rows into notes.
func scanNoteRows(rows *sql.Rows) ([]SessionNote, error) {
	var notes []SessionNote
	for rows.Next() {
		var id int64
		var doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		var note SessionNote
		if err := json.Unmarshal([]byte(doc), &note); err != nil {
			return nil, fmt.Errorf("failed to unmarshal note: %w", err)
		}
		note.ID = id
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}
	return notes, nil
}

// encodeVector converts a float32 slice to a byte slice for storage.
// Each float32 is encoded as 4 bytes in little-endian format.
func encodeVector(v []float32) []byte {
	if v == nil {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector converts a byte slice back to a float32 slice.
func decodeVector(b []byte) []float32 {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		bits := binary.LittleEndian.Uint32(b[i*4:])
		v[i] = math.Float32frombits(bits)
	}
	return v
}

// cosineSimilarity calculates the cosine similarity between two
// vectors, in [-1, 1]. For normalized embeddings this is the dot
// product.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}

// parseTimestamp parses a timestamp string stored by SQLite.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse timestamp: %s", s)
}
