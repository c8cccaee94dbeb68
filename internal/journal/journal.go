// Package journal appends served quiz polls to Postgres. Rows are never read back.
package journal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/m3rciful/triviabot/core/logger"
	"github.com/m3rciful/triviabot/internal/quiz"
)

const insertServedPoll = `INSERT INTO served_polls
	(user_id, chat_id, question, options, correct_option, category, difficulty, served_at)
VALUES
	(:user_id, :chat_id, :question, :options, :correct_option, :category, :difficulty, :served_at)`

// ServedPoll is one row of the served_polls table.
type ServedPoll struct {
	UserID        int64          `db:"user_id"`
	ChatID        int64          `db:"chat_id"`
	Question      string         `db:"question"`
	Options       pq.StringArray `db:"options"`
	CorrectOption int            `db:"correct_option"`
	Category      string         `db:"category"`
	Difficulty    string         `db:"difficulty"`
	ServedAt      time.Time      `db:"served_at"`
}

// Recorder writes served polls into the database.
type Recorder struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewRecorder returns a Recorder backed by db.
func NewRecorder(db *sqlx.DB) *Recorder {
	return &Recorder{db: db, now: time.Now}
}

// Record inserts one served poll.
func (r *Recorder) Record(ctx context.Context, userID, chatID int64, poll quiz.Poll) error {
	row := ServedPoll{
		UserID:        userID,
		ChatID:        chatID,
		Question:      poll.Question,
		Options:       pq.StringArray(poll.Options),
		CorrectOption: poll.CorrectOption,
		Category:      poll.Category,
		Difficulty:    poll.Difficulty,
		ServedAt:      r.now().UTC(),
	}

	start := time.Now()
	if _, err := r.db.NamedExecContext(ctx, insertServedPoll, row); err != nil {
		return fmt.Errorf("journal: insert served poll: %w", err)
	}
	logger.Debug(ctx, "journal", "record.done",
		slog.String("status", "ok"),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}
