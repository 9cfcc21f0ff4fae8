package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	_ "github.com/lib/pq"
)

// ErrNotFound is returned when an update targets a row that does not exist.
var ErrNotFound = errors.New("store: not found")

type Store struct {
	DB *sql.DB
}

// KnowledgeEntry is a curated question/answer/source record. Entries are
// seeded by migrations and read-only at runtime.
type KnowledgeEntry struct {
	Question    string
	Answer      string
	Source      string
	PolicyBasis string
}

// InteractionRecord is one row of the append-only interaction log.
type InteractionRecord struct {
	RequestID  string
	Question   string
	UserType   string
	Source     string
	Answer     string
	Confidence float64
}

func New(ctx context.Context) (*Store, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		host := getenvDefault("POSTGRES_HOST", "localhost")
		port := getenvDefault("POSTGRES_PORT", "5432")
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		db := os.Getenv("POSTGRES_DB")
		ssl := getenvDefault("POSTGRES_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, ssl)
	}
	return NewWithDSN(ctx, dsn)
}

// NewWithDSN constructs the Store using an explicit Postgres DSN
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// SearchKnowledge returns the first entry whose stored question or answer
// contains every given fragment, in id order. A nil entry means no match.
// The policy basis, when present, is folded into the answer text the same way
// the legacy service rendered it.
func (s *Store) SearchKnowledge(ctx context.Context, fragments []string) (*KnowledgeEntry, error) {
	if len(fragments) == 0 {
		return nil, nil
	}
	conds := make([]string, 0, len(fragments))
	args := make([]interface{}, 0, len(fragments))
	for i, f := range fragments {
		ph := fmt.Sprintf("$%d", i+1)
		conds = append(conds, fmt.Sprintf("(question LIKE %s OR answer LIKE %s)", ph, ph))
		args = append(args, "%"+f+"%")
	}
	query := fmt.Sprintf(`SELECT question, answer, source, COALESCE(policy_basis,'') FROM gov_knowledge WHERE %s ORDER BY id LIMIT 1`, strings.Join(conds, " AND "))

	var e KnowledgeEntry
	err := s.DB.QueryRowContext(ctx, query, args...).Scan(&e.Question, &e.Answer, &e.Source, &e.PolicyBasis)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if e.PolicyBasis != "" {
		e.Answer = fmt.Sprintf("%s【政策依据：%s】", e.Answer, e.PolicyBasis)
	}
	return &e, nil
}

// InsertInteractionLog appends one interaction row keyed by request id.
func (s *Store) InsertInteractionLog(ctx context.Context, rec InteractionRecord) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO interaction_log (request_id, question, user_type, source, answer, confidence) VALUES ($1,$2,$3,$4,$5,$6)`,
		rec.RequestID, rec.Question, rec.UserType, rec.Source, rec.Answer, rec.Confidence)
	return err
}

// UpdateFeedback stores user feedback for a previously logged interaction.
func (s *Store) UpdateFeedback(ctx context.Context, requestID, feedbackType, remark string) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE interaction_log SET feedback_type=$1, feedback_remark=$2 WHERE request_id=$3`,
		feedbackType, remark, requestID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
