package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/vncsmyrnk/poll/internal/core/domain"
	"github.com/vncsmyrnk/poll/internal/core/ports"
)

const pollColumns = `p.id, p.title, p.description, p.category, p.tags, p.created_at, p.updated_at, p.expires_at`

type pollRepository struct {
	db *sql.DB
}

func NewPollRepository(db *sql.DB) ports.PollRepository {
	return &pollRepository{
		db: db,
	}
}

func (r *pollRepository) Save(ctx context.Context, poll *domain.Poll) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	queryPoll := `
		INSERT INTO polls (id, title, description, category, tags, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.ExecContext(ctx, queryPoll,
		poll.ID, poll.Title, poll.Description, categoryValue(poll.Category),
		pq.StringArray(nonNilTags(poll.Tags)), poll.CreatedAt, poll.UpdatedAt, poll.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert poll: %w", err)
	}

	if err := insertOptions(ctx, tx, poll.Options); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *pollRepository) Update(ctx context.Context, poll *domain.Poll, replaceOptions bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE polls
		SET title = $2, description = $3, category = $4, tags = $5, updated_at = $6, expires_at = $7
		WHERE id = $1
	`
	res, err := tx.ExecContext(ctx, query,
		poll.ID, poll.Title, poll.Description, categoryValue(poll.Category),
		pq.StringArray(nonNilTags(poll.Tags)), poll.UpdatedAt, poll.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update poll: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	} else if n == 0 {
		return domain.ErrPollNotFound
	}

	if replaceOptions {
		// Votes go first; they reference the options being replaced.
		if _, err := tx.ExecContext(ctx, `DELETE FROM votes WHERE poll_id = $1`, poll.ID); err != nil {
			return fmt.Errorf("failed to delete votes: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM poll_options WHERE poll_id = $1`, poll.ID); err != nil {
			return fmt.Errorf("failed to delete options: %w", err)
		}
		if err := insertOptions(ctx, tx, poll.Options); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *pollRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM polls WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete poll: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrPollNotFound
	}
	return nil
}

func (r *pollRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	query := `SELECT ` + pollColumns + ` FROM polls p WHERE p.id = $1`

	poll, err := scanPoll(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPollNotFound
		}
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}

	if err := r.attachOptions(ctx, []*domain.Poll{poll}); err != nil {
		return nil, err
	}
	return poll, nil
}

func (r *pollRepository) GetAll(ctx context.Context) ([]*domain.Poll, error) {
	query := `SELECT ` + pollColumns + ` FROM polls p ORDER BY p.created_at, p.id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get all polls: %w", err)
	}
	defer rows.Close()

	return r.scanPolls(ctx, rows)
}

// List translates the filter set into one query. Options of the page are
// loaded with a single extra query, whatever the page size.
func (r *pollRepository) List(ctx context.Context, filters []domain.Filter, limit, offset int) ([]*domain.Poll, error) {
	var (
		where []string
		args  []any
	)
	orderBy := `p.created_at DESC, p.id`

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	for _, f := range filters {
		switch f := f.(type) {
		case domain.TextSearch:
			p := arg("%" + escapeLike(f.Query) + "%")
			where = append(where, fmt.Sprintf("(p.title ILIKE %s OR p.description ILIKE %s)", p, p))
		case domain.CategoryFilter:
			where = append(where, "p.category = "+arg(string(f.Category)))
		case domain.TagFilter:
			where = append(where, arg(f.Tag)+" = ANY(p.tags)")
		case domain.StatusFilter:
			switch f.Status {
			case domain.PollStatusActive:
				where = append(where, "(p.expires_at IS NULL OR p.expires_at > NOW())")
			case domain.PollStatusExpired:
				where = append(where, "(p.expires_at IS NOT NULL AND p.expires_at <= NOW())")
			}
		case domain.SortOrder:
			switch f.Sort {
			case domain.SortNewest:
				orderBy = `p.created_at DESC, p.id`
			case domain.SortOldest:
				orderBy = `p.created_at ASC, p.id`
			case domain.SortMostVotes:
				orderBy = `(SELECT COALESCE(SUM(o.votes_count), 0) FROM poll_options o WHERE o.poll_id = p.id) DESC, p.created_at DESC, p.id`
			case domain.SortEndingSoon:
				orderBy = `p.expires_at ASC NULLS LAST, p.created_at DESC, p.id`
			}
		}
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + pollColumns + ` FROM polls p`)
	if len(where) > 0 {
		sb.WriteString(` WHERE ` + strings.Join(where, " AND "))
	}
	sb.WriteString(` ORDER BY ` + orderBy)
	sb.WriteString(` LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset))

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list polls: %w", err)
	}
	defer rows.Close()

	return r.scanPolls(ctx, rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPoll(row rowScanner) (*domain.Poll, error) {
	var (
		poll     domain.Poll
		category sql.NullString
		tags     pq.StringArray
	)
	err := row.Scan(
		&poll.ID, &poll.Title, &poll.Description, &category, &tags,
		&poll.CreatedAt, &poll.UpdatedAt, &poll.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	if category.Valid {
		c := domain.Category(category.String)
		poll.Category = &c
	}
	poll.Tags = nonNilTags(tags)
	return &poll, nil
}

func (r *pollRepository) scanPolls(ctx context.Context, rows *sql.Rows) ([]*domain.Poll, error) {
	var polls []*domain.Poll
	for rows.Next() {
		poll, err := scanPoll(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		polls = append(polls, poll)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating polls: %w", err)
	}

	if err := r.attachOptions(ctx, polls); err != nil {
		return nil, err
	}
	return polls, nil
}

// attachOptions loads the options of every given poll in one query.
func (r *pollRepository) attachOptions(ctx context.Context, polls []*domain.Poll) error {
	if len(polls) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*domain.Poll, len(polls))
	ids := make([]string, 0, len(polls))
	for _, p := range polls {
		p.Options = []domain.PollOption{}
		byID[p.ID] = p
		ids = append(ids, p.ID.String())
	}

	query := `
		SELECT id, poll_id, text, position, votes_count, created_at
		FROM poll_options
		WHERE poll_id = ANY($1::uuid[])
		ORDER BY poll_id, position, id
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to get poll options: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var opt domain.PollOption
		if err := rows.Scan(&opt.ID, &opt.PollID, &opt.Text, &opt.Position, &opt.VotesCount, &opt.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan option: %w", err)
		}
		if p, ok := byID[opt.PollID]; ok {
			p.Options = append(p.Options, opt)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating options: %w", err)
	}
	return nil
}

func insertOptions(ctx context.Context, tx *sql.Tx, options []domain.PollOption) error {
	queryOption := `
		INSERT INTO poll_options (id, poll_id, text, position, votes_count, created_at)
		VALUES ($1, $2, $3, $4, 0, $5)
	`
	stmt, err := tx.PrepareContext(ctx, queryOption)
	if err != nil {
		return fmt.Errorf("failed to prepare option statement: %w", err)
	}
	defer stmt.Close()

	for _, opt := range options {
		if _, err := stmt.ExecContext(ctx, opt.ID, opt.PollID, opt.Text, opt.Position, opt.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert option: %w", err)
		}
	}
	return nil
}

func categoryValue(c *domain.Category) any {
	if c == nil {
		return nil
	}
	return string(*c)
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
