package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/wellness-api/internal/model"
)

type RequestLogRepo struct{ DB *sql.DB }

func NewRequestLogRepo(db *sql.DB) *RequestLogRepo { return &RequestLogRepo{DB: db} }

func (r *RequestLogRepo) Insert(ctx context.Context, l model.RequestLog) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO request_logs (method, url, query, status_code, message, created_at) VALUES (?,?,?,?,?,?)",
		l.Method, l.URL, l.Query, l.StatusCode, l.Message, l.CreatedAt)
	return err
}

// ListBetween returns logs created in [from, to), oldest first.
func (r *RequestLogRepo) ListBetween(ctx context.Context, from, to time.Time) ([]model.RequestLog, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, method, url, query, status_code, message, created_at
		   FROM request_logs WHERE created_at >= ? AND created_at < ? ORDER BY id`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RequestLog
	for rows.Next() {
		var l model.RequestLog
		if err := rows.Scan(&l.ID, &l.Method, &l.URL, &l.Query, &l.StatusCode, &l.Message, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// DeleteBefore purges logs older than cutoff and reports how many went.
func (r *RequestLogRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM request_logs WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
