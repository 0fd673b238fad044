package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/okr/internal/services/objective/domain/view"
	"github.com/louisbranch/okr/internal/services/objective/storage"
)

// PutView upserts record unless the stored snapshot has a higher LastSeq.
func (s *Store) PutView(ctx context.Context, record storage.ViewRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v := record.View
	if strings.TrimSpace(v.ID) == "" {
		return fmt.Errorf("view id is required")
	}
	data, err := view.Encode(v)
	if err != nil {
		return fmt.Errorf("encode view %s: %w", v.ID, err)
	}
	updatedAt := record.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO objective_views (
    id, user_id, org_unit_id, title, period, deleted, progress, key_result_count, view_json, last_seq, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    user_id = excluded.user_id,
    org_unit_id = excluded.org_unit_id,
    title = excluded.title,
    period = excluded.period,
    deleted = excluded.deleted,
    progress = excluded.progress,
    key_result_count = excluded.key_result_count,
    view_json = excluded.view_json,
    last_seq = excluded.last_seq,
    updated_at = excluded.updated_at
WHERE excluded.last_seq >= objective_views.last_seq`,
		v.ID,
		v.UserID,
		v.OrgUnitID,
		v.Title,
		v.Period,
		boolToInt(v.Deleted),
		v.Progress,
		len(v.KeyResults),
		data,
		int64(record.LastSeq),
		toMillis(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("put view %s: %w", v.ID, err)
	}
	return nil
}

// GetView returns storage.ErrNotFound when id has no view.
func (s *Store) GetView(ctx context.Context, id string) (storage.ViewRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ViewRecord{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT view_json, last_seq, updated_at FROM objective_views WHERE id = ?`,
		strings.TrimSpace(id),
	)
	record, err := scanView(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ViewRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.ViewRecord{}, err
	}
	return record, nil
}

// ListViews returns views ordered by id, after req.AfterID, matching the
// optional filter clause.
func (s *Store) ListViews(ctx context.Context, req storage.ListViewsRequest) (storage.ViewPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.ViewPage{}, err
	}
	if req.PageSize <= 0 {
		return storage.ViewPage{}, fmt.Errorf("page size must be greater than zero")
	}

	query := `SELECT view_json, last_seq, updated_at FROM objective_views WHERE id > ?`
	args := []any{req.AfterID}
	if clause := strings.TrimSpace(req.FilterClause); clause != "" {
		query += ` AND (` + clause + `)`
		args = append(args, req.FilterParams...)
	}
	query += ` ORDER BY id LIMIT ?`
	args = append(args, req.PageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return storage.ViewPage{}, fmt.Errorf("list views: %w", err)
	}
	defer rows.Close()

	page := storage.ViewPage{Views: make([]storage.ViewRecord, 0, req.PageSize)}
	for rows.Next() {
		record, err := scanView(rows)
		if err != nil {
			return storage.ViewPage{}, err
		}
		page.Views = append(page.Views, record)
	}
	if err := rows.Err(); err != nil {
		return storage.ViewPage{}, fmt.Errorf("iterate views: %w", err)
	}
	if len(page.Views) > req.PageSize {
		page.Views = page.Views[:req.PageSize]
		page.NextID = page.Views[len(page.Views)-1].View.ID
	}
	return page, nil
}

func scanView(row rowScanner) (storage.ViewRecord, error) {
	var (
		data      []byte
		lastSeq   int64
		updatedAt int64
	)
	if err := row.Scan(&data, &lastSeq, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ViewRecord{}, err
		}
		return storage.ViewRecord{}, fmt.Errorf("scan view: %w", err)
	}
	v, err := view.Decode(data)
	if err != nil {
		return storage.ViewRecord{}, fmt.Errorf("decode view: %w", err)
	}
	return storage.ViewRecord{
		View:      v,
		LastSeq:   uint64(lastSeq),
		UpdatedAt: fromMillis(updatedAt),
	}, nil
}
