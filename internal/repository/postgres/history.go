package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/CaioWing/checkpoint/internal/domain"
)

func insertHistory(ctx context.Context, tx pgx.Tx, e *domain.DeviceHistoryEntry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO device_history (id, device_id, device_type, brand, model, owner_name, owner_id,
		                            event, event_date, serial, color)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''))
	`, e.ID, e.DeviceID, string(e.DeviceType), e.Brand, e.Model, e.Owner.Name, e.Owner.ID,
		string(e.Event), pgTime(e.EventDate), e.Serial, e.Color)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// historyQuery builds the history listing. Entries sharing an event date come
// back in reverse write order.
func historyQuery(f *domain.DeviceHistoryFilters) (string, []interface{}) {
	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if f != nil {
		if f.DeviceID != nil {
			where += fmt.Sprintf(" AND device_id = $%d", argIdx)
			args = append(args, *f.DeviceID)
			argIdx++
		}
		if f.DeviceType != nil {
			where += fmt.Sprintf(" AND device_type = $%d", argIdx)
			args = append(args, string(*f.DeviceType))
			argIdx++
		}
		if f.Event != nil {
			where += fmt.Sprintf(" AND event = $%d", argIdx)
			args = append(args, string(*f.Event))
			argIdx++
		}
		if f.StartDate != nil {
			where += fmt.Sprintf(" AND event_date >= $%d", argIdx)
			args = append(args, *f.StartDate)
			argIdx++
		}
		if f.EndDate != nil {
			where += fmt.Sprintf(" AND event_date <= $%d", argIdx)
			args = append(args, *f.EndDate)
			argIdx++
		}
		if f.OwnerID != nil {
			where += fmt.Sprintf(" AND owner_id = $%d", argIdx)
			args = append(args, *f.OwnerID)
			argIdx++
		}
	}

	query := fmt.Sprintf(`
		SELECT id, device_id, device_type, brand, model, owner_name, owner_id,
		       event, event_date, COALESCE(serial, ''), COALESCE(color, '')
		FROM device_history %s
		ORDER BY event_date DESC, seq DESC`, where)

	if f != nil && f.Limit != nil {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, *f.Limit)
		argIdx++
	}
	if f != nil && f.Offset != nil {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, *f.Offset)
	}
	return query, args
}

func (s *DeviceStore) GetDeviceHistory(ctx context.Context, f *domain.DeviceHistoryFilters) ([]*domain.DeviceHistoryEntry, error) {
	query, args := historyQuery(f)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageError("list device history", err)
	}
	defer rows.Close()

	entries := []*domain.DeviceHistoryEntry{}
	for rows.Next() {
		e := &domain.DeviceHistoryEntry{}
		if err := rows.Scan(
			&e.ID, &e.DeviceID, &e.DeviceType, &e.Brand, &e.Model, &e.Owner.Name, &e.Owner.ID,
			&e.Event, &e.EventDate, &e.Serial, &e.Color,
		); err != nil {
			return nil, storageError("scan history entry", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list device history", err)
	}
	return entries, nil
}
