package postgres

import (
	"fmt"
	"strings"

	"github.com/CaioWing/checkpoint/internal/domain"
)

// listQuery turns a DeviceCriteria into SQL over one listing. Only columns
// named in filters and sorts are ever interpolated; values always go
// through placeholders.
type listQuery struct {
	name    string
	selects string
	where   string
	filters map[string]string
	sorts   map[string]string
	search  []string
	id      string
	updated string
}

func (q listQuery) build(c domain.DeviceCriteria) (string, []interface{}, error) {
	where := "WHERE 1=1"
	if q.where != "" {
		where += " AND " + q.where
	}
	args := []interface{}{}
	argIdx := 1

	if c.FilterBy != nil {
		col, ok := q.filters[c.FilterBy.Field]
		if !ok {
			return "", nil, fmt.Errorf("%w: cannot filter %s by %q", domain.ErrInvalidInput, q.name, c.FilterBy.Field)
		}
		where += fmt.Sprintf(" AND %s = $%d", col, argIdx)
		args = append(args, c.FilterBy.Value)
		argIdx++
	}

	if c.Search != nil && *c.Search != "" && len(q.search) > 0 {
		parts := make([]string, 0, len(q.search))
		for _, col := range q.search {
			parts = append(parts, fmt.Sprintf("%s ILIKE $%d", col, argIdx))
		}
		where += " AND (" + strings.Join(parts, " OR ") + ")"
		args = append(args, "%"+escapeLike(*c.Search)+"%")
		argIdx++
	}

	orderCol, orderDir := q.updated, "DESC"
	if c.SortBy != nil {
		if col, ok := q.sorts[c.SortBy.Field]; ok {
			orderCol = col
			orderDir = "DESC"
			if c.SortBy.IsAscending {
				orderDir = "ASC"
			}
		}
	}

	query := fmt.Sprintf("%s %s ORDER BY %s %s, %s ASC", q.selects, where, orderCol, orderDir, q.id)

	if c.Limit != nil {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, *c.Limit)
		argIdx++
	}
	if c.Offset != nil {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, *c.Offset)
	}

	return query, args, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func withTimes(fields map[string]string, checkin, checkout, updated string) map[string]string {
	out := make(map[string]string, len(fields)+3)
	for k, v := range fields {
		out[k] = v
	}
	out[domain.FieldCheckinAt] = checkin
	out[domain.FieldCheckoutAt] = checkout
	out[domain.FieldUpdatedAt] = updated
	return out
}

const computerColumns = `c.id, c.brand, c.model, COALESCE(c.color, ''), c.owner_name, c.owner_id,
	COALESCE(c.photo_url, ''), c.checkin_at, c.checkout_at, c.updated_at`

const medicalColumns = `m.id, m.brand, m.model, m.serial, m.owner_name, m.owner_id,
	m.photo_url, m.checkin_at, m.checkout_at, m.updated_at`

var computerFilters = map[string]string{
	domain.FieldID:        "c.id",
	domain.FieldBrand:     "c.brand",
	domain.FieldModel:     "c.model",
	domain.FieldColor:     "COALESCE(c.color, '')",
	domain.FieldOwnerID:   "c.owner_id",
	domain.FieldOwnerName: "c.owner_name",
}

var computerSearch = []string{"c.brand", "c.model", "c.owner_name", "c.owner_id", "COALESCE(c.color, '')"}

var (
	computersQuery = listQuery{
		name:    "computers",
		selects: "SELECT " + computerColumns + " FROM computers c",
		filters: computerFilters,
		sorts:   withTimes(computerFilters, "c.checkin_at", "c.checkout_at", "c.updated_at"),
		search:  computerSearch,
		id:      "c.id",
		updated: "c.updated_at",
	}

	frequentComputersQuery = listQuery{
		name: "frequent computers",
		selects: "SELECT " + computerColumns + ", f.checkin_url, f.checkout_url" +
			" FROM computers c JOIN frequent_computers f ON f.id = c.id",
		filters: computerFilters,
		sorts:   withTimes(computerFilters, "c.checkin_at", "c.checkout_at", "c.updated_at"),
		search:  computerSearch,
		id:      "c.id",
		updated: "c.updated_at",
	}

	medicalDevicesQuery = listQuery{
		name:    "medical devices",
		selects: "SELECT " + medicalColumns + " FROM medical_devices m",
		filters: medicalFilters,
		sorts:   withTimes(medicalFilters, "m.checkin_at", "m.checkout_at", "m.updated_at"),
		search:  []string{"m.brand", "m.model", "m.owner_name", "m.owner_id", "m.serial"},
		id:      "m.id",
		updated: "m.updated_at",
	}

	enteredDevicesQuery = listQuery{
		name: "entered devices",
		selects: `SELECT e.id, e.type, e.brand, e.model, e.color, e.serial, e.owner_name, e.owner_id,
			e.photo_url, e.checkin_at, e.checkout_at, e.updated_at
		FROM (
			SELECT c.id,
			       CASE WHEN f.id IS NULL THEN 'computer' ELSE 'frequent-computer' END AS type,
			       c.brand, c.model, COALESCE(c.color, '') AS color, '' AS serial,
			       c.owner_name, c.owner_id, COALESCE(c.photo_url, '') AS photo_url,
			       c.checkin_at, c.checkout_at, c.updated_at
			FROM computers c LEFT JOIN frequent_computers f ON f.id = c.id
			WHERE c.checkin_at IS NOT NULL AND c.checkout_at IS NULL
			UNION ALL
			SELECT m.id, 'medical-device', m.brand, m.model, '', m.serial,
			       m.owner_name, m.owner_id, m.photo_url,
			       m.checkin_at, m.checkout_at, m.updated_at
			FROM medical_devices m
			WHERE m.checkin_at IS NOT NULL AND m.checkout_at IS NULL
		) e`,
		filters: enteredFilters,
		sorts:   withTimes(enteredFilters, "e.checkin_at", "e.checkout_at", "e.updated_at"),
		search:  []string{"e.brand", "e.model", "e.owner_name", "e.owner_id", "e.color", "e.serial"},
		id:      "e.id",
		updated: "e.updated_at",
	}
)

var medicalFilters = map[string]string{
	domain.FieldID:        "m.id",
	domain.FieldBrand:     "m.brand",
	domain.FieldModel:     "m.model",
	domain.FieldSerial:    "m.serial",
	domain.FieldOwnerID:   "m.owner_id",
	domain.FieldOwnerName: "m.owner_name",
}

var enteredFilters = map[string]string{
	domain.FieldID:        "e.id",
	domain.FieldType:      "e.type",
	domain.FieldBrand:     "e.brand",
	domain.FieldModel:     "e.model",
	domain.FieldColor:     "e.color",
	domain.FieldSerial:    "e.serial",
	domain.FieldOwnerID:   "e.owner_id",
	domain.FieldOwnerName: "e.owner_name",
}
