package memory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/CaioWing/checkpoint/internal/domain"
)

// record is the flattened view of any device the criteria engine works on.
type record struct {
	id         string
	typ        domain.DeviceType
	brand      string
	model      string
	color      string
	serial     string
	ownerID    string
	ownerName  string
	checkinAt  *time.Time
	checkoutAt *time.Time
	updatedAt  time.Time
}

func computerRecord(c *domain.Computer, t domain.DeviceType) record {
	return record{
		id: c.ID, typ: t, brand: c.Brand, model: c.Model, color: c.Color,
		ownerID: c.Owner.ID, ownerName: c.Owner.Name,
		checkinAt: c.CheckinAt, checkoutAt: c.CheckoutAt, updatedAt: c.UpdatedAt,
	}
}

func medicalRecord(d *domain.MedicalDevice) record {
	return record{
		id: d.ID, typ: domain.DeviceTypeMedicalDevice, brand: d.Brand, model: d.Model, serial: d.Serial,
		ownerID: d.Owner.ID, ownerName: d.Owner.Name,
		checkinAt: d.CheckinAt, checkoutAt: d.CheckoutAt, updatedAt: d.UpdatedAt,
	}
}

func (r record) text(field string) (string, bool) {
	switch field {
	case domain.FieldID:
		return r.id, true
	case domain.FieldType:
		return string(r.typ), true
	case domain.FieldBrand:
		return r.brand, true
	case domain.FieldModel:
		return r.model, true
	case domain.FieldColor:
		return r.color, true
	case domain.FieldSerial:
		return r.serial, true
	case domain.FieldOwnerID:
		return r.ownerID, true
	case domain.FieldOwnerName:
		return r.ownerName, true
	}
	return "", false
}

func (r record) time(field string) (*time.Time, bool) {
	switch field {
	case domain.FieldCheckinAt:
		return r.checkinAt, true
	case domain.FieldCheckoutAt:
		return r.checkoutAt, true
	case domain.FieldUpdatedAt:
		t := r.updatedAt
		return &t, true
	}
	return nil, false
}

func (r record) matchesSearch(term string) bool {
	term = strings.ToLower(term)
	for _, v := range []string{r.brand, r.model, r.ownerName, r.ownerID, r.color, r.serial} {
		if v != "" && strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

// view lists the fields a listing accepts in filter[...] and sort.
type view struct {
	name   string
	fields map[string]bool
}

func newView(name string, fields ...string) view {
	v := view{name: name, fields: make(map[string]bool, len(fields))}
	for _, f := range fields {
		v.fields[f] = true
	}
	return v
}

var (
	computerView = newView("computers",
		domain.FieldID, domain.FieldBrand, domain.FieldModel, domain.FieldColor,
		domain.FieldOwnerID, domain.FieldOwnerName)
	medicalView = newView("medical devices",
		domain.FieldID, domain.FieldBrand, domain.FieldModel, domain.FieldSerial,
		domain.FieldOwnerID, domain.FieldOwnerName)
	enteredView = newView("entered devices",
		domain.FieldID, domain.FieldType, domain.FieldBrand, domain.FieldModel, domain.FieldColor,
		domain.FieldSerial, domain.FieldOwnerID, domain.FieldOwnerName)
)

type row[T any] struct {
	rec  record
	item T
}

// apply filters, sorts and paginates rows. Without a sort key rows are
// ordered by updatedAt descending, then id.
func apply[T any](v view, rows []row[T], c domain.DeviceCriteria) ([]T, error) {
	if c.FilterBy != nil && !v.fields[c.FilterBy.Field] {
		return nil, fmt.Errorf("%w: cannot filter %s by %q", domain.ErrInvalidInput, v.name, c.FilterBy.Field)
	}

	kept := rows[:0:0]
	for _, r := range rows {
		if c.FilterBy != nil {
			if val, _ := r.rec.text(c.FilterBy.Field); val != c.FilterBy.Value {
				continue
			}
		}
		if c.Search != nil && *c.Search != "" && !r.rec.matchesSearch(*c.Search) {
			continue
		}
		kept = append(kept, r)
	}

	sortRows(v, kept, c.SortBy)

	out := make([]T, 0, len(kept))
	for _, r := range kept {
		out = append(out, r.item)
	}
	return paginate(out, c.Offset, c.Limit), nil
}

func sortRows[T any](v view, rows []row[T], s *domain.SortQuery) {
	field, asc := domain.FieldUpdatedAt, false
	if s != nil && (v.fields[s.Field] || isTimeField(s.Field)) {
		field, asc = s.Field, s.IsAscending
	}

	sort.SliceStable(rows, func(i, j int) bool {
		c := compare(rows[i].rec, rows[j].rec, field)
		if c == 0 {
			return rows[i].rec.id < rows[j].rec.id
		}
		if !asc {
			c = -c
		}
		return c < 0
	})
}

func isTimeField(f string) bool {
	return f == domain.FieldCheckinAt || f == domain.FieldCheckoutAt || f == domain.FieldUpdatedAt
}

// compare treats a missing timestamp as greater than any present one, which
// matches PostgreSQL's default NULL placement in both directions.
func compare(a, b record, field string) int {
	if ta, ok := a.time(field); ok {
		tb, _ := b.time(field)
		switch {
		case ta == nil && tb == nil:
			return 0
		case ta == nil:
			return 1
		case tb == nil:
			return -1
		}
		return ta.Compare(*tb)
	}
	sa, _ := a.text(field)
	sb, _ := b.text(field)
	return strings.Compare(sa, sb)
}
