package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CaioWing/checkpoint/internal/domain"
)

const (
	variantComputer = "computer"
	variantMedical  = "medical-device"
)

// DeviceStore persists devices in PostgreSQL. Mutations lock the device's
// device_index row for the length of the transaction, which serializes
// transitions per id.
type DeviceStore struct {
	pool *pgxpool.Pool
}

var _ domain.DeviceStore = (*DeviceStore)(nil)

func NewDeviceStore(pool *pgxpool.Pool) *DeviceStore {
	return &DeviceStore{pool: pool}
}

func (s *DeviceStore) RegisterFrequentComputer(ctx context.Context, fc *domain.FrequentComputer) (*domain.FrequentComputer, error) {
	var out *domain.FrequentComputer
	err := inTx(ctx, s.pool, "register frequent computer", func(tx pgx.Tx) error {
		c := fc.Device
		if err := claim(ctx, tx, c.ID, variantComputer); err != nil {
			return err
		}
		if err := upsertComputer(ctx, tx, &c); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO frequent_computers (id, checkin_url, checkout_url)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET
				checkin_url = EXCLUDED.checkin_url,
				checkout_url = EXCLUDED.checkout_url
		`, c.ID, fc.CheckinURL, fc.CheckoutURL); err != nil {
			return fmt.Errorf("upsert frequent computer: %w", err)
		}

		var err error
		out, err = getFrequentComputer(ctx, tx, c.ID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *DeviceStore) CheckinComputer(ctx context.Context, c *domain.Computer) (*domain.Computer, error) {
	next := *c
	next.UpdatedAt = pgTime(c.UpdatedAt)
	next.CheckinAt = pgTimePtr(c.CheckinAt)
	next.CheckoutAt = pgTimePtr(c.CheckoutAt)

	err := inTx(ctx, s.pool, "checkin computer", func(tx pgx.Tx) error {
		if err := claim(ctx, tx, next.ID, variantComputer); err != nil {
			return err
		}

		if next.CheckinAt != nil {
			prevIn, prevOut, err := lockTimestamps(ctx, tx, "computers", next.ID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			if err == nil {
				if at := checkinTime(*c.CheckinAt, prevOut); !at.Equal(*next.CheckinAt) {
					next.CheckinAt = &at
					next.UpdatedAt = at
				}
				if err := domain.CheckCheckin(prevIn, prevOut, *next.CheckinAt); err != nil {
					return err
				}
			}
		}

		if err := upsertComputer(ctx, tx, &next); err != nil {
			return err
		}

		stored, err := getComputer(ctx, tx, next.ID)
		if err != nil {
			return err
		}
		next = *stored

		if next.CheckinAt != nil && c.CheckinAt != nil {
			t, err := computerType(ctx, tx, next.ID)
			if err != nil {
				return err
			}
			return insertHistory(ctx, tx, domain.ComputerHistoryEntry(&next, t, domain.HistoryEventCheckin, *next.CheckinAt))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *DeviceStore) CheckinMedicalDevice(ctx context.Context, d *domain.MedicalDevice) (*domain.MedicalDevice, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	next := *d
	next.UpdatedAt = pgTime(d.UpdatedAt)
	next.CheckinAt = pgTimePtr(d.CheckinAt)
	next.CheckoutAt = pgTimePtr(d.CheckoutAt)

	err := inTx(ctx, s.pool, "checkin medical device", func(tx pgx.Tx) error {
		if err := claim(ctx, tx, next.ID, variantMedical); err != nil {
			return err
		}

		if next.CheckinAt != nil {
			prevIn, prevOut, err := lockTimestamps(ctx, tx, "medical_devices", next.ID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			if err == nil {
				if at := checkinTime(*d.CheckinAt, prevOut); !at.Equal(*next.CheckinAt) {
					next.CheckinAt = &at
					next.UpdatedAt = at
				}
				if err := domain.CheckCheckin(prevIn, prevOut, *next.CheckinAt); err != nil {
					return err
				}
			}
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO medical_devices (id, brand, model, serial, owner_name, owner_id, photo_url,
			                             checkin_at, checkout_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO UPDATE SET
				brand = EXCLUDED.brand,
				model = EXCLUDED.model,
				serial = EXCLUDED.serial,
				owner_name = EXCLUDED.owner_name,
				owner_id = EXCLUDED.owner_id,
				photo_url = EXCLUDED.photo_url,
				checkin_at = COALESCE(EXCLUDED.checkin_at, medical_devices.checkin_at),
				checkout_at = CASE WHEN EXCLUDED.checkin_at IS NULL
				                   THEN medical_devices.checkout_at ELSE EXCLUDED.checkout_at END,
				updated_at = EXCLUDED.updated_at
		`, next.ID, next.Brand, next.Model, next.Serial, next.Owner.Name, next.Owner.ID, next.PhotoURL,
			next.CheckinAt, next.CheckoutAt, next.UpdatedAt); err != nil {
			return fmt.Errorf("upsert medical device: %w", err)
		}

		stored, err := getMedicalDevice(ctx, tx, next.ID)
		if err != nil {
			return err
		}
		next = *stored

		if d.CheckinAt != nil {
			return insertHistory(ctx, tx, domain.MedicalDeviceHistoryEntry(&next, domain.HistoryEventCheckin, *next.CheckinAt))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *DeviceStore) CheckinFrequentComputer(ctx context.Context, id string, requested time.Time) (*domain.FrequentComputer, error) {
	var out *domain.FrequentComputer
	err := inTx(ctx, s.pool, "checkin frequent computer", func(tx pgx.Tx) error {
		variant, err := lockVariant(ctx, tx, id)
		if err != nil {
			return err
		}
		if variant != variantComputer {
			return fmt.Errorf("%w: frequent computer %s", domain.ErrNotFound, id)
		}

		fc, err := getFrequentComputer(ctx, tx, id, true)
		if err != nil {
			return err
		}
		at := checkinTime(requested, fc.Device.CheckoutAt)
		if err := domain.CheckCheckin(fc.Device.CheckinAt, fc.Device.CheckoutAt, at); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE computers SET checkin_at = $2, checkout_at = NULL, updated_at = $2 WHERE id = $1
		`, id, at); err != nil {
			return fmt.Errorf("update computer: %w", err)
		}

		fc.Device.CheckinAt = &at
		fc.Device.CheckoutAt = nil
		fc.Device.UpdatedAt = at
		out = fc

		return insertHistory(ctx, tx, domain.ComputerHistoryEntry(&fc.Device, domain.DeviceTypeFrequentComputer,
			domain.HistoryEventCheckin, at))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *DeviceStore) CheckoutDevice(ctx context.Context, id string, at time.Time) error {
	at = pgTime(at)

	return inTx(ctx, s.pool, "checkout device", func(tx pgx.Tx) error {
		variant, err := lockVariant(ctx, tx, id)
		if err != nil {
			return err
		}

		var entry *domain.DeviceHistoryEntry
		switch variant {
		case variantComputer:
			c, err := getComputer(ctx, tx, id)
			if err != nil {
				return err
			}
			if err := domain.CheckCheckout(c.CheckinAt, c.CheckoutAt, at); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
				UPDATE computers SET checkout_at = $2, updated_at = $2 WHERE id = $1
			`, id, at); err != nil {
				return fmt.Errorf("update computer: %w", err)
			}
			t, err := computerType(ctx, tx, id)
			if err != nil {
				return err
			}
			entry = domain.ComputerHistoryEntry(c, t, domain.HistoryEventCheckout, at)

		case variantMedical:
			d, err := getMedicalDevice(ctx, tx, id)
			if err != nil {
				return err
			}
			if err := domain.CheckCheckout(d.CheckinAt, d.CheckoutAt, at); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
				UPDATE medical_devices SET checkout_at = $2, updated_at = $2 WHERE id = $1
			`, id, at); err != nil {
				return fmt.Errorf("update medical device: %w", err)
			}
			entry = domain.MedicalDeviceHistoryEntry(d, domain.HistoryEventCheckout, at)

		default:
			return fmt.Errorf("%w: device %s", domain.ErrNotFound, id)
		}

		return insertHistory(ctx, tx, entry)
	})
}

func (s *DeviceStore) IsDeviceEntered(ctx context.Context, id string) (bool, error) {
	var entered bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM computers WHERE id = $1 AND checkin_at IS NOT NULL AND checkout_at IS NULL
			UNION ALL
			SELECT 1 FROM medical_devices WHERE id = $1 AND checkin_at IS NOT NULL AND checkout_at IS NULL
		)
	`, id).Scan(&entered)
	if err != nil {
		return false, storageError("is device entered", err)
	}
	return entered, nil
}

func (s *DeviceStore) IsFrequentComputerRegistered(ctx context.Context, id string) (bool, error) {
	var registered bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM frequent_computers WHERE id = $1)
	`, id).Scan(&registered)
	if err != nil {
		return false, storageError("is frequent computer registered", err)
	}
	return registered, nil
}

func (s *DeviceStore) GetComputers(ctx context.Context, c domain.DeviceCriteria) ([]*domain.Computer, error) {
	query, args, err := computersQuery.build(c)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageError("list computers", err)
	}
	defer rows.Close()

	computers := []*domain.Computer{}
	for rows.Next() {
		comp, err := scanComputer(rows)
		if err != nil {
			return nil, storageError("scan computer", err)
		}
		computers = append(computers, comp)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list computers", err)
	}
	return computers, nil
}

func (s *DeviceStore) GetFrequentComputers(ctx context.Context, c domain.DeviceCriteria) ([]*domain.FrequentComputer, error) {
	query, args, err := frequentComputersQuery.build(c)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageError("list frequent computers", err)
	}
	defer rows.Close()

	list := []*domain.FrequentComputer{}
	for rows.Next() {
		fc, err := scanFrequentComputer(rows)
		if err != nil {
			return nil, storageError("scan frequent computer", err)
		}
		list = append(list, fc)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list frequent computers", err)
	}
	return list, nil
}

func (s *DeviceStore) GetMedicalDevices(ctx context.Context, c domain.DeviceCriteria) ([]*domain.MedicalDevice, error) {
	query, args, err := medicalDevicesQuery.build(c)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageError("list medical devices", err)
	}
	defer rows.Close()

	devices := []*domain.MedicalDevice{}
	for rows.Next() {
		d, err := scanMedicalDevice(rows)
		if err != nil {
			return nil, storageError("scan medical device", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list medical devices", err)
	}
	return devices, nil
}

func (s *DeviceStore) GetEnteredDevices(ctx context.Context, c domain.DeviceCriteria) ([]*domain.EnteredDevice, error) {
	query, args, err := enteredDevicesQuery.build(c)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageError("list entered devices", err)
	}
	defer rows.Close()

	devices := []*domain.EnteredDevice{}
	for rows.Next() {
		e := &domain.EnteredDevice{}
		if err := rows.Scan(
			&e.ID, &e.Type, &e.Brand, &e.Model, &e.Color, &e.Serial, &e.Owner.Name, &e.Owner.ID,
			&e.PhotoURL, &e.CheckinAt, &e.CheckoutAt, &e.UpdatedAt,
		); err != nil {
			return nil, storageError("scan entered device", err)
		}
		devices = append(devices, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list entered devices", err)
	}
	return devices, nil
}

// claim indexes id under variant and locks its index row. An id already
// owned by the other variant is a conflict.
func claim(ctx context.Context, tx pgx.Tx, id, variant string) error {
	if id == "" {
		return fmt.Errorf("%w: device id is required", domain.ErrInvalidInput)
	}

	var existing string
	err := tx.QueryRow(ctx, `
		INSERT INTO device_index (id, variant) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET variant = device_index.variant
		RETURNING variant
	`, id, variant).Scan(&existing)
	if err != nil {
		return fmt.Errorf("claim device id: %w", err)
	}
	if existing != variant {
		return fmt.Errorf("%w: id %s is already used by a %s", domain.ErrConflict, id, existing)
	}
	return nil
}

func lockVariant(ctx context.Context, tx pgx.Tx, id string) (string, error) {
	var variant string
	err := tx.QueryRow(ctx, `SELECT variant FROM device_index WHERE id = $1 FOR UPDATE`, id).Scan(&variant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%w: device %s", domain.ErrNotFound, id)
		}
		return "", fmt.Errorf("lock device: %w", err)
	}
	return variant, nil
}

func lockTimestamps(ctx context.Context, tx pgx.Tx, table, id string) (checkinAt, checkoutAt *time.Time, err error) {
	query := fmt.Sprintf(`SELECT checkin_at, checkout_at FROM %s WHERE id = $1 FOR UPDATE`, table)
	if err := tx.QueryRow(ctx, query, id).Scan(&checkinAt, &checkoutAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, fmt.Errorf("lock %s row: %w", table, err)
	}
	return checkinAt, checkoutAt, nil
}

func upsertComputer(ctx context.Context, tx pgx.Tx, c *domain.Computer) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO computers (id, brand, model, color, owner_name, owner_id, photo_url,
		                       checkin_at, checkout_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NULLIF($7, ''), $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			brand = EXCLUDED.brand,
			model = EXCLUDED.model,
			color = EXCLUDED.color,
			owner_name = EXCLUDED.owner_name,
			owner_id = EXCLUDED.owner_id,
			photo_url = COALESCE(EXCLUDED.photo_url, computers.photo_url),
			checkin_at = COALESCE(EXCLUDED.checkin_at, computers.checkin_at),
			checkout_at = CASE WHEN EXCLUDED.checkin_at IS NULL
			                   THEN computers.checkout_at ELSE EXCLUDED.checkout_at END,
			updated_at = EXCLUDED.updated_at
	`, c.ID, c.Brand, c.Model, c.Color, c.Owner.Name, c.Owner.ID, c.PhotoURL,
		pgTimePtr(c.CheckinAt), pgTimePtr(c.CheckoutAt), pgTime(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert computer: %w", err)
	}
	return nil
}

func computerType(ctx context.Context, tx pgx.Tx, id string) (domain.DeviceType, error) {
	var frequent bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM frequent_computers WHERE id = $1)`, id).Scan(&frequent); err != nil {
		return "", fmt.Errorf("check frequent registration: %w", err)
	}
	if frequent {
		return domain.DeviceTypeFrequentComputer, nil
	}
	return domain.DeviceTypeComputer, nil
}

func getComputer(ctx context.Context, tx pgx.Tx, id string) (*domain.Computer, error) {
	c, err := scanComputer(tx.QueryRow(ctx, `SELECT `+computerColumns+` FROM computers c WHERE c.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: computer %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get computer: %w", err)
	}
	return c, nil
}

func getFrequentComputer(ctx context.Context, tx pgx.Tx, id string, forUpdate bool) (*domain.FrequentComputer, error) {
	query := `SELECT ` + computerColumns + `, f.checkin_url, f.checkout_url
		FROM computers c JOIN frequent_computers f ON f.id = c.id WHERE c.id = $1`
	if forUpdate {
		query += ` FOR UPDATE OF c`
	}

	fc, err := scanFrequentComputer(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: frequent computer %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get frequent computer: %w", err)
	}
	return fc, nil
}

func getMedicalDevice(ctx context.Context, tx pgx.Tx, id string) (*domain.MedicalDevice, error) {
	d, err := scanMedicalDevice(tx.QueryRow(ctx, `SELECT `+medicalColumns+` FROM medical_devices m WHERE m.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: medical device %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get medical device: %w", err)
	}
	return d, nil
}

func scanComputer(row pgx.Row) (*domain.Computer, error) {
	c := &domain.Computer{}
	err := row.Scan(
		&c.ID, &c.Brand, &c.Model, &c.Color, &c.Owner.Name, &c.Owner.ID,
		&c.PhotoURL, &c.CheckinAt, &c.CheckoutAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func scanFrequentComputer(row pgx.Row) (*domain.FrequentComputer, error) {
	fc := &domain.FrequentComputer{}
	c := &fc.Device
	err := row.Scan(
		&c.ID, &c.Brand, &c.Model, &c.Color, &c.Owner.Name, &c.Owner.ID,
		&c.PhotoURL, &c.CheckinAt, &c.CheckoutAt, &c.UpdatedAt,
		&fc.CheckinURL, &fc.CheckoutURL,
	)
	if err != nil {
		return nil, err
	}
	return fc, nil
}

func scanMedicalDevice(row pgx.Row) (*domain.MedicalDevice, error) {
	d := &domain.MedicalDevice{}
	err := row.Scan(
		&d.ID, &d.Brand, &d.Model, &d.Serial, &d.Owner.Name, &d.Owner.ID,
		&d.PhotoURL, &d.CheckinAt, &d.CheckoutAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}
