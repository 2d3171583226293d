package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CaioWing/checkpoint/internal/domain"
)

// newTestStore connects to the database named by CHECKPOINT_TEST_DSN and
// applies the migrations. Every test works on fresh uuid ids, so no cleanup
// of the shared tables is needed.
func newTestStore(t *testing.T) *DeviceStore {
	t.Helper()
	dsn := os.Getenv("CHECKPOINT_TEST_DSN")
	if dsn == "" {
		t.Skip("CHECKPOINT_TEST_DSN not set")
	}
	require.NoError(t, RunMigrations(dsn))

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return NewDeviceStore(pool)
}

func newComputer(at time.Time) *domain.Computer {
	return &domain.Computer{
		ID:        uuid.NewString(),
		Brand:     "Lenovo",
		Model:     "ThinkPad T14",
		Color:     "black",
		PhotoURL:  "https://photos.example.com/t14.png",
		Owner:     domain.Owner{Name: "Ana Souza", ID: "EMP-" + uuid.NewString()[:8]},
		UpdatedAt: at,
		CheckinAt: &at,
	}
}

func history(t *testing.T, s *DeviceStore, id string) []*domain.DeviceHistoryEntry {
	t.Helper()
	entries, err := s.GetDeviceHistory(context.Background(), &domain.DeviceHistoryFilters{DeviceID: &id})
	require.NoError(t, err)
	return entries
}

func TestDeviceStore_CheckinCheckoutHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	in := time.Now().UTC().Add(-time.Hour)

	c, err := s.CheckinComputer(ctx, newComputer(in))
	require.NoError(t, err)
	assert.True(t, c.Entered())

	entered, err := s.IsDeviceEntered(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, entered)

	_, err = s.CheckinComputer(ctx, newComputerWithID(c.ID, in.Add(time.Minute)))
	assert.ErrorIs(t, err, domain.ErrAlreadyEntered)

	out := in.Add(30 * time.Minute)
	require.NoError(t, s.CheckoutDevice(ctx, c.ID, out))

	entries := history(t, s, c.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.HistoryEventCheckout, entries[0].Event)
	assert.Equal(t, domain.HistoryEventCheckin, entries[1].Event)
	assert.WithinDuration(t, pgTime(out), entries[0].EventDate, 0)
	assert.Equal(t, domain.DeviceTypeComputer, entries[0].DeviceType)

	err = s.CheckoutDevice(ctx, c.ID, out.Add(time.Minute))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func newComputerWithID(id string, at time.Time) *domain.Computer {
	c := newComputer(at)
	c.ID = id
	return c
}

func TestDeviceStore_UpsertKeepsPhotoAndTimestamps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	in := time.Now().UTC().Add(-time.Hour)

	c, err := s.CheckinComputer(ctx, newComputer(in))
	require.NoError(t, err)

	update := newComputerWithID(c.ID, in.Add(time.Minute))
	update.Model = "ThinkPad T14 Gen 4"
	update.PhotoURL = ""
	update.CheckinAt = nil

	got, err := s.CheckinComputer(ctx, update)
	require.NoError(t, err)
	assert.Equal(t, "ThinkPad T14 Gen 4", got.Model)
	assert.Equal(t, c.PhotoURL, got.PhotoURL)
	require.NotNil(t, got.CheckinAt)
	assert.WithinDuration(t, pgTime(in), *got.CheckinAt, 0)

	// Profile updates do not add history.
	assert.Len(t, history(t, s, c.ID), 1)
}

func TestDeviceStore_IDSpaceIsShared(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	in := time.Now().UTC()

	c, err := s.CheckinComputer(ctx, newComputer(in))
	require.NoError(t, err)

	_, err = s.CheckinMedicalDevice(ctx, &domain.MedicalDevice{
		ID:        c.ID,
		Brand:     "Philips",
		Model:     "IntelliVue",
		Serial:    "PH-99812",
		PhotoURL:  "https://photos.example.com/intellivue.png",
		Owner:     domain.Owner{Name: "Clara Reis", ID: "MED-0001"},
		UpdatedAt: in,
		CheckinAt: &in,
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	devices, err := s.GetMedicalDevices(ctx, domain.DeviceCriteria{
		FilterBy: &domain.FilterQuery{Field: domain.FieldID, Value: c.ID},
	})
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestDeviceStore_ConcurrentCheckoutHasOneWinner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	in := time.Now().UTC().Add(-time.Hour)

	c, err := s.CheckinComputer(ctx, newComputer(in))
	require.NoError(t, err)

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.CheckoutDevice(ctx, c.ID, in.Add(time.Duration(i+1)*time.Second))
		}()
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, domain.ErrNotFound):
		default:
			t.Fatalf("unexpected checkout error: %v", err)
		}
	}
	assert.Equal(t, 1, won)

	entries := history(t, s, c.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.HistoryEventCheckout, entries[0].Event)
}

func TestDeviceStore_RecheckinWithinSameMicrosecond(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	in := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	out := in.Add(time.Hour + 250*time.Nanosecond)

	device := newComputer(in)
	device.CheckinAt = nil
	fc, err := s.RegisterFrequentComputer(ctx, &domain.FrequentComputer{
		Device:      *device,
		CheckinURL:  "https://gate.example.com/api/v1/computers/frequent/checkin/x",
		CheckoutURL: "https://gate.example.com/api/v1/devices/checkout/x",
	})
	require.NoError(t, err)
	_, err = s.CheckinFrequentComputer(ctx, fc.Device.ID, in)
	require.NoError(t, err)
	require.NoError(t, s.CheckoutDevice(ctx, fc.Device.ID, out))

	again, err := s.CheckinFrequentComputer(ctx, fc.Device.ID, out.Add(500*time.Nanosecond))
	require.NoError(t, err)
	require.NotNil(t, again.Device.CheckinAt)
	assert.WithinDuration(t, pgTime(out).Add(time.Microsecond), *again.Device.CheckinAt, 0)

	entries := history(t, s, fc.Device.ID)
	require.Len(t, entries, 3)
	assert.Equal(t, domain.HistoryEventCheckin, entries[0].Event)
	assert.Equal(t, domain.DeviceTypeFrequentComputer, entries[0].DeviceType)
	assert.True(t, entries[0].EventDate.After(entries[1].EventDate))
}

func TestDeviceStore_CheckoutUnknown(t *testing.T) {
	s := newTestStore(t)
	err := s.CheckoutDevice(context.Background(), uuid.NewString(), time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
