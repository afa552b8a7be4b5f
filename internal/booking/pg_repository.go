package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"
const pgExclusionViolation = "23P01"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const bookingColumns = `
	id, customer_id, vendor_id, service_date, start_minutes, end_minutes,
	status, line_items, pricing, payment, cancellation, history,
	version, created_at, updated_at
`

// Helpers

func scanBooking(row pgx.Row) (*Booking, error) {
	var (
		b            Booking
		startMinutes int
		endMinutes   int
		lineItems    []byte
		pricing      []byte
		payment      []byte
		cancellation []byte
		history      []byte
	)

	err := row.Scan(
		&b.ID,
		&b.CustomerID,
		&b.VendorID,
		&b.ServiceDate,
		&startMinutes,
		&endMinutes,
		&b.Status,
		&lineItems,
		&pricing,
		&payment,
		&cancellation,
		&history,
		&b.Version,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	b.Slot = TimeSlot{Start: TimeOfDay(startMinutes), End: TimeOfDay(endMinutes)}
	b.ServiceDate = dateOnly(b.ServiceDate.UTC())

	if err := json.Unmarshal(lineItems, &b.LineItems); err != nil {
		return nil, fmt.Errorf("decode line items: %w", err)
	}
	if err := json.Unmarshal(pricing, &b.Pricing); err != nil {
		return nil, fmt.Errorf("decode pricing: %w", err)
	}
	if err := json.Unmarshal(payment, &b.Payment); err != nil {
		return nil, fmt.Errorf("decode payment: %w", err)
	}
	if cancellation != nil {
		b.Cancellation = &CancellationInfo{}
		if err := json.Unmarshal(cancellation, b.Cancellation); err != nil {
			return nil, fmt.Errorf("decode cancellation: %w", err)
		}
	}
	if err := json.Unmarshal(history, &b.History); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}

	return &b, nil
}

func encodeBooking(b *Booking) (lineItems, pricing, payment, cancellation, history []byte, err error) {
	if lineItems, err = json.Marshal(b.LineItems); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("encode line items: %w", err)
	}
	if pricing, err = json.Marshal(b.Pricing); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("encode pricing: %w", err)
	}
	if payment, err = json.Marshal(b.Payment); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("encode payment: %w", err)
	}
	if b.Cancellation != nil {
		if cancellation, err = json.Marshal(b.Cancellation); err != nil {
			return nil, nil, nil, nil, nil, fmt.Errorf("encode cancellation: %w", err)
		}
	}
	if history, err = json.Marshal(b.History); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("encode history: %w", err)
	}
	return lineItems, pricing, payment, cancellation, history, nil
}

func isSlotConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgUniqueViolation || pgErr.Code == pgExclusionViolation
}

// Interface methods

// ReserveSlot inserts the booking. The partial exclusion constraint on
// active bookings makes the insert the atomic reservation: overlapping
// writers lose with ErrSlotConflict regardless of what the pre-check saw.
func (r *PgRepository) ReserveSlot(ctx context.Context, b *Booking) (*Booking, error) {
	lineItems, pricing, payment, cancellation, history, err := encodeBooking(b)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO bookings (
			id, customer_id, vendor_id, service_date, start_minutes, end_minutes,
			status, line_items, pricing, payment, cancellation, history,
			version, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1, now(), now())
		RETURNING `+bookingColumns+`
	`,
		b.ID, b.CustomerID, b.VendorID, b.ServiceDate, int(b.Slot.Start), int(b.Slot.End),
		b.Status, lineItems, pricing, payment, cancellation, history,
	)

	created, err := scanBooking(row)
	if err != nil {
		if isSlotConflict(err) {
			return nil, ErrSlotConflict
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) Get(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
	`, id)
	return scanBooking(row)
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, expectedVersion int64, newStatus Status, entry HistoryEntry, cancellation *CancellationInfo) (*Booking, error) {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encode history entry: %w", err)
	}

	var cancellationJSON []byte
	if cancellation != nil {
		if cancellationJSON, err = json.Marshal(cancellation); err != nil {
			return nil, fmt.Errorf("encode cancellation: %w", err)
		}
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE bookings
		SET status = $2,
		    history = history || $3::jsonb,
		    cancellation = $4,
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1
		  AND version = $5
		RETURNING `+bookingColumns+`
	`, id, newStatus, entryJSON, cancellationJSON, expectedVersion)

	updated, err := scanBooking(row)
	if err != nil {
		if isSlotConflict(err) {
			// Admin reopen of a cancelled booking can collide with a newer
			// active booking on the same slot.
			return nil, ErrSlotConflict
		}
		if !errors.Is(err, ErrBookingNotFound) {
			return nil, err
		}
		// No row matched: distinguish a missing booking from a lost
		// version race.
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrStaleBooking
	}
	return updated, nil
}

func (r *PgRepository) SetPayment(ctx context.Context, id uuid.UUID, payment PaymentInfo) error {
	paymentJSON, err := json.Marshal(payment)
	if err != nil {
		return fmt.Errorf("encode payment: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE bookings
		SET payment = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, paymentJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func (r *PgRepository) ListActiveByVendorAndDate(ctx context.Context, vendorID uuid.UUID, date time.Time) ([]*Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE vendor_id = $1
		  AND service_date = $2
		  AND status IN ('pending_approval', 'confirmed', 'in_progress')
		ORDER BY start_minutes
	`, vendorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) HasBookingsByCustomer(ctx context.Context, customerID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings WHERE customer_id = $1
		)
	`, customerID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
