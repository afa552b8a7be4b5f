package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/localmart/booking-engine/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedVendors(context.Background(), pool, 200); err != nil {
		log.Fatalf("seed vendors: %v", err)
	}
	if err := seedCustomers(context.Background(), pool, 5000); err != nil {
		log.Fatalf("seed customers: %v", err)
	}

	log.Println("seed complete")
}

// Catalog entries per service category: name, price in minor units, minutes.
type serviceTemplate struct {
	name     string
	price    int64
	duration int
}

var serviceTemplates = []serviceTemplate{
	{"Haircut", 35_00, 30},
	{"Deep Tissue Massage", 95_00, 60},
	{"Home Cleaning", 120_00, 120},
	{"Dog Grooming", 65_00, 60},
	{"Manicure", 40_00, 45},
	{"Lawn Mowing", 55_00, 60},
	{"Personal Training", 80_00, 60},
	{"Plumbing Call-Out", 150_00, 90},
	{"Car Detailing", 110_00, 120},
	{"Piano Lesson", 70_00, 45},
}

func seedVendors(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d vendors", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Company()
		autoConfirm := gofakeit.Bool()

		_, err := tx.Exec(ctx, `
			INSERT INTO vendors (id, name, auto_confirm, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, autoConfirm)
		if err != nil {
			return err
		}

		// Open Monday through Saturday, closed Sunday.
		for weekday := 0; weekday <= 6; weekday++ {
			isOpen := weekday != 0
			openMinutes := 9 * 60
			closeMinutes := 17 * 60
			if isOpen && gofakeit.Bool() {
				openMinutes = 8 * 60
				closeMinutes = 18 * 60
			}

			_, err := tx.Exec(ctx, `
				INSERT INTO vendor_hours (vendor_id, weekday, open_minutes, close_minutes, is_open)
				VALUES ($1, $2, $3, $4, $5)
			`, id, weekday, openMinutes, closeMinutes, isOpen)
			if err != nil {
				return err
			}
		}

		serviceCount := gofakeit.Number(2, 5)
		for s := 0; s < serviceCount; s++ {
			tpl := serviceTemplates[gofakeit.Number(0, len(serviceTemplates)-1)]
			active := gofakeit.Number(0, 9) > 0 // roughly one in ten inactive

			_, err := tx.Exec(ctx, `
				INSERT INTO vendor_services (id, vendor_id, name, price, duration_minutes, active)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, uuid.New(), id, tpl.name, tpl.price, tpl.duration, active)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("vendors seeded")
	return nil
}

func seedCustomers(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d customers", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO customers (id, name, email, created_at)
				VALUES ($1, $2, $3, now())
			`, id, name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("customers seeded: %d/%d", end, count)
	}

	log.Println("customers seeded")
	return nil
}
