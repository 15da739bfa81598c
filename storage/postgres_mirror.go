package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"rental-price-tracker/models"
	"rental-price-tracker/utils"

	_ "github.com/lib/pq"
)

// PostgresMirror pushes the local registry to a PostgreSQL database that
// backs the price dashboard. The JSON file stays the system of record;
// the mirror is a read-model and every sync is safe to repeat.
type PostgresMirror struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewPostgresMirror creates a new PostgresMirror and pings the DB
func NewPostgresMirror(connStr string, logger *utils.Logger) (*PostgresMirror, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open DB: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Minute * 5)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	logger.Info("Connected to PostgreSQL mirror")
	return &PostgresMirror{db: db, logger: logger}, nil
}

// CreateTables creates the mirror schema if it doesn't exist
func (m *PostgresMirror) CreateTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS bookings (
		id                 TEXT PRIMARY KEY,
		location           VARCHAR(10)  NOT NULL,
		location_full_name TEXT,
		pickup_date        VARCHAR(10)  NOT NULL,
		dropoff_date       VARCHAR(10)  NOT NULL,
		pickup_time        VARCHAR(10),
		dropoff_time       VARCHAR(10),
		focus_category     TEXT         NOT NULL,
		holding_price      NUMERIC(10,2),
		active             BOOLEAN      NOT NULL DEFAULT TRUE,
		created_at         TIMESTAMP    NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS price_histories (
		id              SERIAL PRIMARY KEY,
		booking_id      TEXT NOT NULL REFERENCES bookings (id) ON DELETE CASCADE,
		observed_at     TIMESTAMP NOT NULL,
		prices          JSONB NOT NULL,
		lowest_category TEXT,
		lowest_price    NUMERIC(10,2),
		UNIQUE (booking_id, observed_at)
	);

	CREATE TABLE IF NOT EXISTS holding_price_histories (
		id             SERIAL PRIMARY KEY,
		booking_id     TEXT NOT NULL REFERENCES bookings (id) ON DELETE CASCADE,
		price          NUMERIC(10,2) NOT NULL,
		effective_from TIMESTAMP NOT NULL,
		effective_to   TIMESTAMP,
		UNIQUE (booking_id, effective_from)
	);

	CREATE INDEX IF NOT EXISTS idx_price_histories_booking ON price_histories (booking_id, observed_at);
	`
	_, err := m.db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create mirror tables: %w", err)
	}
	m.logger.Info("Mirror tables are ready")
	return nil
}

// Sync upserts every booking and inserts any observations and holding
// records the mirror hasn't seen yet, in a single transaction
func (m *PostgresMirror) Sync(reg *models.Registry) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	bookingStmt, err := tx.Prepare(`
		INSERT INTO bookings (id, location, location_full_name, pickup_date, dropoff_date,
		                      pickup_time, dropoff_time, focus_category, holding_price, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE
		SET holding_price = EXCLUDED.holding_price,
		    active        = EXCLUDED.active
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare booking upsert: %w", err)
	}
	defer bookingStmt.Close()

	obsStmt, err := tx.Prepare(`
		INSERT INTO price_histories (booking_id, observed_at, prices, lowest_category, lowest_price)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (booking_id, observed_at) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare observation insert: %w", err)
	}
	defer obsStmt.Close()

	holdingStmt, err := tx.Prepare(`
		INSERT INTO holding_price_histories (booking_id, price, effective_from, effective_to)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (booking_id, effective_from) DO UPDATE
		SET effective_to = EXCLUDED.effective_to
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare holding insert: %w", err)
	}
	defer holdingStmt.Close()

	synced := 0
	for id, booking := range reg.Bookings {
		_, err = bookingStmt.Exec(
			id,
			booking.Location,
			booking.LocationFullName,
			booking.PickupDate,
			booking.DropoffDate,
			booking.PickupTime,
			booking.DropoffTime,
			booking.FocusCategory,
			booking.HoldingPrice,
			reg.IsActive(id),
			booking.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert booking %s: %w", id, err)
		}

		for i := range booking.PriceHistory {
			obs := &booking.PriceHistory[i]
			var pricesJSON []byte
			pricesJSON, err = json.Marshal(obs.Prices)
			if err != nil {
				return fmt.Errorf("failed to encode prices for %s: %w", id, err)
			}
			var lowestCat sql.NullString
			var lowestPrice sql.NullFloat64
			if obs.LowestPrice != nil {
				lowestCat = sql.NullString{String: obs.LowestPrice.Category, Valid: true}
				lowestPrice = sql.NullFloat64{Float64: obs.LowestPrice.Price, Valid: true}
			}
			if _, err = obsStmt.Exec(id, obs.Timestamp, pricesJSON, lowestCat, lowestPrice); err != nil {
				return fmt.Errorf("failed to insert observation for %s: %w", id, err)
			}
		}

		for _, rec := range booking.HoldingHistory {
			if _, err = holdingStmt.Exec(id, rec.Price, rec.EffectiveFrom, rec.EffectiveTo); err != nil {
				return fmt.Errorf("failed to insert holding record for %s: %w", id, err)
			}
		}
		synced++
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sync: %w", err)
	}

	m.logger.Info("Synced %d bookings to PostgreSQL", synced)
	return nil
}

// Close closes the database connection
func (m *PostgresMirror) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
