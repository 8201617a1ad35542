package presets

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/lib/pq"
)

// Store persists the singleton preset record
type Store interface {
	// Load returns the current values, creating the defaults on first access
	Load() (Values, error)

	// Save replaces the current values
	Save(v Values) error
}

// InMemoryStore keeps the preset record in memory
type InMemoryStore struct {
	values *Values
	mu     sync.RWMutex
}

// NewInMemoryStore creates an empty store; the first Load seeds the defaults
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Load returns the stored values
func (s *InMemoryStore) Load() (Values, error) {
	s.mu.RLock()
	if s.values != nil {
		v := *s.values
		s.mu.RUnlock()
		return v, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		d := Defaults()
		s.values = &d
	}
	return *s.values, nil
}

// Save stores v
func (s *InMemoryStore) Save(v Values) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values = &v
	return nil
}

// PostgresStore keeps the preset record in the preset_values table (row id 1)
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed preset store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const presetColumns = `default_height, default_width, default_depth, labor_rate,
	material_markup, tax_rate, delivery_fee, installation_fee, storage_fee,
	minimum_order, rush_order_fee, shipping_rate, import_tax_rate, exchange_rate`

// Load reads the singleton row, inserting the defaults if it does not exist yet
func (s *PostgresStore) Load() (Values, error) {
	d := Defaults()
	_, err := s.db.Exec(`
		INSERT INTO preset_values (id, `+presetColumns+`, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
		ON CONFLICT (id) DO NOTHING
	`, valueArgs(d)...)
	if err != nil {
		return Values{}, fmt.Errorf("failed to seed preset values: %w", err)
	}

	var v Values
	err = s.db.QueryRow(`SELECT `+presetColumns+` FROM preset_values WHERE id = 1`).Scan(
		&v.DefaultHeight,
		&v.DefaultWidth,
		&v.DefaultDepth,
		&v.LaborRate,
		&v.MaterialMarkup,
		&v.TaxRate,
		&v.DeliveryFee,
		&v.InstallationFee,
		&v.StorageFee,
		&v.MinimumOrder,
		&v.RushOrderFee,
		&v.ShippingRate,
		&v.ImportTaxRate,
		&v.ExchangeRate,
	)
	if err != nil {
		return Values{}, fmt.Errorf("failed to load preset values: %w", err)
	}

	return v, nil
}

// Save upserts the singleton row
func (s *PostgresStore) Save(v Values) error {
	_, err := s.db.Exec(`
		INSERT INTO preset_values (id, `+presetColumns+`, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
		ON CONFLICT (id) DO UPDATE SET
			default_height = EXCLUDED.default_height,
			default_width = EXCLUDED.default_width,
			default_depth = EXCLUDED.default_depth,
			labor_rate = EXCLUDED.labor_rate,
			material_markup = EXCLUDED.material_markup,
			tax_rate = EXCLUDED.tax_rate,
			delivery_fee = EXCLUDED.delivery_fee,
			installation_fee = EXCLUDED.installation_fee,
			storage_fee = EXCLUDED.storage_fee,
			minimum_order = EXCLUDED.minimum_order,
			rush_order_fee = EXCLUDED.rush_order_fee,
			shipping_rate = EXCLUDED.shipping_rate,
			import_tax_rate = EXCLUDED.import_tax_rate,
			exchange_rate = EXCLUDED.exchange_rate,
			updated_at = NOW()
	`, valueArgs(v)...)
	if err != nil {
		return fmt.Errorf("failed to save preset values: %w", err)
	}

	return nil
}

func valueArgs(v Values) []any {
	return []any{
		v.DefaultHeight, v.DefaultWidth, v.DefaultDepth, v.LaborRate,
		v.MaterialMarkup, v.TaxRate, v.DeliveryFee, v.InstallationFee, v.StorageFee,
		v.MinimumOrder, v.RushOrderFee, v.ShippingRate, v.ImportTaxRate, v.ExchangeRate,
	}
}
