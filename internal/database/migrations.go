package database

import (
	"fmt"

	"github.com/stevenovak55/bmnboston-sub004/internal/models"
)

func (d *Database) RunMigrations() error {
	err := d.orm.AutoMigrate(
		&models.Property{},
		&models.CMASession{},
		&models.ValuationHistoryRecord{},
	)
	if err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}

	// Spatial index backing the bounding-box pre-filter
	_, err = d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_properties_coordinates
		ON properties(latitude, longitude);
	`)
	if err != nil {
		return err
	}

	// Covering index for the market context aggregates
	_, err = d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_properties_market
		ON properties(city, state, status, property_type);
	`)
	if err != nil {
		return err
	}

	return nil
}
