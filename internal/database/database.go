package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/paulmach/orb"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/stevenovak55/bmnboston-sub004/internal/market"
	"github.com/stevenovak55/bmnboston-sub004/internal/models"
)

// Database wraps both access paths to the listings store: raw SQL for the
// hot read queries and gorm for writes, snapshots and migrations.
type Database struct {
	db  *sql.DB
	orm *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// WAL lets the raw and gorm connections coexist on one file.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	orm, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	return &Database{db: db, orm: orm}, nil
}

// PropertiesInBound returns listings inside the bounding box that pass
// every cheap criteria pre-filter. The precise radius check happens in the
// selector; this query only has to not miss anything.
func (d *Database) PropertiesInBound(ctx context.Context, bound orb.Bound, subject models.SubjectProperty, f models.FilterCriteria) ([]models.Property, error) {
	query := `
        SELECT
            id, listing_id, street, city, state, postal_code, property_type,
            status, price, close_price, beds, baths, living_area, lot_size,
            year_built, garage_spaces, pool, waterfront, road_type,
            condition, hoa_fee, days_on_market, list_date, close_date,
            latitude, longitude
        FROM properties
        WHERE latitude BETWEEN ? AND ?
        AND longitude BETWEEN ? AND ?
        AND listing_id != ?
    `
	args := []interface{}{
		bound.Min[1], bound.Max[1],
		bound.Min[0], bound.Max[0],
		subject.ListingID,
	}

	if len(f.Statuses) > 0 {
		placeholders := strings.Repeat("?,", len(f.Statuses))
		query += " AND status IN (" + placeholders[:len(placeholders)-1] + ")"
		for _, s := range f.Statuses {
			args = append(args, s)
		}
	}

	// Closed listings age out by close date, everything else by list date.
	lookback := time.Now().AddDate(0, -f.LookbackMonths, 0).Format("2006-01-02")
	query += ` AND (
        (status = 'Closed' AND close_date IS NOT NULL AND close_date >= ?)
        OR (status != 'Closed' AND (list_date IS NULL OR list_date >= ?))
    )`
	args = append(args, lookback, lookback)

	if f.SamePropertyType && subject.PropertyType != "" {
		query += " AND property_type = ?"
		args = append(args, subject.PropertyType)
	}
	if f.MinBeds > 0 {
		query += " AND beds >= ?"
		args = append(args, f.MinBeds)
	}
	if f.MaxBeds > 0 {
		query += " AND beds <= ?"
		args = append(args, f.MaxBeds)
	}
	if f.ExactBeds {
		query += " AND beds = ?"
		args = append(args, subject.Beds)
	}
	if f.MinBaths > 0 {
		query += " AND baths >= ?"
		args = append(args, f.MinBaths)
	}
	if f.MaxBaths > 0 {
		query += " AND baths <= ?"
		args = append(args, f.MaxBaths)
	}
	if f.ExactBaths {
		query += " AND baths = ?"
		args = append(args, subject.Baths)
	}
	if f.MinGarage > 0 {
		query += " AND garage_spaces >= ?"
		args = append(args, f.MinGarage)
	}
	if f.MaxGarage > 0 {
		query += " AND garage_spaces <= ?"
		args = append(args, f.MaxGarage)
	}
	if f.MinLotSize > 0 {
		query += " AND lot_size >= ?"
		args = append(args, f.MinLotSize)
	}
	if f.MaxLotSize > 0 {
		query += " AND lot_size <= ?"
		args = append(args, f.MaxLotSize)
	}
	if f.MaxDaysOnMarket > 0 {
		query += " AND (days_on_market IS NULL OR days_on_market <= ?)"
		args = append(args, f.MaxDaysOnMarket)
	}
	if f.MinHOA > 0 {
		query += " AND hoa_fee >= ?"
		args = append(args, f.MinHOA)
	}
	if f.MaxHOA > 0 {
		query += " AND (hoa_fee IS NULL OR hoa_fee <= ?)"
		args = append(args, f.MaxHOA)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var properties []models.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		properties = append(properties, p)
	}
	return properties, rows.Err()
}

func scanProperty(rows *sql.Rows) (models.Property, error) {
	var p models.Property
	var street, city, state, postalCode, propertyType, status, roadType, condition sql.NullString
	var closePrice, livingArea, lotSize, yearBuilt, garageSpaces, hoaFee, dom sql.NullInt64
	var pool, waterfront sql.NullBool
	var listDate, closeDate sql.NullString
	var latitude, longitude sql.NullFloat64

	err := rows.Scan(
		&p.ID, &p.ListingID, &street, &city, &state, &postalCode,
		&propertyType, &status, &p.Price, &closePrice, &p.Beds, &p.Baths,
		&livingArea, &lotSize, &yearBuilt, &garageSpaces, &pool,
		&waterfront, &roadType, &condition, &hoaFee, &dom,
		&listDate, &closeDate, &latitude, &longitude,
	)
	if err != nil {
		return p, err
	}

	p.Street = street.String
	p.City = city.String
	p.State = state.String
	p.PostalCode = postalCode.String
	p.PropertyType = propertyType.String
	p.Status = status.String
	p.RoadType = roadType.String
	p.Condition = condition.String
	p.Pool = pool.Valid && pool.Bool
	p.Waterfront = waterfront.Valid && waterfront.Bool

	if closePrice.Valid {
		v := int(closePrice.Int64)
		p.ClosePrice = &v
	}
	if livingArea.Valid {
		v := int(livingArea.Int64)
		p.LivingArea = &v
	}
	if lotSize.Valid {
		v := int(lotSize.Int64)
		p.LotSize = &v
	}
	if yearBuilt.Valid {
		v := int(yearBuilt.Int64)
		p.YearBuilt = &v
	}
	if garageSpaces.Valid {
		v := int(garageSpaces.Int64)
		p.GarageSpaces = &v
	}
	if hoaFee.Valid {
		v := int(hoaFee.Int64)
		p.HOAFee = &v
	}
	if dom.Valid {
		v := int(dom.Int64)
		p.DaysOnMarket = &v
	}
	if latitude.Valid {
		v := latitude.Float64
		p.Latitude = &v
	}
	if longitude.Valid {
		v := longitude.Float64
		p.Longitude = &v
	}
	if listDate.Valid && listDate.String != "" {
		if t, err := parseDate(listDate.String); err == nil {
			p.ListDate = &t
		}
	}
	if closeDate.Valid && closeDate.String != "" {
		if t, err := parseDate(closeDate.String); err == nil {
			p.CloseDate = &t
		}
	}
	return p, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %s", s)
}

// MarketSnapshot aggregates the raw inputs for the market context
// calculator over one geography and property type.
func (d *Database) MarketSnapshot(ctx context.Context, cities []string, state, propertyType string, lookbackMonths int) (market.Snapshot, error) {
	snap := market.Snapshot{LookbackMonths: lookbackMonths}
	if len(cities) == 0 {
		return snap, nil
	}

	cityPlaceholders := strings.Repeat("LOWER(?),", len(cities))
	cityClause := " AND LOWER(city) IN (" + cityPlaceholders[:len(cityPlaceholders)-1] + ")"
	cityArgs := make([]interface{}, 0, len(cities))
	for _, c := range cities {
		cityArgs = append(cityArgs, c)
	}

	typeClause := ""
	if propertyType != "" {
		typeClause = " AND property_type = ?"
	}

	lookback := time.Now().AddDate(0, -lookbackMonths, 0).Format("2006-01-02")

	closedQuery := `
        SELECT COALESCE(close_price, price), days_on_market
        FROM properties
        WHERE status = 'Closed'
        AND close_date IS NOT NULL
        AND close_date >= ?
        AND (? = '' OR LOWER(state) = LOWER(?))
    ` + cityClause + typeClause
	closedArgs := append([]interface{}{lookback, state, state}, cityArgs...)
	if propertyType != "" {
		closedArgs = append(closedArgs, propertyType)
	}

	rows, err := d.db.QueryContext(ctx, closedQuery, closedArgs...)
	if err != nil {
		return snap, err
	}
	defer rows.Close()

	for rows.Next() {
		var price sql.NullInt64
		var dom sql.NullInt64
		if err := rows.Scan(&price, &dom); err != nil {
			return snap, err
		}
		if price.Valid && price.Int64 > 0 {
			snap.ClosedPrices = append(snap.ClosedPrices, float64(price.Int64))
		}
		if dom.Valid {
			snap.DaysOnMarket = append(snap.DaysOnMarket, float64(dom.Int64))
		}
		snap.ClosedSales++
	}
	if err := rows.Err(); err != nil {
		return snap, err
	}

	activeQuery := `
        SELECT COUNT(*)
        FROM properties
        WHERE status IN ('Active', 'Active Under Contract', 'Pending', 'Coming Soon')
        AND (? = '' OR LOWER(state) = LOWER(?))
    ` + cityClause + typeClause
	activeArgs := append([]interface{}{state, state}, cityArgs...)
	if propertyType != "" {
		activeArgs = append(activeArgs, propertyType)
	}

	if err := d.db.QueryRowContext(ctx, activeQuery, activeArgs...).Scan(&snap.ActiveListings); err != nil {
		return snap, err
	}
	return snap, nil
}

// UpsertProperties inserts or replaces a batch of listings inside an open
// gorm transaction, keyed by listing id.
func UpsertProperties(tx *gorm.DB, batch []*models.Property) error {
	if len(batch) == 0 {
		return nil
	}
	for _, p := range batch {
		var existing models.Property
		err := tx.Where("listing_id = ?", p.ListingID).First(&existing).Error
		switch {
		case err == nil:
			p.ID = existing.ID
			p.CreatedAt = existing.CreatedAt
			if err := tx.Save(p).Error; err != nil {
				return fmt.Errorf("failed to update listing %s: %w", p.ListingID, err)
			}
		case err == gorm.ErrRecordNotFound:
			if err := tx.Create(p).Error; err != nil {
				return fmt.Errorf("failed to insert listing %s: %w", p.ListingID, err)
			}
		default:
			return fmt.Errorf("failed to look up listing %s: %w", p.ListingID, err)
		}
	}
	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) GetDB() *sql.DB {
	return d.db
}

func (d *Database) GetORM() *gorm.DB {
	return d.orm
}
