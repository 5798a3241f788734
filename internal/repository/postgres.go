package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/kashyap0729/good-will-hunting/internal/database"
	"github.com/kashyap0729/good-will-hunting/internal/model"
)

// PostgresDonationRepository is the PostgreSQL DonationStore. Donor and
// location rows are locked with SELECT ... FOR UPDATE when loaded, so
// concurrent units of work on the same donor or location queue behind
// each other; serialization and deadlock failures surface as
// database.ErrConflict.
type PostgresDonationRepository struct {
	db *sql.DB
}

// NewPostgresDonationRepository creates a repository on an open pool
func NewPostgresDonationRepository(db *sql.DB) *PostgresDonationRepository {
	return &PostgresDonationRepository{db: db}
}

// WithinTx implements DonationStore
func (r *PostgresDonationRepository) WithinTx(ctx context.Context, fn func(tx DonationTx) error) error {
	sqlTx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return database.ClassifyPostgresError(err)
	}

	if err := fn(&postgresTx{ctx: ctx, tx: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return database.ClassifyPostgresError(err)
	}
	return nil
}

type postgresTx struct {
	ctx context.Context
	tx  *sql.Tx
}

const donorColumns = `id, display_name, total_points, tier, donation_count, items_donated,
	missing_item_donations, streak_days, last_active_on, achievements, active, version,
	created_on, updated_on`

func scanUser(scan func(dest ...interface{}) error) (*model.User, error) {
	var u model.User
	if err := scan(&u.ID, &u.DisplayName, &u.TotalPoints, &u.Tier, &u.DonationCount, &u.ItemsDonated,
		&u.MissingItemDonations, &u.StreakDays, &u.LastActiveOn, pq.Array(&u.Achievements), &u.Active,
		&u.Version, &u.CreatedOn, &u.UpdatedOn); err != nil {
		return nil, err
	}
	return &u, nil
}

func (t *postgresTx) LoadUser(id string) (*model.User, error) {
	row := t.tx.QueryRowContext(t.ctx, `SELECT `+donorColumns+` FROM donors WHERE id = $1 FOR UPDATE`, id)
	u, err := scanUser(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, database.ClassifyPostgresError(err)
	}
	return u, nil
}

const locationColumns = `id, name, address, latitude, longitude, leader_id, leader_points, version, created_on, updated_on`

func scanLocation(scan func(dest ...interface{}) error) (*model.StorageLocation, error) {
	var (
		l      model.StorageLocation
		leader sql.NullString
	)
	if err := scan(&l.ID, &l.Name, &l.Address, &l.Latitude, &l.Longitude, &leader, &l.LeaderPoints,
		&l.Version, &l.CreatedOn, &l.UpdatedOn); err != nil {
		return nil, err
	}
	if leader.Valid {
		l.LeaderID = &leader.String
	}
	return &l, nil
}

func (t *postgresTx) LoadLocation(id string) (*model.StorageLocation, error) {
	row := t.tx.QueryRowContext(t.ctx, `SELECT `+locationColumns+` FROM storage_locations WHERE id = $1 FOR UPDATE`, id)
	l, err := scanLocation(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, database.ClassifyPostgresError(err)
	}
	return l, nil
}

func (t *postgresTx) LoadCatalogEntry(itemType string) (*model.ItemCatalogEntry, error) {
	row := t.tx.QueryRowContext(t.ctx, `
		SELECT item_type, category, base_points, demand_multiplier, description
		FROM item_catalog
		WHERE item_key = $1
	`, model.ItemKey(itemType))

	var (
		e    model.ItemCatalogEntry
		mult decimal.Decimal
	)
	err := row.Scan(&e.ItemType, &e.Category, &e.BasePoints, &mult, &e.Description)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, database.ClassifyPostgresError(err)
	}
	e.DemandMultiplier = mult.InexactFloat64()
	return &e, nil
}

func (t *postgresTx) ListUnfulfilledMissingRequests(locationID, itemType string) ([]*model.MissingItemRequest, error) {
	query := `
		SELECT id, location_id, item_type, urgency, outstanding_quantity, bonus_points, fulfilled, created_on, fulfilled_on
		FROM missing_item_requests
		WHERE location_id = $1 AND NOT fulfilled`
	args := []interface{}{locationID}
	if key := model.ItemKey(itemType); key != "" {
		query += ` AND item_key = $2`
		args = append(args, key)
	}
	query += ` ORDER BY created_on FOR UPDATE`

	rows, err := t.tx.QueryContext(t.ctx, query, args...)
	if err != nil {
		return nil, database.ClassifyPostgresError(err)
	}
	defer rows.Close()

	var out []*model.MissingItemRequest
	for rows.Next() {
		var (
			m           model.MissingItemRequest
			fulfilledOn sql.NullTime
		)
		if err := rows.Scan(&m.ID, &m.LocationID, &m.ItemType, &m.Urgency, &m.OutstandingQuantity,
			&m.BonusPoints, &m.Fulfilled, &m.CreatedOn, &fulfilledOn); err != nil {
			return nil, database.ClassifyPostgresError(err)
		}
		if fulfilledOn.Valid {
			m.FulfilledOn = &fulfilledOn.Time
		}
		out = append(out, &m)
	}
	return out, database.ClassifyPostgresError(rows.Err())
}

func (t *postgresTx) AppendDonation(d *model.Donation) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO donations (id, user_id, location_id, item_type, quantity, points_awarded, bonus_points, missing_item_bonus, created_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, d.ID, d.UserID, d.LocationID, d.ItemType, d.Quantity, d.PointsAwarded, d.BonusPoints, d.MissingItemBonusApplied, d.CreatedOn)
	return database.ClassifyPostgresError(err)
}

func (t *postgresTx) SaveUser(u *model.User) error {
	achievements := u.Achievements
	if achievements == nil {
		achievements = []string{}
	}
	res, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO donors (`+donorColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::bigint + 1, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			total_points = EXCLUDED.total_points,
			tier = EXCLUDED.tier,
			donation_count = EXCLUDED.donation_count,
			items_donated = EXCLUDED.items_donated,
			missing_item_donations = EXCLUDED.missing_item_donations,
			streak_days = EXCLUDED.streak_days,
			last_active_on = EXCLUDED.last_active_on,
			achievements = EXCLUDED.achievements,
			active = EXCLUDED.active,
			version = donors.version + 1,
			updated_on = EXCLUDED.updated_on
		WHERE donors.version = $12
	`, u.ID, u.DisplayName, u.TotalPoints, u.Tier, u.DonationCount, u.ItemsDonated, u.MissingItemDonations,
		u.StreakDays, u.LastActiveOn, pq.Array(achievements), u.Active, u.Version, u.CreatedOn, u.UpdatedOn)
	return versionedWrite("donor", u.ID, res, err)
}

func (t *postgresTx) SaveLocation(l *model.StorageLocation) error {
	var leader sql.NullString
	if l.LeaderID != nil {
		leader = sql.NullString{String: *l.LeaderID, Valid: true}
	}
	res, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO storage_locations (`+locationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::bigint + 1, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			address = EXCLUDED.address,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			leader_id = EXCLUDED.leader_id,
			leader_points = EXCLUDED.leader_points,
			version = storage_locations.version + 1,
			updated_on = EXCLUDED.updated_on
		WHERE storage_locations.version = $8
	`, l.ID, l.Name, l.Address, l.Latitude, l.Longitude, leader, l.LeaderPoints, l.Version, l.CreatedOn, l.UpdatedOn)
	return versionedWrite("location", l.ID, res, err)
}

func versionedWrite(kind, id string, res sql.Result, err error) error {
	if err != nil {
		return database.ClassifyPostgresError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return database.ClassifyPostgresError(err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s changed concurrently", database.ErrConflict, kind, id)
	}
	return nil
}

func (t *postgresTx) SaveCatalogEntry(e *model.ItemCatalogEntry) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO item_catalog (item_key, item_type, category, base_points, demand_multiplier, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (item_key) DO UPDATE SET
			item_type = EXCLUDED.item_type,
			category = EXCLUDED.category,
			base_points = EXCLUDED.base_points,
			demand_multiplier = EXCLUDED.demand_multiplier,
			description = EXCLUDED.description
	`, model.ItemKey(e.ItemType), e.ItemType, e.Category, e.BasePoints, decimal.NewFromFloat(e.DemandMultiplier), e.Description)
	return database.ClassifyPostgresError(err)
}

func (t *postgresTx) SaveMissingRequest(m *model.MissingItemRequest) error {
	var fulfilledOn sql.NullTime
	if m.FulfilledOn != nil {
		fulfilledOn = sql.NullTime{Time: *m.FulfilledOn, Valid: true}
	}
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO missing_item_requests (id, location_id, item_key, item_type, urgency, outstanding_quantity, bonus_points, fulfilled, created_on, fulfilled_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			urgency = EXCLUDED.urgency,
			outstanding_quantity = EXCLUDED.outstanding_quantity,
			bonus_points = EXCLUDED.bonus_points,
			fulfilled = EXCLUDED.fulfilled,
			fulfilled_on = EXCLUDED.fulfilled_on
	`, m.ID, m.LocationID, model.ItemKey(m.ItemType), m.ItemType, m.Urgency, m.OutstandingQuantity, m.BonusPoints,
		m.Fulfilled, m.CreatedOn, fulfilledOn)
	return database.ClassifyPostgresError(err)
}

func (t *postgresTx) AggregateLocationPoints(locationID string) ([]model.DonorTotal, error) {
	rows, err := t.tx.QueryContext(t.ctx, `
		SELECT user_id, SUM(points_awarded + bonus_points), COUNT(*), MAX(created_on)
		FROM donations
		WHERE location_id = $1
		GROUP BY user_id
		ORDER BY user_id
	`, locationID)
	if err != nil {
		return nil, database.ClassifyPostgresError(err)
	}
	defer rows.Close()

	var out []model.DonorTotal
	for rows.Next() {
		var dt model.DonorTotal
		if err := rows.Scan(&dt.UserID, &dt.Points, &dt.Donations, &dt.ReachedOn); err != nil {
			return nil, database.ClassifyPostgresError(err)
		}
		out = append(out, dt)
	}
	return out, database.ClassifyPostgresError(rows.Err())
}

func (t *postgresTx) ListUserDonations(userID string) ([]*model.Donation, error) {
	rows, err := t.tx.QueryContext(t.ctx, `
		SELECT id, user_id, location_id, item_type, quantity, points_awarded, bonus_points, missing_item_bonus, created_on
		FROM donations
		WHERE user_id = $1
		ORDER BY created_on
	`, userID)
	if err != nil {
		return nil, database.ClassifyPostgresError(err)
	}
	defer rows.Close()

	var out []*model.Donation
	for rows.Next() {
		var d model.Donation
		if err := rows.Scan(&d.ID, &d.UserID, &d.LocationID, &d.ItemType, &d.Quantity, &d.PointsAwarded,
			&d.BonusPoints, &d.MissingItemBonusApplied, &d.CreatedOn); err != nil {
			return nil, database.ClassifyPostgresError(err)
		}
		out = append(out, &d)
	}
	return out, database.ClassifyPostgresError(rows.Err())
}

func (t *postgresTx) ListLocations() ([]*model.StorageLocation, error) {
	rows, err := t.tx.QueryContext(t.ctx, `SELECT `+locationColumns+` FROM storage_locations ORDER BY id`)
	if err != nil {
		return nil, database.ClassifyPostgresError(err)
	}
	defer rows.Close()

	var out []*model.StorageLocation
	for rows.Next() {
		l, err := scanLocation(rows.Scan)
		if err != nil {
			return nil, database.ClassifyPostgresError(err)
		}
		out = append(out, l)
	}
	return out, database.ClassifyPostgresError(rows.Err())
}

func (t *postgresTx) ListUsers() ([]*model.User, error) {
	rows, err := t.tx.QueryContext(t.ctx, `SELECT `+donorColumns+` FROM donors ORDER BY id`)
	if err != nil {
		return nil, database.ClassifyPostgresError(err)
	}
	defer rows.Close()

	var out []*model.User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, database.ClassifyPostgresError(err)
		}
		out = append(out, u)
	}
	return out, database.ClassifyPostgresError(rows.Err())
}

func (t *postgresTx) LedgerSummary() (model.LedgerSummary, error) {
	var sum model.LedgerSummary
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT COUNT(*), COALESCE(SUM(points_awarded + bonus_points), 0), COALESCE(SUM(quantity), 0)
		FROM donations
	`).Scan(&sum.Donations, &sum.Points, &sum.Items)
	if err != nil {
		return model.LedgerSummary{}, database.ClassifyPostgresError(err)
	}
	return sum, nil
}
