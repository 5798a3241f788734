package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/kashyap0729/good-will-hunting/internal/database"
	"github.com/kashyap0729/good-will-hunting/internal/model"
)

// DonationRepository is the SurrealDB DonationStore.
//
// Reads go straight to the database; writes are staged and sent as one
// BEGIN/COMMIT batch. Donor and location writes carry a version guard, so
// a batch built on stale reads throws version_conflict and nothing from it
// is applied.
type DonationRepository struct {
	db database.Database
}

// NewDonationRepository creates a new SurrealDB donation repository
func NewDonationRepository(db database.Database) *DonationRepository {
	return &DonationRepository{db: db}
}

// WithinTx implements DonationStore
func (r *DonationRepository) WithinTx(ctx context.Context, fn func(tx DonationTx) error) error {
	tx := &surrealTx{
		db:        r.db,
		ctx:       ctx,
		users:     make(map[string]*model.User),
		locations: make(map[string]*model.StorageLocation),
		catalog:   make(map[string]*model.ItemCatalogEntry),
		requests:  make(map[string]*model.MissingItemRequest),
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

type surrealTx struct {
	db  database.Database
	ctx context.Context

	users     map[string]*model.User
	userOrder []string
	locations map[string]*model.StorageLocation
	locOrder  []string
	catalog   map[string]*model.ItemCatalogEntry
	requests  map[string]*model.MissingItemRequest
	donations []*model.Donation
}

func (t *surrealTx) queryRecords(query string, vars map[string]interface{}) ([]map[string]interface{}, error) {
	results, err := t.db.Query(t.ctx, query, vars)
	if err != nil {
		return nil, err
	}
	return recordMaps(database.StatementRecords(results, 0)), nil
}

func (t *surrealTx) queryOne(query string, vars map[string]interface{}) (map[string]interface{}, error) {
	result, err := t.db.QueryOne(t.ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	data, _ := result.(map[string]interface{})
	return data, nil
}

func (t *surrealTx) LoadUser(id string) (*model.User, error) {
	if u, ok := t.users[id]; ok {
		return u.Clone(), nil
	}
	data, err := t.queryOne(`SELECT * FROM type::thing("donor", $id)`, map[string]interface{}{"id": id})
	if err != nil || data == nil {
		return nil, err
	}
	return parseUser(data), nil
}

func (t *surrealTx) LoadLocation(id string) (*model.StorageLocation, error) {
	if l, ok := t.locations[id]; ok {
		return l.Clone(), nil
	}
	data, err := t.queryOne(`SELECT * FROM type::thing("storage_location", $id)`, map[string]interface{}{"id": id})
	if err != nil || data == nil {
		return nil, err
	}
	return parseLocation(data), nil
}

func (t *surrealTx) LoadCatalogEntry(itemType string) (*model.ItemCatalogEntry, error) {
	key := model.ItemKey(itemType)
	if e, ok := t.catalog[key]; ok {
		c := *e
		return &c, nil
	}
	data, err := t.queryOne(`SELECT * FROM type::thing("item_catalog", $key)`, map[string]interface{}{"key": key})
	if err != nil || data == nil {
		return nil, err
	}
	return parseCatalogEntry(data), nil
}

func (t *surrealTx) ListUnfulfilledMissingRequests(locationID, itemType string) ([]*model.MissingItemRequest, error) {
	key := model.ItemKey(itemType)
	query := `SELECT * FROM missing_item_request WHERE location_id = $location_id AND fulfilled = false`
	vars := map[string]interface{}{"location_id": locationID}
	if key != "" {
		query += ` AND item_key = $item_key`
		vars["item_key"] = key
	}
	query += ` ORDER BY created_on ASC`

	rows, err := t.queryRecords(query, vars)
	if err != nil {
		return nil, err
	}

	var out []*model.MissingItemRequest
	for _, row := range rows {
		m := parseMissingRequest(row)
		if _, staged := t.requests[m.ID]; staged {
			continue
		}
		out = append(out, m)
	}
	for _, m := range t.requests {
		if m.LocationID == locationID && !m.Fulfilled && (key == "" || model.ItemKey(m.ItemType) == key) {
			out = append(out, m.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedOn.Before(out[j].CreatedOn) })
	return out, nil
}

func (t *surrealTx) AppendDonation(d *model.Donation) error {
	if d.ID == "" {
		return fmt.Errorf("%w: donation id required", database.ErrQuery)
	}
	c := *d
	t.donations = append(t.donations, &c)
	return nil
}

func (t *surrealTx) SaveUser(u *model.User) error {
	if _, ok := t.users[u.ID]; !ok {
		t.userOrder = append(t.userOrder, u.ID)
	}
	t.users[u.ID] = u.Clone()
	return nil
}

func (t *surrealTx) SaveLocation(l *model.StorageLocation) error {
	if _, ok := t.locations[l.ID]; !ok {
		t.locOrder = append(t.locOrder, l.ID)
	}
	t.locations[l.ID] = l.Clone()
	return nil
}

func (t *surrealTx) SaveCatalogEntry(e *model.ItemCatalogEntry) error {
	c := *e
	t.catalog[model.ItemKey(e.ItemType)] = &c
	return nil
}

func (t *surrealTx) SaveMissingRequest(m *model.MissingItemRequest) error {
	if m.ID == "" {
		return fmt.Errorf("%w: missing item request id required", database.ErrQuery)
	}
	t.requests[m.ID] = m.Clone()
	return nil
}

func (t *surrealTx) AggregateLocationPoints(locationID string) ([]model.DonorTotal, error) {
	query := `
		SELECT user_id,
			math::sum(total_points) AS points,
			count() AS donations,
			time::max(created_on) AS reached_on
		FROM donation
		WHERE location_id = $location_id
		GROUP BY user_id
	`
	rows, err := t.queryRecords(query, map[string]interface{}{"location_id": locationID})
	if err != nil {
		return nil, err
	}

	totals := make(map[string]*model.DonorTotal, len(rows))
	for _, row := range rows {
		dt := &model.DonorTotal{
			UserID:    getString(row, "user_id"),
			Points:    getInt(row, "points"),
			Donations: getInt(row, "donations"),
			ReachedOn: getTimeValue(row, "reached_on"),
		}
		totals[dt.UserID] = dt
	}
	for _, d := range t.donations {
		if d.LocationID != locationID {
			continue
		}
		dt, ok := totals[d.UserID]
		if !ok {
			dt = &model.DonorTotal{UserID: d.UserID}
			totals[d.UserID] = dt
		}
		dt.Points += d.TotalPoints()
		dt.Donations++
		if d.CreatedOn.After(dt.ReachedOn) {
			dt.ReachedOn = d.CreatedOn
		}
	}

	out := make([]model.DonorTotal, 0, len(totals))
	for _, dt := range totals {
		out = append(out, *dt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (t *surrealTx) ListUserDonations(userID string) ([]*model.Donation, error) {
	rows, err := t.queryRecords(
		`SELECT * FROM donation WHERE user_id = $user_id ORDER BY created_on ASC`,
		map[string]interface{}{"user_id": userID},
	)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Donation, 0, len(rows))
	for _, row := range rows {
		out = append(out, parseDonation(row))
	}
	for _, d := range t.donations {
		if d.UserID == userID {
			c := *d
			out = append(out, &c)
		}
	}
	return out, nil
}

func (t *surrealTx) ListLocations() ([]*model.StorageLocation, error) {
	rows, err := t.queryRecords(`SELECT * FROM storage_location ORDER BY uid ASC`, nil)
	if err != nil {
		return nil, err
	}
	out := make([]*model.StorageLocation, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		l := parseLocation(row)
		if staged, ok := t.locations[l.ID]; ok {
			l = staged.Clone()
		}
		seen[l.ID] = true
		out = append(out, l)
	}
	for _, id := range t.locOrder {
		if !seen[id] {
			out = append(out, t.locations[id].Clone())
		}
	}
	return out, nil
}

func (t *surrealTx) ListUsers() ([]*model.User, error) {
	rows, err := t.queryRecords(`SELECT * FROM donor ORDER BY uid ASC`, nil)
	if err != nil {
		return nil, err
	}
	out := make([]*model.User, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		u := parseUser(row)
		if staged, ok := t.users[u.ID]; ok {
			u = staged.Clone()
		}
		seen[u.ID] = true
		out = append(out, u)
	}
	for _, id := range t.userOrder {
		if !seen[id] {
			out = append(out, t.users[id].Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *surrealTx) LedgerSummary() (model.LedgerSummary, error) {
	query := `
		SELECT count() AS donations,
			math::sum(total_points) AS points,
			math::sum(quantity) AS items
		FROM donation
		GROUP ALL
	`
	rows, err := t.queryRecords(query, nil)
	if err != nil {
		return model.LedgerSummary{}, err
	}

	var sum model.LedgerSummary
	if len(rows) > 0 {
		sum.Donations = getInt(rows[0], "donations")
		sum.Points = getInt(rows[0], "points")
		sum.Items = getInt(rows[0], "items")
	}
	for _, d := range t.donations {
		sum.Donations++
		sum.Points += d.TotalPoints()
		sum.Items += d.Quantity
	}
	return sum, nil
}

const versionGuard = `LET $current = (SELECT VALUE version FROM type::thing(%q, $id))[0] ?? 0;
IF $current != $expected { THROW %q };
UPSERT type::thing(%q, $id) CONTENT $data`

func (t *surrealTx) commit() error {
	tb := database.NewTxBuilder()

	for _, id := range t.userOrder {
		u := t.users[id]
		tb.Add(fmt.Sprintf(versionGuard, "donor", database.ConflictMarker, "donor"), map[string]interface{}{
			"id":       u.ID,
			"expected": u.Version,
			"data":     userContent(u),
		})
	}
	for _, id := range t.locOrder {
		l := t.locations[id]
		tb.Add(fmt.Sprintf(versionGuard, "storage_location", database.ConflictMarker, "storage_location"), map[string]interface{}{
			"id":       l.ID,
			"expected": l.Version,
			"data":     locationContent(l),
		})
	}
	for _, d := range t.donations {
		tb.Add(`CREATE type::thing("donation", $id) CONTENT $data`, map[string]interface{}{
			"id":   d.ID,
			"data": donationContent(d),
		})
	}
	for key, e := range t.catalog {
		tb.Add(`UPSERT type::thing("item_catalog", $key) CONTENT $data`, map[string]interface{}{
			"key":  key,
			"data": catalogContent(e),
		})
	}
	for _, m := range t.requests {
		tb.Add(`UPSERT type::thing("missing_item_request", $id) CONTENT $data`, map[string]interface{}{
			"id":   m.ID,
			"data": missingRequestContent(m),
		})
	}

	if tb.Len() == 0 {
		return nil
	}
	_, err := database.ExecuteTransaction(t.ctx, t.db, tb)
	return err
}

// Record <-> content mapping

func userContent(u *model.User) map[string]interface{} {
	achievements := u.Achievements
	if achievements == nil {
		achievements = []string{}
	}
	return map[string]interface{}{
		"uid":                    u.ID,
		"display_name":           u.DisplayName,
		"total_points":           u.TotalPoints,
		"tier":                   u.Tier,
		"donation_count":         u.DonationCount,
		"items_donated":          u.ItemsDonated,
		"missing_item_donations": u.MissingItemDonations,
		"streak_days":            u.StreakDays,
		"last_active_on":         u.LastActiveOn,
		"achievements":           achievements,
		"active":                 u.Active,
		"version":                u.Version + 1,
		"created_on":             surrealTime(u.CreatedOn),
		"updated_on":             surrealTime(u.UpdatedOn),
	}
}

func parseUser(data map[string]interface{}) *model.User {
	return &model.User{
		ID:                   getString(data, "uid"),
		DisplayName:          getString(data, "display_name"),
		TotalPoints:          getInt(data, "total_points"),
		Tier:                 getString(data, "tier"),
		DonationCount:        getInt(data, "donation_count"),
		ItemsDonated:         getInt(data, "items_donated"),
		MissingItemDonations: getInt(data, "missing_item_donations"),
		StreakDays:           getInt(data, "streak_days"),
		LastActiveOn:         getString(data, "last_active_on"),
		Achievements:         getStringSlice(data, "achievements"),
		Active:               getBool(data, "active"),
		Version:              int64(getInt(data, "version")),
		CreatedOn:            getTimeValue(data, "created_on"),
		UpdatedOn:            getTimeValue(data, "updated_on"),
	}
}

func locationContent(l *model.StorageLocation) map[string]interface{} {
	content := map[string]interface{}{
		"uid":           l.ID,
		"name":          l.Name,
		"address":       l.Address,
		"latitude":      l.Latitude,
		"longitude":     l.Longitude,
		"leader_id":     nil,
		"leader_points": l.LeaderPoints,
		"version":       l.Version + 1,
		"created_on":    surrealTime(l.CreatedOn),
		"updated_on":    surrealTime(l.UpdatedOn),
	}
	if l.LeaderID != nil {
		content["leader_id"] = *l.LeaderID
	}
	return content
}

func parseLocation(data map[string]interface{}) *model.StorageLocation {
	return &model.StorageLocation{
		ID:           getString(data, "uid"),
		Name:         getString(data, "name"),
		Address:      getString(data, "address"),
		Latitude:     getFloat(data, "latitude"),
		Longitude:    getFloat(data, "longitude"),
		LeaderID:     getStringPtr(data, "leader_id"),
		LeaderPoints: getInt(data, "leader_points"),
		Version:      int64(getInt(data, "version")),
		CreatedOn:    getTimeValue(data, "created_on"),
		UpdatedOn:    getTimeValue(data, "updated_on"),
	}
}

func donationContent(d *model.Donation) map[string]interface{} {
	return map[string]interface{}{
		"uid":                d.ID,
		"user_id":            d.UserID,
		"location_id":        d.LocationID,
		"item_type":          d.ItemType,
		"quantity":           d.Quantity,
		"points_awarded":     d.PointsAwarded,
		"bonus_points":       d.BonusPoints,
		"total_points":       d.TotalPoints(),
		"missing_item_bonus": d.MissingItemBonusApplied,
		"created_on":         surrealTime(d.CreatedOn),
	}
}

func parseDonation(data map[string]interface{}) *model.Donation {
	return &model.Donation{
		ID:                      getString(data, "uid"),
		UserID:                  getString(data, "user_id"),
		LocationID:              getString(data, "location_id"),
		ItemType:                getString(data, "item_type"),
		Quantity:                getInt(data, "quantity"),
		PointsAwarded:           getInt(data, "points_awarded"),
		BonusPoints:             getInt(data, "bonus_points"),
		MissingItemBonusApplied: getBool(data, "missing_item_bonus"),
		CreatedOn:               getTimeValue(data, "created_on"),
	}
}

func catalogContent(e *model.ItemCatalogEntry) map[string]interface{} {
	return map[string]interface{}{
		"item_key":          model.ItemKey(e.ItemType),
		"item_type":         e.ItemType,
		"category":          e.Category,
		"base_points":       e.BasePoints,
		"demand_multiplier": e.DemandMultiplier,
		"description":       e.Description,
	}
}

func parseCatalogEntry(data map[string]interface{}) *model.ItemCatalogEntry {
	return &model.ItemCatalogEntry{
		ItemType:         getString(data, "item_type"),
		Category:         getString(data, "category"),
		BasePoints:       getInt(data, "base_points"),
		DemandMultiplier: getFloat(data, "demand_multiplier"),
		Description:      getString(data, "description"),
	}
}

func missingRequestContent(m *model.MissingItemRequest) map[string]interface{} {
	content := map[string]interface{}{
		"uid":                  m.ID,
		"location_id":          m.LocationID,
		"item_key":             model.ItemKey(m.ItemType),
		"item_type":            m.ItemType,
		"urgency":              m.Urgency,
		"outstanding_quantity": m.OutstandingQuantity,
		"bonus_points":         m.BonusPoints,
		"fulfilled":            m.Fulfilled,
		"created_on":           surrealTime(m.CreatedOn),
		"fulfilled_on":         nil,
	}
	if m.FulfilledOn != nil {
		content["fulfilled_on"] = surrealTime(*m.FulfilledOn)
	}
	return content
}

func parseMissingRequest(data map[string]interface{}) *model.MissingItemRequest {
	return &model.MissingItemRequest{
		ID:                  getString(data, "uid"),
		LocationID:          getString(data, "location_id"),
		ItemType:            getString(data, "item_type"),
		Urgency:             getInt(data, "urgency"),
		OutstandingQuantity: getInt(data, "outstanding_quantity"),
		BonusPoints:         getInt(data, "bonus_points"),
		Fulfilled:           getBool(data, "fulfilled"),
		CreatedOn:           getTimeValue(data, "created_on"),
		FulfilledOn:         getTime(data, "fulfilled_on"),
	}
}
