package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// VacationRecord is a stored vacation with its nested entities.
type VacationRecord struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Summary   string           `json:"summary"`
	StartDate *time.Time       `json:"startDate,omitempty"`
	EndDate   *time.Time       `json:"endDate,omitempty"`
	Tags      []string         `json:"tags,omitempty"`
	Locations []LocationRecord `json:"locations,omitempty"`
	Photos    []PhotoRecord    `json:"photos,omitempty"`
}

// LocationRecord is a stored destination within a vacation.
type LocationRecord struct {
	ID         string           `json:"id"`
	VacationID string           `json:"vacationId"`
	Name       string           `json:"name"`
	Latitude   float64          `json:"latitude"`
	Longitude  float64          `json:"longitude"`
	VisitDate  *time.Time       `json:"visitDate,omitempty"`
	Summary    string           `json:"summary"`
	Position   int              `json:"position"`
	Activities []ActivityRecord `json:"activities,omitempty"`
}

// ActivityRecord is a stored activity at a location.
type ActivityRecord struct {
	ID          string     `json:"id"`
	LocationID  string     `json:"locationId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	AIGenerated bool       `json:"aiGenerated"`
	Position    int        `json:"position"`
}

// PhotoRecord is a stored photo.
type PhotoRecord struct {
	ID           string     `json:"id"`
	VacationID   string     `json:"vacationId,omitempty"`
	LocationID   string     `json:"locationId,omitempty"`
	OwnerID      string     `json:"ownerId,omitempty"`
	ImageURL     string     `json:"imageURL"`
	ThumbnailURL string     `json:"thumbnailURL,omitempty"`
	Caption      string     `json:"caption,omitempty"`
	Latitude     *float64   `json:"latitude,omitempty"`
	Longitude    *float64   `json:"longitude,omitempty"`
	TakenAt      *time.Time `json:"takenAt,omitempty"`
}

// HighlightRecord is a stored memory highlight.
type HighlightRecord struct {
	ID          string   `json:"id"`
	VacationID  string   `json:"vacationId"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	PhotoIDs    []string `json:"photoIds"`
	Confidence  float64  `json:"confidence"`
}

// VacationRepository persists the trip journal entities.
type VacationRepository struct {
	pool *Pool
}

// NewVacationRepository creates a repository on top of a pool.
func NewVacationRepository(pool *Pool) *VacationRepository {
	return &VacationRepository{pool: pool}
}

func (r *VacationRepository) CreateVacation(ctx context.Context, v *VacationRecord) error {
	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO vacations (id, title, summary, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5)
	`, v.ID, v.Title, v.Summary, v.StartDate, v.EndDate)
	if err != nil {
		return fmt.Errorf("insert vacation: %w", err)
	}
	return nil
}

func (r *VacationRepository) CreateLocation(ctx context.Context, l *LocationRecord) error {
	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO locations (id, vacation_id, name, latitude, longitude, visit_date, summary, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, l.ID, l.VacationID, l.Name, l.Latitude, l.Longitude, l.VisitDate, l.Summary, l.Position)
	if err != nil {
		return fmt.Errorf("insert location: %w", err)
	}
	return nil
}

func (r *VacationRepository) CreateActivity(ctx context.Context, a *ActivityRecord) error {
	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO activities (id, location_id, title, description, scheduled_at, ai_generated, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.LocationID, a.Title, a.Description, a.ScheduledAt, a.AIGenerated, a.Position)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (r *VacationRepository) CreatePhoto(ctx context.Context, p *PhotoRecord) error {
	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO photos (id, vacation_id, location_id, owner_id, image_url, thumbnail_url, caption, latitude, longitude, taken_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, p.ID, nullString(p.VacationID), nullString(p.LocationID), p.OwnerID,
		p.ImageURL, p.ThumbnailURL, p.Caption, p.Latitude, p.Longitude, p.TakenAt)
	if err != nil {
		return fmt.Errorf("insert photo: %w", err)
	}
	return nil
}

// GetVacation loads a vacation with its tags, locations, activities and
// photos. Returns sql.ErrNoRows when the vacation does not exist.
func (r *VacationRepository) GetVacation(ctx context.Context, id string) (*VacationRecord, error) {
	var v VacationRecord
	err := r.pool.db.QueryRowContext(ctx, `
		SELECT id, title, summary, start_date, end_date
		FROM vacations WHERE id = $1
	`, id).Scan(&v.ID, &v.Title, &v.Summary, &v.StartDate, &v.EndDate)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("query vacation: %w", err)
	}

	if v.Tags, err = r.listTags(ctx, id); err != nil {
		return nil, err
	}
	if v.Locations, err = r.listLocations(ctx, id); err != nil {
		return nil, err
	}
	if v.Photos, err = r.ListVacationPhotos(ctx, id); err != nil {
		return nil, err
	}

	return &v, nil
}

func (r *VacationRepository) listTags(ctx context.Context, vacationID string) ([]string, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT tag FROM vacation_tags WHERE vacation_id = $1 ORDER BY tag
	`, vacationID)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (r *VacationRepository) listLocations(ctx context.Context, vacationID string) ([]LocationRecord, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, vacation_id, name, latitude, longitude, visit_date, summary, position
		FROM locations WHERE vacation_id = $1 ORDER BY position, id
	`, vacationID)
	if err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}
	defer rows.Close()

	var locations []LocationRecord
	for rows.Next() {
		var l LocationRecord
		if err := rows.Scan(&l.ID, &l.VacationID, &l.Name, &l.Latitude, &l.Longitude,
			&l.VisitDate, &l.Summary, &l.Position); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locations = append(locations, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locations: %w", err)
	}

	for i := range locations {
		activities, err := r.listActivities(ctx, locations[i].ID)
		if err != nil {
			return nil, err
		}
		locations[i].Activities = activities
	}

	return locations, nil
}

func (r *VacationRepository) listActivities(ctx context.Context, locationID string) ([]ActivityRecord, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, location_id, title, description, scheduled_at, ai_generated, position
		FROM activities WHERE location_id = $1 ORDER BY position, id
	`, locationID)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	var activities []ActivityRecord
	for rows.Next() {
		var a ActivityRecord
		if err := rows.Scan(&a.ID, &a.LocationID, &a.Title, &a.Description,
			&a.ScheduledAt, &a.AIGenerated, &a.Position); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// ListVacationPhotos returns the photos assigned to a vacation, oldest first.
func (r *VacationRepository) ListVacationPhotos(ctx context.Context, vacationID string) ([]PhotoRecord, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, COALESCE(vacation_id::text, ''), COALESCE(location_id::text, ''), owner_id,
		       image_url, thumbnail_url, caption, latitude, longitude, taken_at
		FROM photos WHERE vacation_id = $1 ORDER BY taken_at NULLS LAST, id
	`, vacationID)
	if err != nil {
		return nil, fmt.Errorf("query photos: %w", err)
	}
	defer rows.Close()

	var photos []PhotoRecord
	for rows.Next() {
		var p PhotoRecord
		if err := rows.Scan(&p.ID, &p.VacationID, &p.LocationID, &p.OwnerID,
			&p.ImageURL, &p.ThumbnailURL, &p.Caption, &p.Latitude, &p.Longitude, &p.TakenAt); err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

// UpdateSummary replaces the vacation summary.
func (r *VacationRepository) UpdateSummary(ctx context.Context, vacationID, summary string) error {
	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE vacations SET summary = $2 WHERE id = $1
	`, vacationID, summary)
	if err != nil {
		return fmt.Errorf("update summary: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AddTags attaches tags to a vacation, skipping duplicates.
func (r *VacationRepository) AddTags(ctx context.Context, vacationID string, tags []string) error {
	for _, tag := range tags {
		_, err := r.pool.db.ExecContext(ctx, `
			INSERT INTO vacation_tags (vacation_id, tag) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, vacationID, tag)
		if err != nil {
			return fmt.Errorf("insert tag %q: %w", tag, err)
		}
	}
	return nil
}

func (r *VacationRepository) CreateHighlight(ctx context.Context, h *HighlightRecord) error {
	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO memory_highlights (id, vacation_id, title, description, type, photo_ids, confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, h.ID, h.VacationID, h.Title, h.Description, h.Type, pq.Array(h.PhotoIDs), h.Confidence)
	if err != nil {
		return fmt.Errorf("insert highlight: %w", err)
	}
	return nil
}

// ListHighlights returns a vacation's highlights, most confident first.
func (r *VacationRepository) ListHighlights(ctx context.Context, vacationID string) ([]HighlightRecord, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, vacation_id, title, description, type, photo_ids, confidence
		FROM memory_highlights WHERE vacation_id = $1 ORDER BY confidence DESC, id
	`, vacationID)
	if err != nil {
		return nil, fmt.Errorf("query highlights: %w", err)
	}
	defer rows.Close()

	var highlights []HighlightRecord
	for rows.Next() {
		var h HighlightRecord
		if err := rows.Scan(&h.ID, &h.VacationID, &h.Title, &h.Description, &h.Type,
			pq.Array(&h.PhotoIDs), &h.Confidence); err != nil {
			return nil, fmt.Errorf("scan highlight: %w", err)
		}
		highlights = append(highlights, h)
	}
	return highlights, rows.Err()
}

// nullString maps empty strings to NULL for nullable UUID columns.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
