package repository

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/iliyamo/campus-events/internal/model"
	"github.com/iliyamo/campus-events/internal/utils"
)

// EventSearchQuery defines filters & pagination for the public listing.
type EventSearchQuery struct {
	Text      string
	Category  string
	City      string
	CollegeID uint64
	From      *time.Time
	To        *time.Time
	FreeOnly  bool
	Available bool
	Near      *GeoPoint
	RadiusKm  float64
	Sort      string
	Page      int
	PageSize  int
}

// GeoPoint is a latitude/longitude pair in degrees.
type GeoPoint struct {
	Lat float64
	Lng float64
}

// EventListing is an approved event as shown in public listings.
type EventListing struct {
	model.Event
	CollegeName string   `json:"college_name"`
	SeatsLeft   uint32   `json:"seats_left"`
	DistanceKm  *float64 `json:"distance_km,omitempty"`
}

var eventSorts = map[string]string{
	"date":    "e.starts_at ASC, e.id ASC",
	"-date":   "e.starts_at DESC, e.id DESC",
	"price":   "e.price_cents ASC, e.starts_at ASC",
	"-price":  "e.price_cents DESC, e.starts_at ASC",
	"popular": "e.seats_booked DESC, e.starts_at ASC",
}

// ValidSort reports whether s names a supported ordering.
func ValidSort(s string) bool {
	_, ok := eventSorts[s]
	return s == "" || ok
}

// SearchApproved returns approved events that have not ended yet, filtered
// and paginated.  The second return value is the total match count.
func (r *EventRepo) SearchApproved(ctx context.Context, q EventSearchQuery) ([]EventListing, int64, error) {
	where := []string{"e.status = ?", "e.ends_at >= UTC_TIMESTAMP()"}
	args := []any{model.EventApproved}

	if q.Text != "" {
		where = append(where, "(LOWER(e.title) LIKE ? OR LOWER(e.description) LIKE ?)")
		like := "%" + strings.ToLower(q.Text) + "%"
		args = append(args, like, like)
	}
	if q.Category != "" {
		where = append(where, "e.category = ?")
		args = append(args, q.Category)
	}
	if q.City != "" {
		where = append(where, "LOWER(e.city) = ?")
		args = append(args, strings.ToLower(q.City))
	}
	if q.CollegeID != 0 {
		where = append(where, "e.college_id = ?")
		args = append(args, q.CollegeID)
	}
	if q.From != nil {
		where = append(where, "e.starts_at >= ?")
		args = append(args, q.From.UTC())
	}
	if q.To != nil {
		where = append(where, "e.starts_at <= ?")
		args = append(args, q.To.UTC())
	}
	if q.FreeOnly {
		where = append(where, "e.price_cents = 0")
	}
	if q.Available {
		where = append(where, "e.seats_booked < e.total_seats")
	}

	var distance string
	var distArgs []any
	if q.Near != nil {
		// the bounding box lets MySQL discard most rows before the
		// spherical distance is evaluated
		minLat, maxLat, minLng, maxLng := utils.BoundingBox(q.Near.Lat, q.Near.Lng, q.RadiusKm)
		distance = "ST_Distance_Sphere(POINT(e.longitude, e.latitude), POINT(?, ?)) / 1000"
		distArgs = []any{q.Near.Lng, q.Near.Lat}
		where = append(where,
			"e.latitude IS NOT NULL AND e.longitude IS NOT NULL",
			"e.latitude BETWEEN ? AND ?", "e.longitude BETWEEN ? AND ?",
			distance+" <= ?")
		args = append(args, minLat, maxLat, minLng, maxLng)
		args = append(args, distArgs...)
		args = append(args, q.RadiusKm)
	}
	cond := strings.Join(where, " AND ")

	var total int64
	countSQL := `SELECT COUNT(*) FROM events e WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order, ok := eventSorts[q.Sort]
	if !ok {
		order = eventSorts["date"]
	}
	argsData := append([]any{}, args...)
	if q.Near != nil && q.Sort == "" {
		order = distance + " ASC, e.starts_at ASC"
		argsData = append(argsData, distArgs...)
	}
	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize

	dataSQL := `SELECT ` + eventColumns + `, c.name
		FROM events e
		JOIN colleges c ON c.id = e.college_id
		WHERE ` + cond + `
		ORDER BY ` + order + `
		LIMIT ? OFFSET ?`
	argsData = append(argsData, limit, offset)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]EventListing, 0, limit)
	for rows.Next() {
		var name string
		e, err := scanEvent(rows, &name)
		if err != nil {
			return nil, 0, err
		}
		l := EventListing{Event: *e, CollegeName: name, SeatsLeft: e.SeatsLeft()}
		if q.Near != nil && e.HasLocation() {
			d := math.Round(utils.HaversineKm(q.Near.Lat, q.Near.Lng, *e.Latitude, *e.Longitude)*100) / 100
			l.DistanceKm = &d
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
