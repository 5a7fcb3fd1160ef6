package database

import (
	"github.com/aayushkdev/vellorun-backend/internal/app/models"
)

// Scanner is implemented by pgx.Row and pgx.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// PlaceColumns selects a place aliased p joined to its category aliased c.
const PlaceColumns = `p.id, p.created_by, p.name, p.type, p.description, p.category_id, COALESCE(c.name, '') AS category_name,
	p.coord_x, p.coord_y, p.visits, p.level, p.xp_reward, p.approved, p.tags, p.created_at, p.updated_at`

// PlaceFrom is the FROM clause matching PlaceColumns.
const PlaceFrom = `places p LEFT JOIN categories c ON c.id = p.category_id`

func ScanPlace(row Scanner) (models.Place, error) {
	var p models.Place
	err := row.Scan(
		&p.ID, &p.CreatedBy, &p.Name, &p.Type, &p.Description, &p.CategoryID, &p.CategoryName,
		&p.CoordX, &p.CoordY, &p.Visits, &p.Level, &p.XPReward, &p.Approved, &p.Tags, &p.CreatedAt, &p.UpdatedAt,
	)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p, err
}

// PlaceColumnNames lists the result columns of PlaceColumns, in order.
var PlaceColumnNames = []string{
	"id", "created_by", "name", "type", "description", "category_id", "category_name",
	"coord_x", "coord_y", "visits", "level", "xp_reward", "approved", "tags", "created_at", "updated_at",
}
