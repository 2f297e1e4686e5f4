package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fieldflow/fieldflow/internal/domain"
)

// Directory implements domain.CandidateDirectory on the shared SQLite
// database.
type Directory struct {
	db *sql.DB
}

// NewDirectory wraps the database connection owned by the work order
// repository.
func NewDirectory(db *sql.DB) *Directory {
	return &Directory{db: db}
}

// Register upserts a candidate. Re-registering an existing id replaces
// its profile fields, which is how availability and workload are kept
// current.
func (d *Directory) Register(ctx context.Context, tenantID string, c domain.AssignmentCandidate) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO assignees (id, tenant_id, type, name, skills, availability, current_workload, max_workload, rating)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		     type = excluded.type,
		     name = excluded.name,
		     skills = excluded.skills,
		     availability = excluded.availability,
		     current_workload = excluded.current_workload,
		     max_workload = excluded.max_workload,
		     rating = excluded.rating`,
		c.ID, tenantID, string(c.Type), c.Name, joinSkills(c.Skills),
		string(c.Availability), c.CurrentWorkload, c.MaxWorkload, c.Rating,
	)
	if err != nil {
		return fmt.Errorf("upserting assignee: %w", err)
	}
	return nil
}

// ListEligible returns the tenant's candidates that are not offline and
// cover at least one required skill. The skill overlap is evaluated in
// Go; skills are stored as a comma-joined list.
func (d *Directory) ListEligible(ctx context.Context, tenantID string, requiredSkills []string) ([]domain.AssignmentCandidate, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, type, name, skills, availability, current_workload, max_workload, rating
		 FROM assignees WHERE tenant_id = ? AND availability != ?
		 ORDER BY id`, tenantID, string(domain.AvailabilityOffline),
	)
	if err != nil {
		return nil, fmt.Errorf("listing assignees: %w", err)
	}
	defer rows.Close()

	var candidates []domain.AssignmentCandidate
	for rows.Next() {
		var c domain.AssignmentCandidate
		var kind, skills, availability string
		if err := rows.Scan(&c.ID, &kind, &c.Name, &skills, &availability,
			&c.CurrentWorkload, &c.MaxWorkload, &c.Rating); err != nil {
			return nil, fmt.Errorf("scanning assignee: %w", err)
		}
		c.Type = domain.AssigneeType(kind)
		c.Skills = splitSkills(skills)
		c.Availability = domain.Availability(availability)

		if !c.HasSkillOverlap(requiredSkills) {
			continue
		}
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}
