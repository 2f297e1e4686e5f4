package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/fieldflow/fieldflow/internal/domain"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// WorkOrderRepository implements domain.WorkOrderRepository using SQLite.
type WorkOrderRepository struct {
	db *sql.DB
}

// New opens a SQLite database, runs migrations, and returns a ready repository.
func New(dataSourceName string) (*WorkOrderRepository, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign keys (off by default in SQLite).
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return NewFromDB(db)
}

// NewFromDB wraps an existing database connection, runs migrations, and returns a ready repository.
// Use this when the *sql.DB has been pre-configured (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB) (*WorkOrderRepository, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return &WorkOrderRepository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *WorkOrderRepository) Close() error {
	return r.db.Close()
}

// DB returns the underlying database connection for use by other adapters
// (timeline, directory, river).
func (r *WorkOrderRepository) DB() *sql.DB {
	return r.db
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

const timeFormat = "2006-01-02T15:04:05Z"

func (r *WorkOrderRepository) Create(ctx context.Context, wo domain.WorkOrder) error {
	var assigneeType, assigneeID sql.NullString
	if wo.Assignment != nil {
		assigneeType = sql.NullString{String: string(wo.Assignment.AssigneeType), Valid: true}
		assigneeID = sql.NullString{String: wo.Assignment.AssigneeID, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO work_orders (id, tenant_id, title, description, category, priority,
		                          status, held_from, required_skills, assignee_type, assignee_id,
		                          sla_due_at, completed_at, created_at, updated_at, version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		wo.ID, wo.TenantID, wo.Title, wo.Description, wo.Category, string(wo.Priority),
		string(wo.Status), string(wo.HeldFrom), joinSkills(wo.RequiredSkills),
		assigneeType, assigneeID,
		nullTime(wo.SLADueAt), nullTime(wo.CompletedAt),
		wo.CreatedAt.Format(timeFormat), wo.UpdatedAt.Format(timeFormat),
		wo.Version,
	)
	if err != nil {
		return fmt.Errorf("inserting work order: %w", err)
	}
	return nil
}

const workOrderColumns = `id, tenant_id, title, description, category, priority,
	status, held_from, required_skills, assignee_type, assignee_id,
	sla_due_at, completed_at, created_at, updated_at, version`

func (r *WorkOrderRepository) GetByID(ctx context.Context, tc domain.TenantContext, id string) (domain.WorkOrder, error) {
	query := `SELECT ` + workOrderColumns + ` FROM work_orders WHERE id = ?`
	args := []any{id}
	if !tc.CrossTenant {
		query += ` AND tenant_id = ?`
		args = append(args, tc.TenantID)
	}

	wo, err := scanWorkOrder(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return domain.WorkOrder{}, err
	}

	attachments, err := r.listAttachments(ctx, id)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	wo.Attachments = attachments

	return wo, nil
}

// List returns work orders visible in the tenant context, newest first.
// Attachments are not loaded; fetch a single order for those.
func (r *WorkOrderRepository) List(ctx context.Context, tc domain.TenantContext, filter domain.ListFilter) ([]domain.WorkOrder, error) {
	query := `SELECT ` + workOrderColumns + ` FROM work_orders`
	var conds []string
	var args []any

	if !tc.CrossTenant {
		conds = append(conds, `tenant_id = ?`)
		args = append(args, tc.TenantID)
	}
	if filter.Status != nil {
		conds = append(conds, `status = ?`)
		args = append(args, string(*filter.Status))
	}
	if filter.CreatedFrom != nil {
		conds = append(conds, `created_at >= ?`)
		args = append(args, filter.CreatedFrom.Format(timeFormat))
	}
	if filter.CreatedTo != nil {
		conds = append(conds, `created_at <= ?`)
		args = append(args, filter.CreatedTo.Format(timeFormat))
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}

	query += ` ORDER BY created_at DESC, id`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing work orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.WorkOrder
	for rows.Next() {
		wo, err := scanWorkOrderFromRows(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, wo)
	}

	return orders, rows.Err()
}

// Update writes the work order's mutable fields, guarded by a
// compare-and-swap on the version the caller last read. A version
// mismatch on an existing row returns *domain.ConflictError.
func (r *WorkOrderRepository) Update(ctx context.Context, wo domain.WorkOrder, expectedVersion int64) error {
	var assigneeType, assigneeID sql.NullString
	if wo.Assignment != nil {
		assigneeType = sql.NullString{String: string(wo.Assignment.AssigneeType), Valid: true}
		assigneeID = sql.NullString{String: wo.Assignment.AssigneeID, Valid: true}
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE work_orders
		 SET title = ?, description = ?, category = ?, priority = ?,
		     status = ?, held_from = ?, required_skills = ?,
		     assignee_type = ?, assignee_id = ?,
		     sla_due_at = ?, completed_at = ?, updated_at = ?, version = ?
		 WHERE id = ? AND version = ?`,
		wo.Title, wo.Description, wo.Category, string(wo.Priority),
		string(wo.Status), string(wo.HeldFrom), joinSkills(wo.RequiredSkills),
		assigneeType, assigneeID,
		nullTime(wo.SLADueAt), nullTime(wo.CompletedAt),
		wo.UpdatedAt.Format(timeFormat), wo.Version,
		wo.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("updating work order: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		// Distinguish a lost race from a missing row.
		var one int
		err := r.db.QueryRowContext(ctx, `SELECT 1 FROM work_orders WHERE id = ?`, wo.ID).Scan(&one)
		if err == sql.ErrNoRows {
			return domain.ErrWorkOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("checking work order existence: %w", err)
		}
		return &domain.ConflictError{WorkOrderID: wo.ID}
	}

	return nil
}

func (r *WorkOrderRepository) AppendAttachment(ctx context.Context, workOrderID string, att domain.Attachment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO work_order_attachments (work_order_id, category, url, uploaded_at)
		 VALUES (?, ?, ?, ?)`,
		workOrderID, string(att.Category), att.URL, att.UploadedAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting attachment: %w", err)
	}
	return nil
}

func (r *WorkOrderRepository) listAttachments(ctx context.Context, workOrderID string) ([]domain.Attachment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, url, uploaded_at FROM work_order_attachments
		 WHERE work_order_id = ? ORDER BY id`, workOrderID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing attachments: %w", err)
	}
	defer rows.Close()

	var attachments []domain.Attachment
	for rows.Next() {
		var category, url, uploadedAt string
		if err := rows.Scan(&category, &url, &uploadedAt); err != nil {
			return nil, fmt.Errorf("scanning attachment: %w", err)
		}
		att := domain.Attachment{
			Category: domain.AttachmentCategory(category),
			URL:      url,
		}
		att.UploadedAt, _ = time.Parse(timeFormat, uploadedAt)
		attachments = append(attachments, att)
	}

	return attachments, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkOrder(row *sql.Row) (domain.WorkOrder, error) {
	wo, err := scanInto(row)
	if err == sql.ErrNoRows {
		return domain.WorkOrder{}, domain.ErrWorkOrderNotFound
	}
	if err != nil {
		return domain.WorkOrder{}, fmt.Errorf("scanning work order: %w", err)
	}
	return wo, nil
}

func scanWorkOrderFromRows(rows *sql.Rows) (domain.WorkOrder, error) {
	wo, err := scanInto(rows)
	if err != nil {
		return domain.WorkOrder{}, fmt.Errorf("scanning work order row: %w", err)
	}
	return wo, nil
}

func scanInto(s rowScanner) (domain.WorkOrder, error) {
	var wo domain.WorkOrder
	var priority, status, heldFrom, skills, createdAt, updatedAt string
	var assigneeType, assigneeID, slaDueAt, completedAt sql.NullString

	err := s.Scan(&wo.ID, &wo.TenantID, &wo.Title, &wo.Description, &wo.Category, &priority,
		&status, &heldFrom, &skills, &assigneeType, &assigneeID,
		&slaDueAt, &completedAt, &createdAt, &updatedAt, &wo.Version)
	if err != nil {
		return domain.WorkOrder{}, err
	}

	wo.Priority = domain.Priority(priority)
	wo.Status = domain.Status(status)
	wo.HeldFrom = domain.Status(heldFrom)
	wo.RequiredSkills = splitSkills(skills)
	if assigneeID.Valid {
		wo.Assignment = &domain.Assignment{
			AssigneeType: domain.AssigneeType(assigneeType.String),
			AssigneeID:   assigneeID.String,
		}
	}
	wo.SLADueAt = parseNullTime(slaDueAt)
	wo.CompletedAt = parseNullTime(completedAt)
	wo.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	wo.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return wo, nil
}

func joinSkills(skills []string) string {
	return strings.Join(skills, ",")
}

func splitSkills(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeFormat), Valid: true}
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(timeFormat, s.String)
	if err != nil {
		return nil
	}
	return &t
}
