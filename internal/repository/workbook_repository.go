package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/sheetfed/internal/domain"
)

type workbookRepository struct {
	pool *pgxpool.Pool
}

// NewWorkbookRepository wires a repository backed by pgxpool.
func NewWorkbookRepository(pool *pgxpool.Pool) WorkbookRepository {
	return &workbookRepository{pool: pool}
}

func (r *workbookRepository) GetWorkbook(ctx context.Context, workbookID string) (domain.Workbook, error) {
	if r.pool == nil {
		return domain.Workbook{}, fmt.Errorf("workbook repository not initialized")
	}
	id, err := parseID("workbook", workbookID)
	if err != nil {
		return domain.Workbook{}, err
	}

	var (
		workbook  domain.Workbook
		wbID      uuid.UUID
		createdAt pgtype.Timestamptz
	)
	err = r.pool.QueryRow(
		ctx,
		`SELECT id, space_id, name, created_at FROM workbooks WHERE id = $1`,
		id,
	).Scan(&wbID, &workbook.SpaceID, &workbook.Name, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Workbook{}, fmt.Errorf("workbook %s: %w", workbookID, ErrNotFound)
		}
		return domain.Workbook{}, fmt.Errorf("failed to get workbook: %w", err)
	}
	workbook.ID = wbID.String()
	if createdAt.Valid {
		workbook.CreatedAt = createdAt.Time
	}

	sheets, err := r.listSheets(ctx, []uuid.UUID{id})
	if err != nil {
		return domain.Workbook{}, err
	}
	workbook.Sheets = sheets[workbook.ID]
	return workbook, nil
}

func (r *workbookRepository) ListWorkbooks(ctx context.Context, spaceID string, name string) ([]domain.Workbook, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("workbook repository not initialized")
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT id, space_id, name, created_at
		 FROM workbooks
		 WHERE space_id = $1
		   AND ($2 = '' OR name = $2)
		 ORDER BY created_at`,
		spaceID,
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list workbooks: %w", err)
	}
	defer rows.Close()

	workbooks := []domain.Workbook{}
	var ids []uuid.UUID
	for rows.Next() {
		var (
			workbook  domain.Workbook
			id        uuid.UUID
			createdAt pgtype.Timestamptz
		)
		if scanErr := rows.Scan(&id, &workbook.SpaceID, &workbook.Name, &createdAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan workbook: %w", scanErr)
		}
		workbook.ID = id.String()
		if createdAt.Valid {
			workbook.CreatedAt = createdAt.Time
		}
		ids = append(ids, id)
		workbooks = append(workbooks, workbook)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate workbooks: %w", rowsErr)
	}

	if len(ids) == 0 {
		return workbooks, nil
	}
	sheets, err := r.listSheets(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range workbooks {
		workbooks[i].Sheets = sheets[workbooks[i].ID]
	}
	return workbooks, nil
}

func (r *workbookRepository) DeleteWorkbook(ctx context.Context, workbookID string) error {
	if r.pool == nil {
		return fmt.Errorf("workbook repository not initialized")
	}
	id, err := parseID("workbook", workbookID)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM workbooks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workbook: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("workbook %s: %w", workbookID, ErrNotFound)
	}
	return nil
}

func (r *workbookRepository) CreateWorkbook(ctx context.Context, spaceID string, name string, specs []domain.SheetSpec) (domain.Workbook, error) {
	if r.pool == nil {
		return domain.Workbook{}, fmt.Errorf("workbook repository not initialized")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Workbook{}, fmt.Errorf("failed to open transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	workbookID := uuid.New()
	var createdAt pgtype.Timestamptz
	if err := tx.QueryRow(
		ctx,
		`INSERT INTO workbooks (id, space_id, name) VALUES ($1, $2, $3) RETURNING created_at`,
		workbookID,
		spaceID,
		name,
	).Scan(&createdAt); err != nil {
		return domain.Workbook{}, fmt.Errorf("failed to create workbook: %w", err)
	}

	workbook := domain.Workbook{
		ID:      workbookID.String(),
		SpaceID: spaceID,
		Name:    name,
		Sheets:  make([]domain.Sheet, 0, len(specs)),
	}
	if createdAt.Valid {
		workbook.CreatedAt = createdAt.Time
	}

	for position, spec := range specs {
		sheetID := uuid.New()
		fieldKeys := spec.FieldKeys
		if fieldKeys == nil {
			fieldKeys = []string{}
		}
		sheetName := spec.Name
		if sheetName == "" {
			sheetName = spec.Slug
		}
		if _, err := tx.Exec(
			ctx,
			`INSERT INTO sheets (id, workbook_id, slug, name, field_keys, position) VALUES ($1, $2, $3, $4, $5, $6)`,
			sheetID,
			workbookID,
			spec.Slug,
			sheetName,
			fieldKeys,
			position,
		); err != nil {
			return domain.Workbook{}, fmt.Errorf("failed to create sheet %s: %w", spec.Slug, err)
		}
		workbook.Sheets = append(workbook.Sheets, domain.Sheet{
			ID:         sheetID.String(),
			WorkbookID: workbook.ID,
			Slug:       spec.Slug,
			Name:       sheetName,
			FieldKeys:  fieldKeys,
		})
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Workbook{}, fmt.Errorf("failed to commit workbook: %w", err)
	}
	return workbook, nil
}

func (r *workbookRepository) GetSheet(ctx context.Context, sheetID string) (domain.Sheet, error) {
	if r.pool == nil {
		return domain.Sheet{}, fmt.Errorf("workbook repository not initialized")
	}
	id, err := parseID("sheet", sheetID)
	if err != nil {
		return domain.Sheet{}, err
	}

	var (
		sheet      domain.Sheet
		sID        uuid.UUID
		workbookID uuid.UUID
	)
	err = r.pool.QueryRow(
		ctx,
		`SELECT id, workbook_id, slug, name, field_keys FROM sheets WHERE id = $1`,
		id,
	).Scan(&sID, &workbookID, &sheet.Slug, &sheet.Name, &sheet.FieldKeys)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Sheet{}, fmt.Errorf("sheet %s: %w", sheetID, ErrNotFound)
		}
		return domain.Sheet{}, fmt.Errorf("failed to get sheet: %w", err)
	}
	sheet.ID = sID.String()
	sheet.WorkbookID = workbookID.String()
	return sheet, nil
}

func (r *workbookRepository) listSheets(ctx context.Context, workbookIDs []uuid.UUID) (map[string][]domain.Sheet, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT id, workbook_id, slug, name, field_keys
		 FROM sheets
		 WHERE workbook_id = ANY($1)
		 ORDER BY workbook_id, position`,
		workbookIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sheets: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.Sheet, len(workbookIDs))
	for rows.Next() {
		var (
			sheet      domain.Sheet
			id         uuid.UUID
			workbookID uuid.UUID
		)
		if scanErr := rows.Scan(&id, &workbookID, &sheet.Slug, &sheet.Name, &sheet.FieldKeys); scanErr != nil {
			return nil, fmt.Errorf("failed to scan sheet: %w", scanErr)
		}
		sheet.ID = id.String()
		sheet.WorkbookID = workbookID.String()
		out[sheet.WorkbookID] = append(out[sheet.WorkbookID], sheet)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate sheets: %w", rowsErr)
	}
	return out, nil
}
