package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extract/constants"
	"github.com/joseph-ayodele/invoice-extract/internal/common"
	"github.com/joseph-ayodele/invoice-extract/internal/entity"
	"github.com/joseph-ayodele/invoice-extract/internal/extract"
)

// tsLayout is fixed width so stored timestamps sort lexically.
const tsLayout = "2006-01-02T15:04:05.000000Z"

// SaveRequest wraps parameters for storing an extraction result.
type SaveRequest struct {
	ContentHash     string
	SourcePath      string
	SourceFormat    string
	FileSize        int64
	Status          constants.DocumentStatus
	ValidationError string
	Text            string
	Fields          extract.ExtractedDocument
}

// ListFilter narrows List. Zero values mean "no constraint".
type ListFilter struct {
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Status       constants.DocumentStatus
	SupplierLike string // case-insensitive substring of supplier_name
	Limit        int
	Offset       int
}

type DocumentRepository interface {
	// Save stores a new document. When a document with the same content hash
	// exists it is returned unchanged with deduplicated=true.
	Save(ctx context.Context, req SaveRequest) (doc *entity.Document, deduplicated bool, err error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	GetByHash(ctx context.Context, hash string) (*entity.Document, error)
	List(ctx context.Context, f ListFilter) ([]*entity.Document, error)
}

type documentRepository struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

func NewDocumentRepository(db *DB, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepository{db: db, logger: logger, now: time.Now}
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const documentColumns = `id, content_hash, source_path, source_format, file_size, status, validation_error, raw_text,
	document_title, invoice_number, invoice_date, work_order_number, purchase_order_number,
	supplier_name, supplier_address, supplier_email, supplier_bank_details,
	buyer_name, buyer_address, nepcs_company_name, nepcs_address, project_name,
	subtotal, tax_amount, vat_amount, total_amount, currency, confidence,
	created_at, updated_at`

func (r *documentRepository) Save(ctx context.Context, req SaveRequest) (*entity.Document, bool, error) {
	if strings.TrimSpace(req.ContentHash) == "" {
		return nil, false, common.NewAppError("INVALID_DOCUMENT", "content hash is required", common.ErrInvalidInput)
	}
	if req.Status == "" {
		req.Status = constants.DocumentStatusExtracted
	}

	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%w: begin: %v", common.ErrDatabase, err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := r.getOne(ctx, tx, "content_hash = ?", req.ContentHash)
	switch {
	case err == nil:
		r.logger.Info("document already stored", "id", existing.ID, "hash", req.ContentHash)
		return existing, true, nil
	case !errors.Is(err, common.ErrNotFound):
		return nil, false, err
	}

	now := r.now().UTC()
	doc := &entity.Document{
		ID:              uuid.New(),
		ContentHash:     req.ContentHash,
		SourcePath:      req.SourcePath,
		SourceFormat:    req.SourceFormat,
		FileSize:        req.FileSize,
		Status:          req.Status,
		ValidationError: req.ValidationError,
		Text:            req.Text,
		Fields:          req.Fields,
		CreatedAt:       now.Truncate(time.Microsecond),
		UpdatedAt:       now.Truncate(time.Microsecond),
	}
	if doc.Fields.Items == nil {
		doc.Fields.Items = []extract.LineItem{}
	}
	conf, err := json.Marshal(doc.Fields.Confidence)
	if err != nil {
		return nil, false, fmt.Errorf("marshal confidence: %w", err)
	}

	f := doc.Fields
	_, err = tx.ExecContext(ctx, r.db.rebind(`INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		doc.ID.String(), doc.ContentHash, doc.SourcePath, doc.SourceFormat, doc.FileSize, string(doc.Status),
		doc.ValidationError, doc.Text,
		f.DocumentTitle, f.InvoiceNumber, f.Date, f.WorkOrderNumber, f.PurchaseOrderNumber,
		f.SupplierName, f.SupplierAddress, f.SupplierEmail, f.SupplierBankDetails,
		f.BuyerName, f.BuyerAddress, f.NEPCSCompanyName, f.NEPCSAddress, f.ProjectName,
		f.Subtotal, f.TaxAmount, f.VATAmount, f.TotalAmount, f.Currency, string(conf),
		doc.CreatedAt.Format(tsLayout), doc.UpdatedAt.Format(tsLayout),
	)
	if err != nil {
		r.logger.Error("failed to insert document", "hash", req.ContentHash, "error", err)
		return nil, false, fmt.Errorf("%w: insert document: %v", common.ErrDatabase, err)
	}

	for i, it := range f.Items {
		_, err := tx.ExecContext(ctx, r.db.rebind(`INSERT INTO line_items
			(document_id, line_no, sl_no, name, quantity, unit_price, amount)
			VALUES (?, ?, ?, ?, ?, ?, ?)`),
			doc.ID.String(), i, it.SlNo, it.Name, it.Quantity, it.UnitPrice, it.Amount,
		)
		if err != nil {
			return nil, false, fmt.Errorf("%w: insert line item %d: %v", common.ErrDatabase, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("%w: commit: %v", common.ErrDatabase, err)
	}
	r.logger.Info("document stored", "id", doc.ID, "invoice_number", f.InvoiceNumber, "items", len(f.Items))
	return doc, false, nil
}

func (r *documentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	return r.getOne(ctx, r.db.SQL, "id = ?", id.String())
}

func (r *documentRepository) GetByHash(ctx context.Context, hash string) (*entity.Document, error) {
	return r.getOne(ctx, r.db.SQL, "content_hash = ?", hash)
}

func (r *documentRepository) getOne(ctx context.Context, q querier, where string, arg any) (*entity.Document, error) {
	docs, err := r.query(ctx, q, where+" LIMIT 1", arg)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("document %v: %w", arg, common.ErrNotFound)
	}
	return docs[0], nil
}

func (r *documentRepository) List(ctx context.Context, f ListFilter) ([]*entity.Document, error) {
	var (
		conds []string
		args  []any
	)
	if f.CreatedFrom != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, f.CreatedFrom.UTC().Format(tsLayout))
	}
	if f.CreatedTo != nil {
		conds = append(conds, "created_at <= ?")
		args = append(args, f.CreatedTo.UTC().Format(tsLayout))
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if s := strings.TrimSpace(f.SupplierLike); s != "" {
		conds = append(conds, "LOWER(supplier_name) LIKE ?")
		args = append(args, "%"+strings.ToLower(s)+"%")
	}
	where := "1 = 1"
	if len(conds) > 0 {
		where = strings.Join(conds, " AND ")
	}
	where += " ORDER BY created_at, id"
	if f.Limit > 0 {
		where += fmt.Sprintf(" LIMIT %d", f.Limit)
		if f.Offset > 0 {
			where += fmt.Sprintf(" OFFSET %d", f.Offset)
		}
	}
	return r.query(ctx, r.db.SQL, where, args...)
}

func (r *documentRepository) query(ctx context.Context, q querier, where string, args ...any) ([]*entity.Document, error) {
	rows, err := q.QueryContext(ctx, r.db.rebind(`SELECT `+documentColumns+` FROM documents WHERE `+where), args...)
	if err != nil {
		r.logger.Error("failed to query documents", "error", err)
		return nil, fmt.Errorf("%w: query documents: %v", common.ErrDatabase, err)
	}

	var docs []*entity.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("%w: iterate documents: %v", common.ErrDatabase, err)
	}
	// release the connection before loading items; SQLite runs with one
	_ = rows.Close()

	for _, doc := range docs {
		items, err := r.items(ctx, q, doc.ID)
		if err != nil {
			return nil, err
		}
		doc.Fields.Items = items
	}
	return docs, nil
}

func (r *documentRepository) items(ctx context.Context, q querier, id uuid.UUID) ([]extract.LineItem, error) {
	rows, err := q.QueryContext(ctx, r.db.rebind(`SELECT sl_no, name, quantity, unit_price, amount
		FROM line_items WHERE document_id = ? ORDER BY line_no`), id.String())
	if err != nil {
		return nil, fmt.Errorf("%w: query line items: %v", common.ErrDatabase, err)
	}
	defer func() { _ = rows.Close() }()

	items := []extract.LineItem{}
	for rows.Next() {
		var it extract.LineItem
		if err := rows.Scan(&it.SlNo, &it.Name, &it.Quantity, &it.UnitPrice, &it.Amount); err != nil {
			return nil, fmt.Errorf("%w: scan line item: %v", common.ErrDatabase, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate line items: %v", common.ErrDatabase, err)
	}
	return items, nil
}

func scanDocument(rows *sql.Rows) (*entity.Document, error) {
	var (
		doc                  entity.Document
		id, status, conf     string
		createdAt, updatedAt string
	)
	f := &doc.Fields
	err := rows.Scan(
		&id, &doc.ContentHash, &doc.SourcePath, &doc.SourceFormat, &doc.FileSize, &status, &doc.ValidationError, &doc.Text,
		&f.DocumentTitle, &f.InvoiceNumber, &f.Date, &f.WorkOrderNumber, &f.PurchaseOrderNumber,
		&f.SupplierName, &f.SupplierAddress, &f.SupplierEmail, &f.SupplierBankDetails,
		&f.BuyerName, &f.BuyerAddress, &f.NEPCSCompanyName, &f.NEPCSAddress, &f.ProjectName,
		&f.Subtotal, &f.TaxAmount, &f.VATAmount, &f.TotalAmount, &f.Currency, &conf,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: scan document: %v", common.ErrDatabase, err)
	}

	if doc.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: bad document id %q: %v", common.ErrDatabase, id, err)
	}
	doc.Status = constants.DocumentStatus(status)
	if err := json.Unmarshal([]byte(conf), &f.Confidence); err != nil {
		return nil, fmt.Errorf("%w: bad confidence json: %v", common.ErrDatabase, err)
	}
	if doc.CreatedAt, err = time.Parse(tsLayout, createdAt); err != nil {
		return nil, fmt.Errorf("%w: bad created_at: %v", common.ErrDatabase, err)
	}
	if doc.UpdatedAt, err = time.Parse(tsLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("%w: bad updated_at: %v", common.ErrDatabase, err)
	}
	return &doc, nil
}
