package submission

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates an unknown submission or item id.
var ErrNotFound = errors.New("submission not found")

// Store persists submissions and their items.
//
// CreateHeader and InsertItems are deliberately separate statements
// rather than one transaction: a header whose items failed to land
// must stay visible so the back office can chase the gap.
type Store struct {
	Pool *pgxpool.Pool
}

// CreateHeader inserts the submission header and returns its id.
func (s *Store) CreateHeader(ctx context.Context, sub Submission) (int64, error) {
	if s == nil || s.Pool == nil {
		return 0, errors.New("submission store not configured")
	}
	var id int64
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO submissions (
			dealer_id, distributor_code, status, project_id, requested_delivery, delivery_date,
			order_comment, dealer_reference, customer_name, customer_email, customer_phone
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		sub.DealerID, sub.DistributorCode, StatusPending, sub.ProjectID, sub.RequestedDelivery, sub.DeliveryDate,
		sub.OrderComment, sub.DealerReference, sub.CustomerName, sub.CustomerEmail, sub.CustomerPhone,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert submission header: %w", err)
	}
	return id, nil
}

// InsertItems inserts all items of a submission in one batch.
func (s *Store) InsertItems(ctx context.Context, submissionID int64, items []Item) error {
	if s == nil || s.Pool == nil {
		return errors.New("submission store not configured")
	}
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(`
			INSERT INTO submission_items (
				submission_id, product_id, sku, name, quantity,
				distributor_code, rule_tag,
				dealer_price, invest, price_on_invoice, baseline,
				retail_price, vrg, net_retail, list_margin,
				street_gross, street_net, street_source, street_source_custom, street_margin,
				serial, note
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`,
			submissionID, it.ProductID, it.SKU, it.Name, it.Quantity,
			it.DistributorCode, it.RuleTag,
			it.DealerPrice, it.Invest, it.PriceOnInvoice, it.Baseline,
			it.RetailPrice, it.VRG, it.NetRetail, it.ListMargin,
			it.StreetGross, it.StreetNet, it.StreetSource, it.StreetSourceCustom, it.StreetMargin,
			it.Serial, it.Note,
		)
	}
	results := s.Pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()
	for range items {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert submission items: %w", err)
		}
	}
	return nil
}

const submissionColumns = `
	id, dealer_id, distributor_code, status, project_id, requested_delivery, delivery_date,
	order_comment, dealer_reference, customer_name, customer_email, customer_phone,
	created_at, updated_at`

const itemColumns = `
	id, submission_id, product_id, sku, name, quantity,
	distributor_code, rule_tag,
	dealer_price, invest, price_on_invoice, baseline,
	retail_price, vrg, net_retail, list_margin,
	street_gross, street_net, street_source, street_source_custom, street_margin,
	serial, note`

// ListForDealer returns a dealer's submissions, newest first, without items.
func (s *Store) ListForDealer(ctx context.Context, dealerID uuid.UUID, limit, offset int) ([]Submission, int64, error) {
	if s == nil || s.Pool == nil {
		return nil, 0, errors.New("submission store not configured")
	}
	var total int64
	if err := s.Pool.QueryRow(ctx,
		`SELECT count(*) FROM submissions WHERE dealer_id = $1`, dealerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE dealer_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, dealerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}
	return out, total, nil
}

// ListByStatus returns submissions in a status, newest first, for the
// back office dashboard.
func (s *Store) ListByStatus(ctx context.Context, status string, limit, offset int) ([]Submission, int64, error) {
	if s == nil || s.Pool == nil {
		return nil, 0, errors.New("submission store not configured")
	}
	var total int64
	if err := s.Pool.QueryRow(ctx,
		`SELECT count(*) FROM submissions WHERE status = $1`, status).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE status = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, status, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}
	return out, total, nil
}

// Get loads a submission with its items.
func (s *Store) Get(ctx context.Context, id int64) (Submission, error) {
	if s == nil || s.Pool == nil {
		return Submission{}, errors.New("submission store not configured")
	}
	row := s.Pool.QueryRow(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions WHERE id = $1`, id)
	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Submission{}, ErrNotFound
		}
		return Submission{}, err
	}

	rows, err := s.Pool.Query(ctx, `
		SELECT `+itemColumns+`
		FROM submission_items
		WHERE submission_id = $1
		ORDER BY id`, id)
	if err != nil {
		return Submission{}, fmt.Errorf("list submission items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return Submission{}, err
		}
		sub.Items = append(sub.Items, it)
	}
	if err := rows.Err(); err != nil {
		return Submission{}, fmt.Errorf("list submission items: %w", err)
	}
	return sub, nil
}

// GetItem loads one item together with its submission's status.
func (s *Store) GetItem(ctx context.Context, itemID int64) (Item, string, error) {
	if s == nil || s.Pool == nil {
		return Item{}, "", errors.New("submission store not configured")
	}
	row := s.Pool.QueryRow(ctx, `
		SELECT i.id, i.submission_id, i.product_id, i.sku, i.name, i.quantity,
			i.distributor_code, i.rule_tag,
			i.dealer_price, i.invest, i.price_on_invoice, i.baseline,
			i.retail_price, i.vrg, i.net_retail, i.list_margin,
			i.street_gross, i.street_net, i.street_source, i.street_source_custom, i.street_margin,
			i.serial, i.note, s.status
		FROM submission_items i
		JOIN submissions s ON s.id = i.submission_id
		WHERE i.id = $1`, itemID)

	var it Item
	var status string
	err := row.Scan(
		&it.ID, &it.SubmissionID, &it.ProductID, &it.SKU, &it.Name, &it.Quantity,
		&it.DistributorCode, &it.RuleTag,
		&it.DealerPrice, &it.Invest, &it.PriceOnInvoice, &it.Baseline,
		&it.RetailPrice, &it.VRG, &it.NetRetail, &it.ListMargin,
		&it.StreetGross, &it.StreetNet, &it.StreetSource, &it.StreetSourceCustom, &it.StreetMargin,
		&it.Serial, &it.Note, &status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, "", ErrNotFound
		}
		return Item{}, "", fmt.Errorf("get submission item: %w", err)
	}
	return it, status, nil
}

// UpdateItem writes the item's full pricing state back.
func (s *Store) UpdateItem(ctx context.Context, it Item) error {
	if s == nil || s.Pool == nil {
		return errors.New("submission store not configured")
	}
	tag, err := s.Pool.Exec(ctx, `
		UPDATE submission_items SET
			quantity = $2,
			distributor_code = $3, rule_tag = $4,
			dealer_price = $5, invest = $6, price_on_invoice = $7, baseline = $8,
			net_retail = $9, list_margin = $10,
			street_gross = $11, street_net = $12,
			street_source = $13, street_source_custom = $14, street_margin = $15,
			note = $16
		WHERE id = $1`,
		it.ID,
		it.Quantity,
		it.DistributorCode, it.RuleTag,
		it.DealerPrice, it.Invest, it.PriceOnInvoice, it.Baseline,
		it.NetRetail, it.ListMargin,
		it.StreetGross, it.StreetNet,
		it.StreetSource, it.StreetSourceCustom, it.StreetMargin,
		it.Note,
	)
	if err != nil {
		return fmt.Errorf("update submission item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus moves a submission to a new status.
func (s *Store) UpdateStatus(ctx context.Context, id int64, status string) error {
	if s == nil || s.Pool == nil {
		return errors.New("submission store not configured")
	}
	tag, err := s.Pool.Exec(ctx, `
		UPDATE submissions SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update submission status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (Submission, error) {
	var sub Submission
	err := row.Scan(
		&sub.ID, &sub.DealerID, &sub.DistributorCode, &sub.Status, &sub.ProjectID, &sub.RequestedDelivery, &sub.DeliveryDate,
		&sub.OrderComment, &sub.DealerReference, &sub.CustomerName, &sub.CustomerEmail, &sub.CustomerPhone,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return Submission{}, err
	}
	return sub, nil
}

func scanItem(row rowScanner) (Item, error) {
	var it Item
	err := row.Scan(
		&it.ID, &it.SubmissionID, &it.ProductID, &it.SKU, &it.Name, &it.Quantity,
		&it.DistributorCode, &it.RuleTag,
		&it.DealerPrice, &it.Invest, &it.PriceOnInvoice, &it.Baseline,
		&it.RetailPrice, &it.VRG, &it.NetRetail, &it.ListMargin,
		&it.StreetGross, &it.StreetNet, &it.StreetSource, &it.StreetSourceCustom, &it.StreetMargin,
		&it.Serial, &it.Note,
	)
	if err != nil {
		return Item{}, fmt.Errorf("scan submission item: %w", err)
	}
	return it, nil
}
