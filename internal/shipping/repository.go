package shipping

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/pentabook/bookshop/internal/domain"
)

var (
	// ErrDuplicateTracking signals a tracking number collision; the caller
	// should request a fresh number and try again.
	ErrDuplicateTracking = errors.New("tracking number already in use")
	ErrNotFound          = errors.New("shipment not found")
	// ErrAlreadyDelivered rejects a second receipt so the received
	// timestamp is never overwritten.
	ErrAlreadyDelivered = errors.New("shipment already delivered")
)

const uniqueViolation = "23505"

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create stores the shipment and advances the order from paid to shipped in
// one transaction, so a failed status update never leaves a live shipment
// behind. The guarded update is a no-op for orders shipped before payment.
func (r *Repository) Create(ctx context.Context, s *domain.Shipment) error {
	s.ID = uuid.New().String()
	s.Status = domain.ShipmentStatusShipped
	s.ShippedAt = time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO shipment (id, order_id, tracking_no, status, shipment_service, shipment_date)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, s.ID, s.OrderID, s.TrackingNo, s.Status, s.Service, s.ShippedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateTracking
		}
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders SET status = $1
		WHERE id = $2 AND status = $3
	`, domain.OrderStatusShipped, s.OrderID, domain.OrderStatusPaid)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Resolve marks a shipped shipment as delivered. The guard on the current
// status makes a second resolve lose instead of restamping received_date.
func (r *Repository) Resolve(ctx context.Context, trackingNo string) (*domain.Shipment, error) {
	s := &domain.Shipment{}
	err := r.db.QueryRowContext(ctx, `
		UPDATE shipment
		SET status = $1, received_date = NOW()
		WHERE tracking_no = $2 AND status = $3
		RETURNING id, order_id, tracking_no, status, shipment_service, shipment_date, received_date
	`, domain.ShipmentStatusDelivered, trackingNo, domain.ShipmentStatusShipped).
		Scan(&s.ID, &s.OrderID, &s.TrackingNo, &s.Status, &s.Service, &s.ShippedAt, &s.ReceivedAt)
	if err == nil {
		return s, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	existing, err := r.GetByTracking(ctx, trackingNo)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrNotFound
	}
	return nil, ErrAlreadyDelivered
}

func (r *Repository) GetByTracking(ctx context.Context, trackingNo string) (*domain.Shipment, error) {
	s := &domain.Shipment{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_id, tracking_no, status, shipment_service, shipment_date, received_date
		FROM shipment
		WHERE tracking_no = $1
	`, trackingNo).Scan(&s.ID, &s.OrderID, &s.TrackingNo, &s.Status, &s.Service, &s.ShippedAt, &s.ReceivedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (r *Repository) ListByBuyer(ctx context.Context, buyerID int64) ([]domain.Shipment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.order_id, s.tracking_no, s.status, s.shipment_service, s.shipment_date, s.received_date
		FROM shipment s
		JOIN orders o ON o.id = s.order_id
		WHERE o.buyer_id = $1
		ORDER BY s.shipment_date DESC
	`, buyerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	shipments := []domain.Shipment{}
	for rows.Next() {
		var s domain.Shipment
		if err := rows.Scan(&s.ID, &s.OrderID, &s.TrackingNo, &s.Status, &s.Service, &s.ShippedAt, &s.ReceivedAt); err != nil {
			return nil, err
		}
		shipments = append(shipments, s)
	}

	return shipments, rows.Err()
}
