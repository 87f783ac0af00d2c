package shipmentapi

import (
	"context"
	"database/sql"

	"github.com/pentabook/bookshop/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) OrderExists(ctx context.Context, orderID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)
	`, orderID).Scan(&exists)
	return exists, err
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
