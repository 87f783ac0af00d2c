package orders

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/pentabook/bookshop/internal/domain"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Checkout turns the buyer's open cart into an order in one transaction:
// order row, item snapshots, and the cart status flip commit together or not
// at all. The guarded cart update serializes concurrent checkouts of the
// same cart.
func (r *OrderRepository) Checkout(ctx context.Context, buyerID int64, address string) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var cartID string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM cart
		WHERE buyer_id = $1 AND status = $2
	`, buyerID, domain.CartStatusOpen).Scan(&cartID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrEmptyCart
		}
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT ci.book_id, b.shop_id, ci.quantity, b.price
		FROM cartitems ci
		JOIN books b ON b.id = ci.book_id
		WHERE ci.cart_id = $1
	`, cartID)
	if err != nil {
		return nil, err
	}

	var lines []domain.CartLine
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.BookID, &line.ShopID, &line.Quantity, &line.UnitPrice); err != nil {
			_ = rows.Close()
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	order := domain.NewOrderFromCart(buyerID, cartID, address, lines)
	order.ID = uuid.New().String()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, cart_id, buyer_id, subtotal, total, status, delivery_address, order_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, order.ID, order.CartID, order.BuyerID, order.Subtotal, order.Total, order.Status, order.DeliveryAddress, order.OrderDate)
	if err != nil {
		return nil, err
	}

	for i := range order.Items {
		order.Items[i].ID = uuid.New().String()
		item := order.Items[i]
		_, err = tx.ExecContext(ctx, `
			INSERT INTO orderitems (id, order_id, book_id, shop_id, quantity, price, total_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, item.ID, order.ID, item.BookID, item.ShopID, item.Quantity, item.UnitPrice, item.LineTotal)
		if err != nil {
			return nil, err
		}
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE cart SET status = $1
		WHERE id = $2 AND status = $3
	`, domain.CartStatusCompleted, cartID, domain.CartStatusOpen)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// A concurrent checkout already claimed this cart.
		return nil, ErrEmptyCart
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order := &domain.Order{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, cart_id, buyer_id, subtotal, total, status, delivery_address, order_date
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.CartID, &order.BuyerID, &order.Subtotal, &order.Total,
		&order.Status, &order.DeliveryAddress, &order.OrderDate)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, book_id, shop_id, quantity, price, total_price
		FROM orderitems
		WHERE order_id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.BookID, &item.ShopID, &item.Quantity, &item.UnitPrice, &item.LineTotal); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *OrderRepository) ListByBuyer(ctx context.Context, buyerID int64) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, cart_id, buyer_id, subtotal, total, status, delivery_address, order_date
		FROM orders
		WHERE buyer_id = $1
		ORDER BY order_date DESC
	`, buyerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.CartID, &order.BuyerID, &order.Subtotal, &order.Total,
			&order.Status, &order.DeliveryAddress, &order.OrderDate); err != nil {
			return nil, err
		}
		order.Items = []domain.OrderItem{}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT order_id, id, book_id, shop_id, quantity, price, total_price
		FROM orderitems
		WHERE order_id = ANY($1)
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var orderID string
		var item domain.OrderItem
		if err := itemRows.Scan(&orderID, &item.ID, &item.BookID, &item.ShopID, &item.Quantity, &item.UnitPrice, &item.LineTotal); err != nil {
			return nil, err
		}
		order := orderMap[orderID]
		order.Items = append(order.Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}
	return orders, nil
}

func (r *OrderRepository) GetPaymentMethod(ctx context.Context, methodID int64) (*domain.PaymentMethod, error) {
	m := &domain.PaymentMethod{}
	err := r.db.QueryRowContext(ctx, `
		SELECT method_id, method_name FROM paymentmethods WHERE method_id = $1
	`, methodID).Scan(&m.ID, &m.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUnknownMethod
		}
		return nil, err
	}
	return m, nil
}

// RecordPayment stores a successful gateway response and advances the order
// to paid in one transaction. The status guard makes a second confirmation
// for the same order fail with ErrInvalidState instead of writing a
// duplicate payment row.
func (r *OrderRepository) RecordPayment(ctx context.Context, p *domain.Payment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $1
		WHERE id = $2 AND status = $3
	`, domain.OrderStatusPaid, p.OrderID, domain.OrderStatusInitiated)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInvalidState
	}

	p.ID = uuid.New().String()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO payments (id, order_id, method_id, transaction_id, payment_status, payment_total, payment_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.OrderID, p.MethodID, p.TransactionID, p.Status, p.Total, p.PaidAt)
	if err != nil {
		return err
	}

	return tx.Commit()
}
