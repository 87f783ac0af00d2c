package cart

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/pentabook/bookshop/internal/domain"
)

var (
	ErrBookNotFound = errors.New("book not found")
	ErrItemNotFound = errors.New("item not in cart")
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// AddItem puts a book into the buyer's open cart, creating the cart lazily.
// Adding a book already in the cart bumps its quantity instead of adding a
// second row.
func (r *Repository) AddItem(ctx context.Context, buyerID, bookID int64, quantity int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)
	`, bookID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrBookNotFound
	}

	cartID, err := openCartID(ctx, tx, buyerID)
	if err != nil {
		return err
	}
	if cartID == "" {
		cartID = uuid.New().String()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO cart (id, buyer_id, status)
			VALUES ($1, $2, $3)
		`, cartID, buyerID, domain.CartStatusOpen)
		if err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cartitems (id, cart_id, book_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cart_id, book_id)
		DO UPDATE SET quantity = cartitems.quantity + EXCLUDED.quantity
	`, uuid.New().String(), cartID, bookID, quantity)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Lines returns the buyer's open cart joined against current book rows. A
// buyer without an open cart gets an empty slice, not an error.
func (r *Repository) Lines(ctx context.Context, buyerID int64) ([]domain.CartLine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ci.book_id, b.book_name, b.author, b.shop_id, ci.quantity, b.price
		FROM cart c
		JOIN cartitems ci ON ci.cart_id = c.id
		JOIN books b ON b.id = ci.book_id
		WHERE c.buyer_id = $1 AND c.status = $2
		ORDER BY b.book_name
	`, buyerID, domain.CartStatusOpen)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	lines := []domain.CartLine{}
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.BookID, &line.BookName, &line.Author, &line.ShopID, &line.Quantity, &line.UnitPrice); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	return lines, rows.Err()
}

func (r *Repository) RemoveItem(ctx context.Context, buyerID, bookID int64) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM cartitems ci
		USING cart c
		WHERE ci.cart_id = c.id
		  AND c.buyer_id = $1 AND c.status = $2
		  AND ci.book_id = $3
	`, buyerID, domain.CartStatusOpen, bookID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *Repository) Clear(ctx context.Context, buyerID int64) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM cartitems ci
		USING cart c
		WHERE ci.cart_id = c.id
		  AND c.buyer_id = $1 AND c.status = $2
	`, buyerID, domain.CartStatusOpen)
	return err
}

func openCartID(ctx context.Context, tx *sql.Tx, buyerID int64) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM cart
		WHERE buyer_id = $1 AND status = $2
	`, buyerID, domain.CartStatusOpen).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return id, nil
}
