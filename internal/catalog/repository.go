package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pentabook/bookshop/internal/domain"
)

var (
	ErrNotFound = errors.New("book not found")
	// ErrInsufficientStock rejects a decrement that would take stock below
	// zero.
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const bookColumns = `id, category_id, shop_id, book_name, isbn, author, description, price, stock, image_url`

func (r *Repository) List(ctx context.Context, categoryID int64) ([]domain.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books ORDER BY book_name`
	args := []any{}
	if categoryID > 0 {
		query = `SELECT ` + bookColumns + ` FROM books WHERE category_id = $1 ORDER BY book_name`
		args = append(args, categoryID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	books := []domain.Book{}
	for rows.Next() {
		var b domain.Book
		if err := scanBook(rows, &b); err != nil {
			return nil, err
		}
		books = append(books, b)
	}

	return books, rows.Err()
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Book, error) {
	b := &domain.Book{}
	row := r.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id)
	if err := scanBook(row, b); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

func (r *Repository) Create(ctx context.Context, b *domain.Book) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO books (category_id, shop_id, book_name, isbn, author, description, price, stock, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, b.CategoryID, b.ShopID, b.Name, b.ISBN, b.Author, b.Description, b.Price, b.Stock, b.ImageURL).Scan(&b.ID)
}

// Update only touches rows owned by the given shop, so one shop cannot edit
// another's listing.
func (r *Repository) Update(ctx context.Context, b *domain.Book) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE books
		SET category_id = $1, book_name = $2, isbn = $3, author = $4,
		    description = $5, price = $6, stock = $7, image_url = $8
		WHERE id = $9 AND shop_id = $10
	`, b.CategoryID, b.Name, b.ISBN, b.Author, b.Description, b.Price, b.Stock, b.ImageURL, b.ID, b.ShopID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id, shopID int64) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM books WHERE id = $1 AND shop_id = $2
	`, id, shopID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementStock takes quantity off a book's stock if enough remains. The
// guard in the update keeps stock from going negative under concurrent
// decrements.
func (r *Repository) DecrementStock(ctx context.Context, bookID int64, quantity int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE books SET stock = stock - $1
		WHERE id = $2 AND stock >= $1
	`, quantity, bookID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		exists, err := r.bookExists(ctx, bookID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrInsufficientStock
	}
	return nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, category_name FROM categories ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

func (r *Repository) bookExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner, b *domain.Book) error {
	return row.Scan(&b.ID, &b.CategoryID, &b.ShopID, &b.Name, &b.ISBN, &b.Author,
		&b.Description, &b.Price, &b.Stock, &b.ImageURL)
}
