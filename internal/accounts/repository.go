package accounts

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/pentabook/bookshop/internal/domain"
)

var (
	// ErrDuplicate means the username or email is already registered.
	ErrDuplicate = errors.New("account already exists")
	ErrNotFound  = errors.New("account not found")
)

const uniqueViolation = "23505"

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateBuyer(ctx context.Context, b *domain.Buyer, passwordHash string) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO buyer (username, password, email, phone_number, address)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, b.Username, passwordHash, b.Email, b.Phone, b.Address).Scan(&b.ID)
	return mapUnique(err)
}

func (r *Repository) GetBuyer(ctx context.Context, id int64) (*domain.Buyer, error) {
	b := &domain.Buyer{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, email, phone_number, address
		FROM buyer
		WHERE id = $1
	`, id).Scan(&b.ID, &b.Username, &b.Email, &b.Phone, &b.Address)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

func (r *Repository) ListBuyers(ctx context.Context) ([]domain.Buyer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, username, email, phone_number, address
		FROM buyer
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	buyers := []domain.Buyer{}
	for rows.Next() {
		var b domain.Buyer
		if err := rows.Scan(&b.ID, &b.Username, &b.Email, &b.Phone, &b.Address); err != nil {
			return nil, err
		}
		buyers = append(buyers, b)
	}

	return buyers, rows.Err()
}

func (r *Repository) DeleteBuyer(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, `DELETE FROM buyer WHERE id = $1`, id)
}

func (r *Repository) CreateShop(ctx context.Context, s *domain.Shop, passwordHash string) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO shop (shop_name, owner_name, password, phone, address, email, description, verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)
		RETURNING id
	`, s.Name, s.OwnerName, passwordHash, s.Phone, s.Address, s.Email, s.Description).Scan(&s.ID)
	return mapUnique(err)
}

func (r *Repository) GetShop(ctx context.Context, id int64) (*domain.Shop, error) {
	s := &domain.Shop{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, shop_name, owner_name, phone, address, email, description, verified
		FROM shop
		WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.OwnerName, &s.Phone, &s.Address, &s.Email, &s.Description, &s.Verified)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (r *Repository) ListShops(ctx context.Context) ([]domain.Shop, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, shop_name, owner_name, phone, address, email, description, verified
		FROM shop
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	shops := []domain.Shop{}
	for rows.Next() {
		var s domain.Shop
		if err := rows.Scan(&s.ID, &s.Name, &s.OwnerName, &s.Phone, &s.Address, &s.Email, &s.Description, &s.Verified); err != nil {
			return nil, err
		}
		shops = append(shops, s)
	}

	return shops, rows.Err()
}

// VerifyShop flags the shop as approved to list books. Verifying twice is
// harmless.
func (r *Repository) VerifyShop(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `UPDATE shop SET verified = TRUE WHERE id = $1`, id)
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

func (r *Repository) DeleteShop(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, `DELETE FROM shop WHERE id = $1`, id)
}

func (r *Repository) deleteByID(ctx context.Context, query string, id int64) error {
	result, err := r.db.ExecContext(ctx, query, id)
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

func mapUnique(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}
