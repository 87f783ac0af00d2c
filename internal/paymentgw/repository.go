package paymentgw

import (
	"context"
	"database/sql"
)

type MethodRepository struct {
	db *sql.DB
}

func NewMethodRepository(db *sql.DB) *MethodRepository {
	return &MethodRepository{db: db}
}

func (r *MethodRepository) Methods(ctx context.Context) (map[int64]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT method_id, method_name FROM paymentmethods`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	methods := make(map[int64]string)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		methods[id] = name
	}

	return methods, rows.Err()
}
