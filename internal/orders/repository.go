package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/joao-fontenele/storefront-api/internal/domain"
	"github.com/joao-fontenele/storefront-api/internal/postgres"
)

type OrderRepository struct {
	db postgres.DBTX
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) WithTx(ctx context.Context, fn func(q Queries) error) error {
	return postgres.WithTx(ctx, r.db, func(tx postgres.DBTX) error {
		return fn(&OrderRepository{db: tx})
	})
}

func (r *OrderRepository) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u := &domain.User{}
	var dob sql.NullTime

	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, first_name, last_name, date_of_birth, avatar
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &dob, &u.AvatarURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("select user: %w", err)
	}

	if dob.Valid {
		u.DateOfBirth = &dob.Time
	}

	return u, nil
}

func (r *OrderRepository) ProductsByID(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	products := make(map[int64]domain.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	// FOR SHARE keeps the snapshotted prices stable until the order is committed.
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, price
		FROM products
		WHERE id = ANY($1)
		FOR SHARE
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products[p.ID] = p
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return products, nil
}

func (r *OrderRepository) InsertOrder(ctx context.Context, order *domain.Order) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO orders (customer_id, ship_address, status, payment_method, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, order.CustomerID, order.ShipAddress, order.Status, order.PaymentMethod, order.CreatedAt, order.UpdatedAt).Scan(&order.ID)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range order.Details {
		d := &order.Details[i]
		d.OrderID = order.ID

		err := r.db.QueryRowContext(ctx, `
			INSERT INTO order_details (order_id, product_id, quantity, discount, price)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, d.OrderID, d.ProductID, d.Quantity, d.Discount, d.Price).Scan(&d.ID)
		if err != nil {
			return fmt.Errorf("insert order detail: %w", err)
		}
	}

	return nil
}

const selectOrders = `
	SELECT o.id, o.customer_id, COALESCE(o.shipper_id::text, ''), o.ship_address, o.status, o.payment_method,
		o.created_at, o.updated_at,
		c.email, c.first_name, c.last_name, c.date_of_birth, c.avatar,
		s.email, s.first_name, s.last_name, s.date_of_birth, s.avatar
	FROM orders o
	JOIN users c ON c.id = o.customer_id
	LEFT JOIN users s ON s.id = o.shipper_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var o domain.Order
	var c domain.User
	var cDOB, sDOB sql.NullTime
	var sEmail, sFirst, sLast, sAvatar sql.NullString

	err := row.Scan(&o.ID, &o.CustomerID, &o.ShipperID, &o.ShipAddress, &o.Status, &o.PaymentMethod,
		&o.CreatedAt, &o.UpdatedAt,
		&c.Email, &c.FirstName, &c.LastName, &cDOB, &c.AvatarURL,
		&sEmail, &sFirst, &sLast, &sDOB, &sAvatar,
	)
	if err != nil {
		return o, err
	}

	c.ID = o.CustomerID
	if cDOB.Valid {
		c.DateOfBirth = &cDOB.Time
	}
	o.Customer = &c

	if o.ShipperID != "" {
		s := &domain.User{
			ID:        o.ShipperID,
			Email:     sEmail.String,
			FirstName: sFirst.String,
			LastName:  sLast.String,
			AvatarURL: sAvatar.String,
		}
		if sDOB.Valid {
			s.DateOfBirth = &sDOB.Time
		}
		o.Shipper = s
	}

	o.Details = []domain.OrderDetail{}
	return o, nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, selectOrders+` WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	orders := []domain.Order{order}
	if err := r.loadDetails(ctx, orders); err != nil {
		return nil, err
	}

	return &orders[0], nil
}

func (r *OrderRepository) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	var (
		where []string
		args  []any
	)

	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		where = append(where, fmt.Sprintf("o.customer_id = $%d", len(args)))
	}
	if filter.ShipperID != "" {
		args = append(args, filter.ShipperID)
		where = append(where, fmt.Sprintf("o.shipper_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("o.status = $%d", len(args)))
	}

	query := selectOrders
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY o.created_at DESC, o.id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	if err := r.loadDetails(ctx, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// loadDetails fills Details for all orders with one query.
func (r *OrderRepository) loadDetails(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	index := make(map[int64]int, len(orders))
	ids := make([]int64, 0, len(orders))
	for i, o := range orders {
		index[o.ID] = i
		ids = append(ids, o.ID)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT d.id, d.order_id, d.product_id, COALESCE(p.name, ''), d.quantity, d.discount, d.price
		FROM order_details d
		LEFT JOIN products p ON p.id = d.product_id
		WHERE d.order_id = ANY($1)
		ORDER BY d.id
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("select order details: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			d         domain.OrderDetail
			productID sql.NullInt64
		)
		if err := rows.Scan(&d.ID, &d.OrderID, &productID, &d.ProductName, &d.Quantity, &d.Discount, &d.Price); err != nil {
			return fmt.Errorf("scan order detail: %w", err)
		}
		if productID.Valid {
			id := productID.Int64
			d.ProductID = &id
		}

		o := &orders[index[d.OrderID]]
		o.Details = append(o.Details, d)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows.Err: %w", err)
	}

	return nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.OrderStatus, shipperID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $3,
			shipper_id = COALESCE(NULLIF($4, '')::uuid, shipper_id),
			updated_at = $5
		WHERE id = $1 AND status = $2
	`, id, from, to, shipperID, at)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("res.RowsAffected: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("select order exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
	}

	return fmt.Errorf("order %d is no longer %s: %w", id, from, domain.ErrConflict)
}

func (r *OrderRepository) DeleteOrder(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("res.RowsAffected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
	}

	return nil
}
