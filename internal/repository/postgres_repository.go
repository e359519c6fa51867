package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/GG-IM/tiendas-mass-orders/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "orders_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// --- catalog lookups ---

func (r *Repository) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, price, stock FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Price, &p.Stock)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}

func (r *Repository) GetPaymentMethod(ctx context.Context, id int64) (*domain.PaymentMethod, error) {
	var m domain.PaymentMethod
	var commission sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, commission_pct FROM payment_methods WHERE id = $1`, id).
		Scan(&m.ID, &m.Name, &commission)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentMethodNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query payment method: %w", err)
	}
	if commission.Valid {
		c, convErr := decimal.NewFromString(commission.String)
		if convErr != nil {
			return nil, fmt.Errorf("parse commission for method %d: %w", id, convErr)
		}
		m.CommissionPct = c
	}
	return &m, nil
}

func (r *Repository) GetShippingMethod(ctx context.Context, id int64) (*domain.ShippingMethod, error) {
	var m domain.ShippingMethod
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, price FROM shipping_methods WHERE id = $1`, id).
		Scan(&m.ID, &m.Name, &m.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrShippingMethodNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query shipping method: %w", err)
	}
	return &m, nil
}

func (r *Repository) GetDefaultShippingMethod(ctx context.Context) (*domain.ShippingMethod, error) {
	var m domain.ShippingMethod
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, price FROM shipping_methods ORDER BY id ASC LIMIT 1`).
		Scan(&m.ID, &m.Name, &m.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrShippingMethodNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query default shipping method: %w", err)
	}
	return &m, nil
}

// --- orders ---

func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin order transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO orders (id, user_id, shipping_address, payment_method_id, shipping_method_id,
	                              delivery_type, status, payment_status, total, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())`

	_, insertErr := tx.ExecContext(ctx, query,
		order.ID,
		order.UserID,
		order.ShippingAddress,
		order.PaymentMethodID,
		order.ShippingMethodID,
		order.DeliveryType,
		order.Status,
		order.PaymentStatus,
		order.Total)
	if insertErr != nil {
		return fmt.Errorf("insert order: %w", insertErr)
	}

	// Conditional decrement: the WHERE clause re-checks stock so two
	// concurrent orders cannot both drain the same units. Zero affected
	// rows means either the product vanished or stock ran out since the
	// validation pass; both abort the whole transaction.
	decrement := `UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`
	itemInsert := `INSERT INTO order_items (order_id, product_id, quantity, unit_price)
	               VALUES ($1, $2, $3, $4)`

	for i := range order.Items {
		item := &order.Items[i]

		res, decErr := tx.ExecContext(ctx, decrement, item.ProductID, item.Quantity)
		if decErr != nil {
			return fmt.Errorf("decrement stock for product %d: %w", item.ProductID, decErr)
		}
		affected, raErr := res.RowsAffected()
		if raErr != nil {
			return fmt.Errorf("decrement stock for product %d: %w", item.ProductID, raErr)
		}
		if affected == 0 {
			var name string
			nameErr := tx.QueryRowContext(ctx,
				`SELECT name FROM products WHERE id = $1`, item.ProductID).Scan(&name)
			if errors.Is(nameErr, sql.ErrNoRows) {
				return ErrProductNotFound
			}
			return &InsufficientStockError{
				ProductID:   item.ProductID,
				ProductName: name,
				Requested:   item.Quantity,
			}
		}

		item.OrderID = order.ID
		if _, itemErr := tx.ExecContext(ctx, itemInsert,
			item.OrderID, item.ProductID, item.Quantity, item.UnitPrice); itemErr != nil {
			return fmt.Errorf("insert order item for product %d: %w", item.ProductID, itemErr)
		}
	}

	if err := enqueueEvent(ctx, tx, order.ID.String(), "order_created", orderEventPayload(order)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order transaction: %w", err)
	}
	return nil
}

func (r *Repository) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT id, user_id, shipping_address, payment_method_id, shipping_method_id,
	                 delivery_type, status, payment_status, total, created_at, shipped_at
	          FROM orders WHERE id = $1`

	var order domain.Order
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.UserID,
		&order.ShippingAddress,
		&order.PaymentMethodID,
		&order.ShippingMethodID,
		&order.DeliveryType,
		&order.Status,
		&order.PaymentStatus,
		&order.Total,
		&order.CreatedAt,
		&order.ShippedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, product_id, quantity, unit_price
		 FROM order_items WHERE order_id = $1 ORDER BY id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("order item iteration: %w", err)
	}

	return &order, nil
}

func (r *Repository) ApplyPaymentStatus(ctx context.Context, id uuid.UUID, target domain.PaymentStatus) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin payment status transaction: %w", err)
	}
	defer tx.Rollback()

	// Compare-and-swap: only a PENDING order moves. A terminal row is left
	// untouched so out-of-order notifications cannot regress it.
	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET payment_status = $2 WHERE id = $1 AND payment_status = $3`,
		id, target, domain.PaymentStatusPending)
	if err != nil {
		return false, fmt.Errorf("update payment status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update payment status: %w", err)
	}

	if affected == 0 {
		var current domain.PaymentStatus
		scanErr := tx.QueryRowContext(ctx,
			`SELECT payment_status FROM orders WHERE id = $1`, id).Scan(&current)
		if errors.Is(scanErr, sql.ErrNoRows) {
			return false, ErrOrderNotFound
		}
		if scanErr != nil {
			return false, fmt.Errorf("query payment status: %w", scanErr)
		}
		return false, nil
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"order_id":       id.String(),
		"payment_status": target,
	})
	if err := enqueueEvent(ctx, tx, id.String(), "payment_status_changed", payload); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit payment status transaction: %w", err)
	}
	return true, nil
}

// --- payment references ---

func (r *Repository) SavePaymentReference(ctx context.Context, ref *domain.PaymentReference) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payment_references (order_id, preference_id, created_at) VALUES ($1, $2, NOW())`,
		ref.OrderID, ref.PreferenceID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicatePreference
		}
		return fmt.Errorf("insert payment reference: %w", err)
	}
	return nil
}

func (r *Repository) BindPaymentID(ctx context.Context, orderID uuid.UUID, paymentID string) error {
	// The latest preference for the order wins; earlier preferences from
	// abandoned checkout attempts stay unbound.
	_, err := r.db.ExecContext(ctx,
		`UPDATE payment_references SET payment_id = $2
		 WHERE order_id = $1 AND created_at = (
		     SELECT MAX(created_at) FROM payment_references WHERE order_id = $1)`,
		orderID, paymentID)
	if err != nil {
		return fmt.Errorf("bind payment id: %w", err)
	}
	return nil
}

func (r *Repository) GetReferenceByPreferenceID(ctx context.Context, preferenceID string) (*domain.PaymentReference, error) {
	var ref domain.PaymentReference
	err := r.db.QueryRowContext(ctx,
		`SELECT order_id, preference_id, payment_id, created_at
		 FROM payment_references WHERE preference_id = $1`, preferenceID).
		Scan(&ref.OrderID, &ref.PreferenceID, &ref.PaymentID, &ref.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReferenceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query payment reference: %w", err)
	}
	return &ref, nil
}

// --- outbox ---

func enqueueEvent(ctx context.Context, tx *sql.Tx, aggregateID, eventType string, payload []byte) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO outbox_events (aggregate_id, event_type, payload, processed, created_at)
		 VALUES ($1, $2, $3, FALSE, NOW())`,
		aggregateID, eventType, payload)
	if err != nil {
		return fmt.Errorf("enqueue outbox event %s: %w", eventType, err)
	}
	return nil
}

func orderEventPayload(order *domain.Order) []byte {
	items := make([]map[string]interface{}, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, map[string]interface{}{
			"product_id": item.ProductID,
			"quantity":   item.Quantity,
			"unit_price": item.UnitPrice,
		})
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"order_id":      order.ID.String(),
		"user_id":       order.UserID,
		"total":         order.Total,
		"delivery_type": order.DeliveryType,
		"items":         items,
	})
	return payload
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_id, event_type, payload, created_at
		 FROM outbox_events WHERE processed = FALSE ORDER BY id ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("outbox event iteration: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET processed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark outbox event %d processed: %w", id, err)
	}
	return nil
}
