// Package sqlite implements the persistence contracts on a local sqlite
// file: the durable same-device variant. Every mutation runs in a
// transaction and change subscriptions fire synchronously once the
// transaction has committed. Deleting a shop cascades to its tasks inside
// the same transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fieldsales/core/internal/adapters/repository/watch"
	"github.com/fieldsales/core/internal/domain/entities"
	"github.com/fieldsales/core/internal/infrastructure/database"
	"github.com/fieldsales/core/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS shops (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	owner_name   TEXT,
	phone_number TEXT NOT NULL DEFAULT '',
	location     TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	updates      TEXT NOT NULL DEFAULT '[]',
	created_at   TIMESTAMP NOT NULL,
	updated_at   TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tasks (
	id         TEXT PRIMARY KEY,
	shop_id    TEXT NOT NULL,
	type       TEXT NOT NULL,
	due_date   TEXT NOT NULL,
	status     TEXT NOT NULL,
	note       TEXT,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_shop_id ON tasks (shop_id);

CREATE TABLE IF NOT EXISTS preferences (
	key   TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);
`

// Store implements the shop, task and preference repositories on one
// sqlite database.
type Store struct {
	db *database.DB

	shopHub *watch.Hub[[]*entities.Shop]
	taskHub *watch.Hub[[]*entities.Task]
}

// NewStore prepares the schema and returns a ready store.
func NewStore(db *database.DB) (*Store, error) {
	if _, err := db.DB.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to prepare sqlite schema: %w", err)
	}

	return &Store{
		db:      db,
		shopHub: watch.NewHub[[]*entities.Shop](),
		taskHub: watch.NewHub[[]*entities.Task](),
	}, nil
}

// Shops returns the shop collection view of the store.
func (s *Store) Shops() ports.ShopRepository { return &shopRepo{s} }

// Tasks returns the task collection view of the store.
func (s *Store) Tasks() ports.TaskRepository { return &taskRepo{s} }

// Preferences returns the preference view of the store.
func (s *Store) Preferences() ports.PreferenceRepository { return &prefRepo{s} }

type shopRow struct {
	ID          string     `db:"id"`
	Name        string     `db:"name"`
	OwnerName   *string    `db:"owner_name"`
	PhoneNumber string     `db:"phone_number"`
	Location    string     `db:"location"`
	Status      string     `db:"status"`
	Updates     string     `db:"updates"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at"`
}

func (r shopRow) toEntity() (*entities.Shop, error) {
	var updates []entities.Update
	if err := json.Unmarshal([]byte(r.Updates), &updates); err != nil {
		return nil, fmt.Errorf("decode shop updates: %w", err)
	}
	return &entities.Shop{
		ID:          r.ID,
		Name:        r.Name,
		OwnerName:   r.OwnerName,
		PhoneNumber: r.PhoneNumber,
		Location:    r.Location,
		Status:      entities.ShopStatus(r.Status),
		Updates:     updates,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

func encodeUpdates(updates []entities.Update) (string, error) {
	if updates == nil {
		updates = []entities.Update{}
	}
	raw, err := json.Marshal(updates)
	if err != nil {
		return "", fmt.Errorf("encode shop updates: %w", err)
	}
	return string(raw), nil
}

type shopRepo struct{ s *Store }

func (r *shopRepo) Create(ctx context.Context, shop *entities.Shop) error {
	shop.ID = uuid.NewString()
	shop.CreatedAt = time.Now()

	updates, err := encodeUpdates(shop.Updates)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO shops (id, name, owner_name, phone_number, location, status, updates, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	if _, err := r.s.db.DB.ExecContext(ctx, query,
		shop.ID, shop.Name, shop.OwnerName, shop.PhoneNumber,
		shop.Location, shop.Status, updates, shop.CreatedAt,
	); err != nil {
		return fmt.Errorf("create shop: %w", err)
	}

	r.s.publishShops(ctx)
	return nil
}

func (r *shopRepo) GetByID(ctx context.Context, id string) (*entities.Shop, error) {
	query := `
		SELECT id, name, owner_name, phone_number, location, status, updates, created_at, updated_at
		FROM shops
		WHERE id = ?`

	var row shopRow
	if err := r.s.db.DB.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrShopNotFound
		}
		return nil, fmt.Errorf("get shop by id: %w", err)
	}

	return row.toEntity()
}

func (r *shopRepo) List(ctx context.Context) ([]*entities.Shop, error) {
	return listShops(ctx, r.s.db.DB)
}

func listShops(ctx context.Context, q sqlx.QueryerContext) ([]*entities.Shop, error) {
	query := `
		SELECT id, name, owner_name, phone_number, location, status, updates, created_at, updated_at
		FROM shops
		ORDER BY created_at, id`

	var rows []shopRow
	if err := sqlx.SelectContext(ctx, q, &rows, query); err != nil {
		return nil, fmt.Errorf("list shops: %w", err)
	}

	out := make([]*entities.Shop, 0, len(rows))
	for _, row := range rows {
		shop, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, shop)
	}
	return out, nil
}

func (r *shopRepo) Update(ctx context.Context, id string, patch ports.ShopPatch) error {
	err := r.s.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		var row shopRow
		query := `
			SELECT id, name, owner_name, phone_number, location, status, updates, created_at, updated_at
			FROM shops WHERE id = ?`
		if err := tx.GetContext(ctx, &row, query, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return entities.ErrShopNotFound
			}
			return fmt.Errorf("get shop for update: %w", err)
		}

		shop, err := row.toEntity()
		if err != nil {
			return err
		}
		patch.Apply(shop)

		update := `
			UPDATE shops
			SET name = ?, owner_name = ?, phone_number = ?, location = ?, status = ?, updated_at = ?
			WHERE id = ?`
		if _, err := tx.ExecContext(ctx, update,
			shop.Name, shop.OwnerName, shop.PhoneNumber, shop.Location, shop.Status, time.Now(), id,
		); err != nil {
			return fmt.Errorf("update shop: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.s.publishShops(ctx)
	return nil
}

// Delete removes the shop and all of its tasks in one transaction, so the
// cascade invariant holds even if the process dies mid-way.
func (r *shopRepo) Delete(ctx context.Context, id string) error {
	err := r.s.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM shops WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete shop: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete shop: %w", err)
		}
		if affected == 0 {
			return entities.ErrShopNotFound
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE shop_id = ?`, id); err != nil {
			return fmt.Errorf("cascade task delete: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.s.publishShops(ctx)
	r.s.publishTasks(ctx)
	return nil
}

// AppendUpdate prepends the visit note inside a transaction; the read and
// write cannot interleave with another append, so no update is ever lost.
func (r *shopRepo) AppendUpdate(ctx context.Context, shopID string, update entities.Update) error {
	err := r.s.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		var raw string
		if err := tx.GetContext(ctx, &raw, `SELECT updates FROM shops WHERE id = ?`, shopID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return entities.ErrShopNotFound
			}
			return fmt.Errorf("get shop updates: %w", err)
		}

		var updates []entities.Update
		if err := json.Unmarshal([]byte(raw), &updates); err != nil {
			return fmt.Errorf("decode shop updates: %w", err)
		}
		updates = append([]entities.Update{update}, updates...)

		encoded, err := encodeUpdates(updates)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `UPDATE shops SET updates = ? WHERE id = ?`, encoded, shopID); err != nil {
			return fmt.Errorf("append shop update: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.s.publishShops(ctx)
	return nil
}

func (r *shopRepo) Subscribe(fn func([]*entities.Shop)) func() {
	if snap, err := listShops(context.Background(), r.s.db.DB); err == nil {
		fn(snap)
	}
	return r.s.shopHub.Subscribe(fn)
}

type taskRow struct {
	ID        string    `db:"id"`
	ShopID    string    `db:"shop_id"`
	Type      string    `db:"type"`
	DueDate   string    `db:"due_date"`
	Status    string    `db:"status"`
	Note      *string   `db:"note"`
	CreatedAt time.Time `db:"created_at"`
}

func (r taskRow) toEntity() *entities.Task {
	return &entities.Task{
		ID:        r.ID,
		ShopID:    r.ShopID,
		Type:      entities.TaskType(r.Type),
		DueDate:   r.DueDate,
		Status:    entities.TaskStatus(r.Status),
		Note:      r.Note,
		CreatedAt: r.CreatedAt,
	}
}

type taskRepo struct{ s *Store }

func (r *taskRepo) Create(ctx context.Context, task *entities.Task) error {
	task.ID = uuid.NewString()
	task.CreatedAt = time.Now()

	query := `
		INSERT INTO tasks (id, shop_id, type, due_date, status, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	if _, err := r.s.db.DB.ExecContext(ctx, query,
		task.ID, task.ShopID, task.Type, task.DueDate, task.Status, task.Note, task.CreatedAt,
	); err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	r.s.publishTasks(ctx)
	return nil
}

func (r *taskRepo) GetByID(ctx context.Context, id string) (*entities.Task, error) {
	query := `
		SELECT id, shop_id, type, due_date, status, note, created_at
		FROM tasks
		WHERE id = ?`

	var row taskRow
	if err := r.s.db.DB.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task by id: %w", err)
	}

	return row.toEntity(), nil
}

func (r *taskRepo) List(ctx context.Context) ([]*entities.Task, error) {
	return listTasks(ctx, r.s.db.DB)
}

func listTasks(ctx context.Context, q sqlx.QueryerContext) ([]*entities.Task, error) {
	query := `
		SELECT id, shop_id, type, due_date, status, note, created_at
		FROM tasks
		ORDER BY created_at, id`

	var rows []taskRow
	if err := sqlx.SelectContext(ctx, q, &rows, query); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	out := make([]*entities.Task, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}

func (r *taskRepo) ListByShop(ctx context.Context, shopID string) ([]*entities.Task, error) {
	query := `
		SELECT id, shop_id, type, due_date, status, note, created_at
		FROM tasks
		WHERE shop_id = ?
		ORDER BY created_at, id`

	var rows []taskRow
	if err := r.s.db.DB.SelectContext(ctx, &rows, query, shopID); err != nil {
		return nil, fmt.Errorf("list shop tasks: %w", err)
	}

	out := make([]*entities.Task, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}

func (r *taskRepo) Update(ctx context.Context, id string, patch ports.TaskPatch) error {
	err := r.s.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		var row taskRow
		query := `
			SELECT id, shop_id, type, due_date, status, note, created_at
			FROM tasks WHERE id = ?`
		if err := tx.GetContext(ctx, &row, query, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return entities.ErrTaskNotFound
			}
			return fmt.Errorf("get task for update: %w", err)
		}

		task := row.toEntity()
		patch.Apply(task)

		update := `
			UPDATE tasks
			SET type = ?, due_date = ?, status = ?, note = ?
			WHERE id = ?`
		if _, err := tx.ExecContext(ctx, update,
			task.Type, task.DueDate, task.Status, task.Note, id,
		); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.s.publishTasks(ctx)
	return nil
}

// Delete is idempotent: an absent id is a no-op.
func (r *taskRepo) Delete(ctx context.Context, id string) error {
	res, err := r.s.db.DB.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil
	}

	r.s.publishTasks(ctx)
	return nil
}

func (r *taskRepo) DeleteByShop(ctx context.Context, shopID string) error {
	if _, err := r.s.db.DB.ExecContext(ctx, `DELETE FROM tasks WHERE shop_id = ?`, shopID); err != nil {
		return fmt.Errorf("delete shop tasks: %w", err)
	}

	r.s.publishTasks(ctx)
	return nil
}

func (r *taskRepo) Subscribe(fn func([]*entities.Task)) func() {
	if snap, err := listTasks(context.Background(), r.s.db.DB); err == nil {
		fn(snap)
	}
	return r.s.taskHub.Subscribe(fn)
}

type prefRepo struct{ s *Store }

func (r *prefRepo) GetBool(ctx context.Context, key string) (bool, error) {
	var value bool
	err := r.s.db.DB.GetContext(ctx, &value, `SELECT value FROM preferences WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get preference: %w", err)
	}
	return value, nil
}

func (r *prefRepo) SetBool(ctx context.Context, key string, value bool) error {
	query := `
		INSERT INTO preferences (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`
	if _, err := r.s.db.DB.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("set preference: %w", err)
	}
	return nil
}

// publishShops fans the current shop set out to subscribers. A snapshot
// that fails to load is skipped; the next mutation re-delivers.
func (s *Store) publishShops(ctx context.Context) {
	if snap, err := listShops(ctx, s.db.DB); err == nil {
		s.shopHub.Publish(snap)
	}
}

func (s *Store) publishTasks(ctx context.Context) {
	if snap, err := listTasks(ctx, s.db.DB); err == nil {
		s.taskHub.Publish(snap)
	}
}
