// Package postgres implements the persistence contracts on a hosted
// postgres database: the remote-store variant. Change subscriptions are fed
// by LISTEN/NOTIFY rather than by the local mutation path, so every
// subscriber sees the server-side state the same way, whichever process
// changed it. Delivery is eventually consistent. Shop deletion cascades to
// tasks through a foreign key, so the cascade invariant holds here too.
package postgres

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
	"github.com/fieldsales/core/internal/infrastructure/logger"
	"github.com/fieldsales/core/internal/ports"
)

// Store implements the shop, task and preference repositories on postgres.
type Store struct {
	db     *database.DB
	logger *logger.Logger

	shopHub *watch.Hub[[]*entities.Shop]
	taskHub *watch.Hub[[]*entities.Task]

	listener *changeListener
}

// NewStore connects the change listener and returns a ready store. The
// schema is managed by migrations, not here.
func NewStore(db *database.DB, dsn string, log *logger.Logger) (*Store, error) {
	s := &Store{
		db:      db,
		logger:  log,
		shopHub: watch.NewHub[[]*entities.Shop](),
		taskHub: watch.NewHub[[]*entities.Task](),
	}

	listener, err := newChangeListener(dsn, log, s.onChange)
	if err != nil {
		return nil, fmt.Errorf("failed to start change listener: %w", err)
	}
	s.listener = listener

	return s, nil
}

// Close stops the change listener.
func (s *Store) Close() error {
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// Shops returns the shop collection view of the store.
func (s *Store) Shops() ports.ShopRepository { return &shopRepo{s} }

// Tasks returns the task collection view of the store.
func (s *Store) Tasks() ports.TaskRepository { return &taskRepo{s} }

// Preferences returns the preference view of the store.
func (s *Store) Preferences() ports.PreferenceRepository { return &prefRepo{s} }

// onChange re-reads the changed collection and fans the fresh snapshot out.
// The payload names the table the server-side trigger fired for.
func (s *Store) onChange(collection string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch collection {
	case "shops":
		snap, err := listShops(ctx, s.db.DB)
		if err != nil {
			s.logger.Errorw("Failed to load shop snapshot after change", "error", err)
			return
		}
		s.shopHub.Publish(snap)
	case "tasks":
		snap, err := listTasks(ctx, s.db.DB)
		if err != nil {
			s.logger.Errorw("Failed to load task snapshot after change", "error", err)
			return
		}
		s.taskHub.Publish(snap)
	default:
		s.logger.Warnw("Change notification for unknown collection", "collection", collection)
	}
}

type shopRow struct {
	ID          string     `db:"id"`
	Name        string     `db:"name"`
	OwnerName   *string    `db:"owner_name"`
	PhoneNumber string     `db:"phone_number"`
	Location    string     `db:"location"`
	Status      string     `db:"status"`
	Updates     []byte     `db:"updates"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at"`
}

func (r shopRow) toEntity() (*entities.Shop, error) {
	var updates []entities.Update
	if err := json.Unmarshal(r.Updates, &updates); err != nil {
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

type shopRepo struct{ s *Store }

func (r *shopRepo) Create(ctx context.Context, shop *entities.Shop) error {
	shop.ID = uuid.NewString()

	updates := shop.Updates
	if updates == nil {
		updates = []entities.Update{}
	}
	raw, err := json.Marshal(updates)
	if err != nil {
		return fmt.Errorf("encode shop updates: %w", err)
	}

	query := `
		INSERT INTO shops (id, name, owner_name, phone_number, location, status, updates)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	if err := r.s.db.DB.QueryRowContext(ctx, query,
		shop.ID, shop.Name, shop.OwnerName, shop.PhoneNumber,
		shop.Location, shop.Status, raw,
	).Scan(&shop.CreatedAt); err != nil {
		return fmt.Errorf("create shop: %w", err)
	}

	return nil
}

func (r *shopRepo) GetByID(ctx context.Context, id string) (*entities.Shop, error) {
	query := `
		SELECT id, name, owner_name, phone_number, location, status, updates, created_at, updated_at
		FROM shops
		WHERE id = $1`

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

func listShops(ctx context.Context, db *sqlx.DB) ([]*entities.Shop, error) {
	query := `
		SELECT id, name, owner_name, phone_number, location, status, updates, created_at, updated_at
		FROM shops
		ORDER BY created_at, id`

	var rows []shopRow
	if err := db.SelectContext(ctx, &rows, query); err != nil {
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
	return r.s.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		var row shopRow
		query := `
			SELECT id, name, owner_name, phone_number, location, status, updates, created_at, updated_at
			FROM shops WHERE id = $1 FOR UPDATE`
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
			SET name = $2, owner_name = $3, phone_number = $4, location = $5, status = $6, updated_at = now()
			WHERE id = $1`
		if _, err := tx.ExecContext(ctx, update,
			id, shop.Name, shop.OwnerName, shop.PhoneNumber, shop.Location, shop.Status,
		); err != nil {
			return fmt.Errorf("update shop: %w", err)
		}
		return nil
	})
}

// Delete removes the shop; tasks referencing it go with it via the
// ON DELETE CASCADE foreign key.
func (r *shopRepo) Delete(ctx context.Context, id string) error {
	res, err := r.s.db.DB.ExecContext(ctx, `DELETE FROM shops WHERE id = $1`, id)
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
	return nil
}

// AppendUpdate prepends the visit note server-side in a single statement, so
// concurrent appends cannot lose each other.
func (r *shopRepo) AppendUpdate(ctx context.Context, shopID string, update entities.Update) error {
	raw, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("encode shop update: %w", err)
	}

	query := `
		UPDATE shops
		SET updates = jsonb_insert(COALESCE(updates, '[]'::jsonb), '{0}', $2::jsonb)
		WHERE id = $1`

	res, err := r.s.db.DB.ExecContext(ctx, query, shopID, raw)
	if err != nil {
		return fmt.Errorf("append shop update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("append shop update: %w", err)
	}
	if affected == 0 {
		return entities.ErrShopNotFound
	}
	return nil
}

func (r *shopRepo) Subscribe(fn func([]*entities.Shop)) func() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if snap, err := listShops(ctx, r.s.db.DB); err == nil {
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

	query := `
		INSERT INTO tasks (id, shop_id, type, due_date, status, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	if err := r.s.db.DB.QueryRowContext(ctx, query,
		task.ID, task.ShopID, task.Type, task.DueDate, task.Status, task.Note,
	).Scan(&task.CreatedAt); err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	return nil
}

func (r *taskRepo) GetByID(ctx context.Context, id string) (*entities.Task, error) {
	query := `
		SELECT id, shop_id, type, due_date, status, note, created_at
		FROM tasks
		WHERE id = $1`

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

func listTasks(ctx context.Context, db *sqlx.DB) ([]*entities.Task, error) {
	query := `
		SELECT id, shop_id, type, due_date, status, note, created_at
		FROM tasks
		ORDER BY created_at, id`

	var rows []taskRow
	if err := db.SelectContext(ctx, &rows, query); err != nil {
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
		WHERE shop_id = $1
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
	return r.s.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		var row taskRow
		query := `
			SELECT id, shop_id, type, due_date, status, note, created_at
			FROM tasks WHERE id = $1 FOR UPDATE`
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
			SET type = $2, due_date = $3, status = $4, note = $5
			WHERE id = $1`
		if _, err := tx.ExecContext(ctx, update,
			id, task.Type, task.DueDate, task.Status, task.Note,
		); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		return nil
	})
}

// Delete is idempotent: an absent id is a no-op.
func (r *taskRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.s.db.DB.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (r *taskRepo) DeleteByShop(ctx context.Context, shopID string) error {
	if _, err := r.s.db.DB.ExecContext(ctx, `DELETE FROM tasks WHERE shop_id = $1`, shopID); err != nil {
		return fmt.Errorf("delete shop tasks: %w", err)
	}
	return nil
}

func (r *taskRepo) Subscribe(fn func([]*entities.Task)) func() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if snap, err := listTasks(ctx, r.s.db.DB); err == nil {
		fn(snap)
	}
	return r.s.taskHub.Subscribe(fn)
}

type prefRepo struct{ s *Store }

func (r *prefRepo) GetBool(ctx context.Context, key string) (bool, error) {
	var value bool
	err := r.s.db.DB.GetContext(ctx, &value, `SELECT value FROM preferences WHERE key = $1`, key)
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
		INSERT INTO preferences (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
	if _, err := r.s.db.DB.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("set preference: %w", err)
	}
	return nil
}
