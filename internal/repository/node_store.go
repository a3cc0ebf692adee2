package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nodetree.io/nodetree/internal/domain"
	"nodetree.io/nodetree/internal/pkg/logger"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const subtreeCTE = `WITH RECURSIVE subtree(id) AS (
	SELECT id FROM node WHERE id = ?
	UNION ALL
	SELECT n.id FROM node n JOIN subtree s ON n.parent_id = s.id
)`

// NodeStore is the durable collection of nodes. Every method runs in a single
// transaction bounded by the configured operation timeout.
type NodeStore struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewNodeStore creates a NodeStore. A non-positive timeout disables the bound.
func NewNodeStore(db *gorm.DB, timeout time.Duration) *NodeStore {
	return &NodeStore{db: db, timeout: timeout}
}

// Migrate creates or updates table node.
func (s *NodeStore) Migrate(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.db.WithContext(ctx).AutoMigrate(&nodeRecord{}); err != nil {
		return fmt.Errorf("migrate node table: %w", err)
	}
	return nil
}

// Ping checks that the database answers.
func (s *NodeStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// EnsureRoot returns the root node, creating it with window w when missing.
// created reports whether this call inserted it.
func (s *NodeStore) EnsureRoot(ctx context.Context, w domain.Window) (root *domain.Node, created bool, err error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rec nodeRecord
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("parent_id IS NULL AND name = ?", domain.RootName).Order("id").First(&rec).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		rec = nodeRecord{Name: domain.RootName, CanHaveChildren: true, MinNum: w.Min, MaxNum: w.Max}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil && isUniqueViolation(err) {
		// Lost the race against another instance; read the winner's row.
		created = false
		rec = nodeRecord{}
		err = s.db.WithContext(ctx).Where("parent_id IS NULL AND name = ?", domain.RootName).First(&rec).Error
	}
	if err != nil {
		return nil, false, translate(err)
	}
	n := rec.toDomain()
	return &n, created, nil
}

// Create inserts n and sets n.ID.
func (s *NodeStore) Create(ctx context.Context, n *domain.Node) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rec := recordFromDomain(n)
	rec.ID = 0
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return translate(err)
	}
	n.ID = rec.ID
	return nil
}

// Get returns the node with the given id.
func (s *NodeStore) Get(ctx context.Context, id int64) (*domain.Node, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rec nodeRecord
	if err := s.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		return nil, translate(err)
	}
	n := rec.toDomain()
	return &n, nil
}

// FindByName returns the node called name.
func (s *NodeStore) FindByName(ctx context.Context, name string) (*domain.Node, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rec nodeRecord
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&rec).Error; err != nil {
		return nil, translate(err)
	}
	n := rec.toDomain()
	return &n, nil
}

// Forest returns the root nodes and every node of the tree, read in one
// transaction so that both slices describe the same state.
func (s *NodeStore) Forest(ctx context.Context) (roots, nodes []domain.Node, err error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rootRecs, allRecs []nodeRecord
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_id IS NULL AND name = ?", domain.RootName).Order("id").Find(&rootRecs).Error; err != nil {
			return err
		}
		return tx.Order("id").Find(&allRecs).Error
	})
	if err != nil {
		return nil, nil, translate(err)
	}
	return toDomainSlice(rootRecs), toDomainSlice(allRecs), nil
}

// Subtree returns the node and all of its descendants, ordered by id.
func (s *NodeStore) Subtree(ctx context.Context, id int64) ([]domain.Node, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var recs []nodeRecord
	err := s.db.WithContext(ctx).Raw(
		subtreeCTE+` SELECT node.* FROM node JOIN subtree ON node.id = subtree.id ORDER BY node.id`, id,
	).Scan(&recs).Error
	if err != nil {
		return nil, translate(err)
	}
	if len(recs) == 0 {
		return nil, domain.ErrNodeNotFound
	}
	return toDomainSlice(recs), nil
}

// Update writes the name and window of an existing node.
func (s *NodeStore) Update(ctx context.Context, n *domain.Node) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current nodeRecord
		if err := tx.First(&current, n.ID).Error; err != nil {
			return err
		}
		cur := current.toDomain()
		if cur.IsRoot() && n.Name != domain.RootName {
			return domain.ErrRootProtected
		}
		return tx.Model(&nodeRecord{ID: n.ID}).Updates(map[string]interface{}{
			"name":    n.Name,
			"min_num": n.MinNum,
			"max_num": n.MaxNum,
		}).Error
	})
	return translate(err)
}

// Delete removes the node and its whole subtree. It returns the number of
// removed nodes.
func (s *NodeStore) Delete(ctx context.Context, id int64) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec nodeRecord
		if err := tx.First(&rec, id).Error; err != nil {
			return err
		}
		n := rec.toDomain()
		if n.IsRoot() {
			return domain.ErrRootProtected
		}

		ids, err := subtreeIDs(tx, id, true)
		if err != nil {
			return err
		}
		// Cascaded rows are not counted by every driver, so report the subtree size.
		if err := tx.Where("id IN ?", ids).Delete(&nodeRecord{}).Error; err != nil {
			return err
		}
		removed = int64(len(ids))
		return nil
	})
	if err != nil {
		return 0, translate(err)
	}
	return removed, nil
}

// ReplaceChildren deletes every descendant of parentID and inserts the nodes
// returned by build as its new direct children, atomically. The parent row is
// locked for the duration on PostgreSQL; SQLite serializes writers already.
func (s *NodeStore) ReplaceChildren(ctx context.Context, parentID int64, build domain.ChildBuilder) ([]domain.Node, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var created []domain.Node
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var parentRec nodeRecord
		if err := q.First(&parentRec, parentID).Error; err != nil {
			return err
		}
		parent := parentRec.toDomain()
		if !parent.CanHaveChildren {
			return domain.ErrLeafNode
		}

		descendants, err := subtreeIDs(tx, parentID, false)
		if err != nil {
			return err
		}
		if len(descendants) > 0 {
			if err := tx.Where("id IN ?", descendants).Delete(&nodeRecord{}).Error; err != nil {
				return err
			}
		}

		children, err := build(parent)
		if err != nil {
			return err
		}
		created = make([]domain.Node, 0, len(children))
		for i := range children {
			rec := recordFromDomain(&children[i])
			rec.ID = 0
			rec.ParentID = &parent.ID
			if err := tx.Create(&rec).Error; err != nil {
				return err
			}
			created = append(created, rec.toDomain())
		}

		logger.Debug("Children replaced",
			zap.Int64("parent_id", parentID),
			zap.Int("removed", len(descendants)),
			zap.Int("inserted", len(created)),
		)
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return created, nil
}

// subtreeIDs lists id and its descendants, or only the descendants when
// includeSelf is false.
func subtreeIDs(tx *gorm.DB, id int64, includeSelf bool) ([]int64, error) {
	query := subtreeCTE + ` SELECT id FROM subtree`
	args := []interface{}{id}
	if !includeSelf {
		query += ` WHERE id <> ?`
		args = append(args, id)
	}
	var ids []int64
	if err := tx.Raw(query, args...).Scan(&ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *NodeStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// translate maps driver errors to domain sentinels. Domain sentinels returned
// from inside a transaction pass through unchanged.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNodeNotFound
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %v", domain.ErrNameTaken, err)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%w: parent missing: %v", domain.ErrNodeNotFound, err)
	default:
		return err
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var liteErr sqlite3.Error
	return errors.As(err, &liteErr) &&
		(liteErr.ExtendedCode == sqlite3.ErrConstraintUnique || liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
}

func isForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}
	var liteErr sqlite3.Error
	return errors.As(err, &liteErr) && liteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
