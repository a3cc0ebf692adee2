// Package repository persists the node tree with gorm.
//
// Import Path: nodetree.io/nodetree/internal/repository
package repository

import "nodetree.io/nodetree/internal/domain"

// nodeRecord is the row shape of table node. Children exists only so that
// AutoMigrate emits the self-referential ON DELETE CASCADE foreign key.
type nodeRecord struct {
	ID              int64        `gorm:"primaryKey;autoIncrement"`
	Name            string       `gorm:"type:varchar(255);not null;uniqueIndex"`
	ParentID        *int64       `gorm:"index"`
	Children        []nodeRecord `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE"`
	CanHaveChildren bool         `gorm:"not null"`
	MinNum          int          `gorm:"type:smallint;not null"`
	MaxNum          int          `gorm:"type:smallint;not null"`
}

func (nodeRecord) TableName() string { return "node" }

func (r nodeRecord) toDomain() domain.Node {
	return domain.Node{
		ID:              r.ID,
		Name:            r.Name,
		ParentID:        r.ParentID,
		CanHaveChildren: r.CanHaveChildren,
		MinNum:          r.MinNum,
		MaxNum:          r.MaxNum,
	}
}

func recordFromDomain(n *domain.Node) nodeRecord {
	return nodeRecord{
		ID:              n.ID,
		Name:            n.Name,
		ParentID:        n.ParentID,
		CanHaveChildren: n.CanHaveChildren,
		MinNum:          n.MinNum,
		MaxNum:          n.MaxNum,
	}
}

func toDomainSlice(recs []nodeRecord) []domain.Node {
	out := make([]domain.Node, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toDomain())
	}
	return out
}
