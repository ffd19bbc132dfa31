package mongodb

import (
	"context"
	"fmt"

	"church-payments/internal/core/domain"
	"church-payments/internal/core/ports"

	"go.mongodb.org/mongo-driver/mongo"
)

type auditRepo struct {
	coll *mongo.Collection
}

// NewAuditRepository creates a MongoDB-backed AuditRepository.
func NewAuditRepository(db *mongo.Database) ports.AuditRepository {
	return &auditRepo{coll: db.Collection(CollAuditLogs)}
}

func (r *auditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	if _, err := r.coll.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
