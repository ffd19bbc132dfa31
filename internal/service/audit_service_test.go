package service

import (
	"context"
	"testing"
	"time"

	"church-payments/internal/core/domain"
	"church-payments/internal/core/ports/mocks"

	"github.com/google/uuid"
	"go.uber.org/mock/gomock"
)

func TestAuditService_Log_PersistsToRepo(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockAuditRepository(ctrl)
	svc := NewAuditService(mockRepo, newTestLogger())

	done := make(chan struct{})
	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, log *domain.AuditLog) error {
			if log.Action != domain.AuditActionRefundDecide {
				t.Errorf("expected REFUND_DECIDE, got %s", log.Action)
			}
			if log.ID == "" {
				t.Error("expected an id to be assigned")
			}
			close(done)
			return nil
		},
	)

	svc.Log(context.Background(), &domain.AuditLog{
		ActorID:      "admin-1",
		Action:       domain.AuditActionRefundDecide,
		ResourceType: "refund_request",
		ResourceID:   uuid.NewString(),
		IPAddress:    "127.0.0.1",
	})

	select {
	case <-done:
		// OK
	case <-time.After(2 * time.Second):
		t.Fatal("audit log not persisted in time")
	}
}

func TestAuditService_Log_NilRepo(t *testing.T) {
	svc := NewAuditService(nil, newTestLogger())

	// Should not panic
	svc.Log(context.Background(), &domain.AuditLog{
		ActorID:      "admin-1",
		Action:       domain.AuditActionWebhookReplay,
		ResourceType: "webhook_failure",
		IPAddress:    "127.0.0.1",
	})

	time.Sleep(50 * time.Millisecond) // let goroutine run
}
