package commandqueue

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/Chosen17/TraqrPOSCloud/internal/apperr"
)

func TestAckRejectsUnknownStatus(t *testing.T) {
	svc := NewService(nil)
	err := svc.Ack(context.Background(), uuid.New(), uuid.New(), "bogus", nil)
	if apperr.As(err).Kind != apperr.KindBadRequest {
		t.Fatalf("expected bad_request, got %v", err)
	}
}

func TestEnqueueSensitiveRejectsNonSensitiveType(t *testing.T) {
	svc := NewService(nil)
	err := svc.EnqueueSensitive(context.Background(), uuid.New(), uuid.New(), uuid.New(), TypeApplyMenu, nil)
	if apperr.As(err).Kind != apperr.KindBadRequest {
		t.Fatalf("expected bad_request, got %v", err)
	}
}
