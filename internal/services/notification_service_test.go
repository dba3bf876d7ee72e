package services

import (
	"context"
	"errors"
	"testing"

	"familybudget/internal/core"
	"familybudget/internal/storage/memory"
)

func TestNotificationListLimit(t *testing.T) {
	tests := []struct {
		name    string
		limit   int
		wantErr bool
	}{
		{"default", 0, false},
		{"one", 1, false},
		{"max", MaxNotificationLimit, false},
		{"negative", -1, true},
		{"too large", MaxNotificationLimit + 1, true},
	}
	svc := NewNotificationService(memory.New(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.List(context.Background(), "alice", false, tt.limit)
			if tt.wantErr != errors.Is(err, ErrValidation) {
				t.Errorf("List(limit=%d) error = %v, wantErr %v", tt.limit, err, tt.wantErr)
			}
		})
	}
}

func TestNotificationReadFlow(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	svc := NewNotificationService(repo, nil)

	for _, class := range []core.ThresholdClass{core.ThresholdWarning, core.ThresholdExceeded} {
		intent := core.NotificationIntent{
			FamilyID: family, BudgetID: 1, BudgetName: "Groceries",
			PeriodStart: core.NewDate(2025, 3, 1), Class: class, Type: class.NotificationType(),
			DedupKey: core.DedupKey(1, core.NewDate(2025, 3, 1), class),
		}
		if ok, err := repo.RecordAlert(ctx, intent, []string{"alice", "bob"}); err != nil || !ok {
			t.Fatalf("RecordAlert(%s) = %v, %v", class, ok, err)
		}
	}

	list, err := svc.List(ctx, "alice", true, 0)
	if err != nil || len(list) != 2 {
		t.Fatalf("List() = %d items, err %v", len(list), err)
	}
	if err := svc.MarkRead(ctx, "alice", list[0].ID); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	if n, _ := svc.UnreadCount(ctx, "alice"); n != 1 {
		t.Errorf("unread = %d, want 1", n)
	}
	// Marking another member's notification is not visible to them.
	if err := svc.MarkRead(ctx, "bob", list[1].ID); err == nil {
		t.Error("bob must not mark alice's notification")
	}

	n, err := svc.MarkAllRead(ctx, "alice")
	if err != nil || n != 1 {
		t.Errorf("MarkAllRead() = %d, %v, want 1", n, err)
	}
	if n, _ := svc.UnreadCount(ctx, "bob"); n != 2 {
		t.Errorf("bob unread = %d, want 2", n)
	}
}
