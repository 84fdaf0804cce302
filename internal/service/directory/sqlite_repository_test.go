package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"sales-routing-backend/internal/database"
	"sales-routing-backend/internal/model"
)

func newSQLiteRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := database.OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLiteRepository(db)
}

func testSeller(id string) model.SellerItem {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC).Format(time.RFC3339)
	return model.SellerItem{
		SellerID:                    id,
		DisplayName:                 "Seller " + id,
		ContactHandle:               "+5491100000000",
		Specialty:                   model.DefaultSpecialty,
		Status:                      model.SellerStatusOnline,
		Active:                      true,
		MaxClients:                  2,
		NotificationIntervalMinutes: model.DefaultNotificationInterval,
		CreatedAt:                   now,
		UpdatedAt:                   now,
	}
}

func TestSQLiteSellerLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)

	seller := testSeller("SELLER001")
	seller.DaysOff = []model.DayOff{{Date: "2026-03-09", Reason: "vacaciones"}}
	if err := repo.CreateSeller(ctx, seller); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.CreateSeller(ctx, seller); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := repo.GetSeller(ctx, "SELLER001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.DaysOff) != 1 || got.DaysOff[0].Reason != "vacaciones" {
		t.Fatalf("days off not round-tripped: %+v", got.DaysOff)
	}

	specialty := "ventas"
	updated, err := repo.UpdateSeller(ctx, "SELLER001", SellerUpdate{Specialty: &specialty})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Specialty != "ventas" {
		t.Fatalf("expected specialty ventas, got %q", updated.Specialty)
	}

	if _, err := repo.UpdateSeller(ctx, "SELLER404", SellerUpdate{Specialty: &specialty}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	list, err := repo.ListSellers(ctx, Filter{ActiveOnly: true, Specialty: " VENTAS "})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one seller, got %d", len(list))
	}

	if err := repo.DeleteSeller(ctx, "SELLER001"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetSeller(ctx, "SELLER001"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSQLiteCountersNeverNegative(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)
	if err := repo.CreateSeller(ctx, testSeller("SELLER001")); err != nil {
		t.Fatalf("create: %v", err)
	}

	n, err := repo.IncrementClients(ctx, "SELLER001")
	if err != nil || n != 1 {
		t.Fatalf("increment: n=%d err=%v", n, err)
	}
	if n, err = repo.DecrementClients(ctx, "SELLER001"); err != nil || n != 0 {
		t.Fatalf("decrement: n=%d err=%v", n, err)
	}
	for i := 0; i < 2; i++ {
		if n, err = repo.DecrementClients(ctx, "SELLER001"); !errors.Is(err, ErrCounterAtFloor) || n != 0 {
			t.Fatalf("decrement at floor: n=%d err=%v", n, err)
		}
	}
	if seller, err := repo.GetSeller(ctx, "SELLER001"); err != nil || seller.CurrentClients != 0 {
		t.Fatalf("expected counter to stay at 0, got %+v err=%v", seller, err)
	}
	if _, err := repo.DecrementClients(ctx, "SELLER404"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := repo.IncrementClients(ctx, "SELLER404"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteOneActiveAssignmentPerConversation(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)
	assignedAt := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC).Format(time.RFC3339)

	a := model.AssignmentItem{ConversationID: "5491122334455", SellerID: "SELLER001", Status: model.AssignmentStatusActive, AssignedAt: assignedAt}
	if err := repo.SaveAssignment(ctx, a); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.SaveAssignment(ctx, a); !errors.Is(err, ErrActiveAssignmentExists) {
		t.Fatalf("expected ErrActiveAssignmentExists, got %v", err)
	}

	done, err := repo.CompleteAssignment(ctx, a.ConversationID, time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != model.AssignmentStatusCompleted || done.CompletedAt == "" {
		t.Fatalf("unexpected completed assignment: %+v", done)
	}
	if _, err := repo.CompleteAssignment(ctx, a.ConversationID, time.Now()); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}
	if _, err := repo.CompleteAssignment(ctx, "unknown", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// a fresh binding is allowed once the previous one is retired
	a.SellerID = "SELLER002"
	if err := repo.SaveAssignment(ctx, a); err != nil {
		t.Fatalf("save after completion: %v", err)
	}
	active, err := repo.FindActiveAssignments(ctx)
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if len(active) != 1 || active[0].SellerID != "SELLER002" {
		t.Fatalf("unexpected active assignments: %+v", active)
	}
	if n, _ := repo.CountAssignments(ctx, a.ConversationID); n != 2 {
		t.Fatalf("expected 2 assignment rows, got %d", n)
	}
}
