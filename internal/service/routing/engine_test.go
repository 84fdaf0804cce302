package routing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"sales-routing-backend/internal/model"
	"sales-routing-backend/internal/service/directory"

	"github.com/prometheus/client_golang/prometheus"
)

type fakeDirectory struct {
	mu          sync.Mutex
	sellers     map[string]model.SellerItem
	assignments map[string]model.AssignmentItem
	saveErr     error
	completeErr error
}

func newFakeDirectory(sellers ...model.SellerItem) *fakeDirectory {
	d := &fakeDirectory{
		sellers:     make(map[string]model.SellerItem),
		assignments: make(map[string]model.AssignmentItem),
	}
	for _, s := range sellers {
		d.sellers[s.SellerID] = s
	}
	return d
}

func (d *fakeDirectory) GetSeller(ctx context.Context, sellerID string) (model.SellerItem, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sellers[sellerID]
	if !ok {
		return model.SellerItem{}, directory.ErrNotFound
	}
	return s, nil
}

func (d *fakeDirectory) ListSellers(ctx context.Context, filter directory.Filter) ([]model.SellerItem, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]model.SellerItem, 0, len(d.sellers))
	for _, s := range d.sellers {
		if filter.ActiveOnly && !s.Active {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SellerID < out[j].SellerID })
	return out, nil
}

func (d *fakeDirectory) UpdateSeller(ctx context.Context, sellerID string, update directory.SellerUpdate) (model.SellerItem, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sellers[sellerID]
	if !ok {
		return model.SellerItem{}, directory.ErrNotFound
	}
	if update.CurrentClients != nil {
		s.CurrentClients = *update.CurrentClients
	}
	if update.Active != nil {
		s.Active = *update.Active
	}
	d.sellers[sellerID] = s
	return s, nil
}

func (d *fakeDirectory) IncrementClients(ctx context.Context, sellerID string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sellers[sellerID]
	if !ok {
		return 0, directory.ErrNotFound
	}
	s.CurrentClients++
	d.sellers[sellerID] = s
	return s.CurrentClients, nil
}

func (d *fakeDirectory) DecrementClients(ctx context.Context, sellerID string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sellers[sellerID]
	if !ok {
		return 0, directory.ErrNotFound
	}
	if s.CurrentClients == 0 {
		return 0, directory.ErrCounterAtFloor
	}
	s.CurrentClients--
	d.sellers[sellerID] = s
	return s.CurrentClients, nil
}

func (d *fakeDirectory) SaveAssignment(ctx context.Context, a model.AssignmentItem) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.saveErr != nil {
		return d.saveErr
	}
	if cur, ok := d.assignments[a.ConversationID]; ok && cur.Status == model.AssignmentStatusActive {
		return directory.ErrActiveAssignmentExists
	}
	d.assignments[a.ConversationID] = a
	return nil
}

func (d *fakeDirectory) CompleteAssignment(ctx context.Context, conversationID string, completedAt time.Time) (model.AssignmentItem, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.completeErr != nil {
		return model.AssignmentItem{}, d.completeErr
	}
	a, ok := d.assignments[conversationID]
	if !ok {
		return model.AssignmentItem{}, directory.ErrNotFound
	}
	if a.Status != model.AssignmentStatusActive {
		return a, directory.ErrAlreadyCompleted
	}
	a.Status = model.AssignmentStatusCompleted
	a.CompletedAt = completedAt.Format(time.RFC3339)
	d.assignments[conversationID] = a
	return a, nil
}

func (d *fakeDirectory) FindActiveAssignments(ctx context.Context) ([]model.AssignmentItem, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []model.AssignmentItem
	for _, a := range d.assignments {
		if a.Status == model.AssignmentStatusActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (d *fakeDirectory) clients(sellerID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sellers[sellerID].CurrentClients
}

func (d *fakeDirectory) activeFor(sellerID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, a := range d.assignments {
		if a.SellerID == sellerID && a.Status == model.AssignmentStatusActive {
			n++
		}
	}
	return n
}

func seller(id string, maxClients, current int) model.SellerItem {
	return model.SellerItem{
		SellerID:       id,
		DisplayName:    id,
		Specialty:      model.DefaultSpecialty,
		Status:         model.SellerStatusOnline,
		Active:         true,
		MaxClients:     maxClients,
		CurrentClients: current,
	}
}

func newEngine(dir Directory) *Engine {
	return New(dir, Options{Registerer: prometheus.NewRegistry()})
}

func TestAssignAlternatesRoundRobin(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory(seller("A", 2, 0), seller("B", 2, 0))
	engine := newEngine(dir)

	want := []string{"A", "B", "A", "B"}
	for i, expected := range want {
		got, err := engine.Assign(ctx, fmt.Sprintf("conv-%d", i), "")
		if err != nil {
			t.Fatalf("assign %d: %v", i, err)
		}
		if got.SellerID != expected {
			t.Fatalf("assign %d: expected %s, got %s", i, expected, got.SellerID)
		}
	}
	if dir.clients("A") != 2 || dir.clients("B") != 2 {
		t.Fatalf("expected 2/2 load, got A=%d B=%d", dir.clients("A"), dir.clients("B"))
	}
}

func TestAssignOverflowPicksLeastLoaded(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory(seller("A", 1, 1), seller("B", 1, 1))
	engine := newEngine(dir)

	got, err := engine.Assign(ctx, "conv-3", "")
	if err != nil {
		t.Fatalf("overflow assign should succeed: %v", err)
	}
	if got.SellerID != "A" {
		t.Fatalf("expected tie broken by scan order to A, got %s", got.SellerID)
	}
	if got.CurrentClients != 2 {
		t.Fatalf("expected A to absorb the excess, got %d clients", got.CurrentClients)
	}

	dir2 := newFakeDirectory(seller("A", 1, 3), seller("B", 1, 1))
	got, err = newEngine(dir2).Assign(ctx, "conv-4", "")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got.SellerID != "B" {
		t.Fatalf("expected least loaded B, got %s", got.SellerID)
	}
}

func TestAssignPrefersSpecialty(t *testing.T) {
	ctx := context.Background()
	sales := seller("B", 3, 0)
	sales.Specialty = "Mayorista"
	dir := newFakeDirectory(seller("A", 3, 0), sales)
	engine := newEngine(dir)

	for i := 0; i < 2; i++ {
		got, err := engine.Assign(ctx, fmt.Sprintf("conv-%d", i), "mayorista")
		if err != nil {
			t.Fatalf("assign: %v", err)
		}
		if got.SellerID != "B" {
			t.Fatalf("expected specialist B, got %s", got.SellerID)
		}
	}

	got, err := engine.Assign(ctx, "conv-x", "joyeria")
	if err != nil {
		t.Fatalf("assign with unmatched specialty: %v", err)
	}
	if got.SellerID == "" {
		t.Fatalf("expected a seller when no specialist matches")
	}
}

func TestAssignIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory(seller("A", 5, 0), seller("B", 5, 0))
	engine := newEngine(dir)

	first, err := engine.Assign(ctx, "conv-1", "")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := engine.Assign(ctx, "conv-1", "")
		if err != nil {
			t.Fatalf("repeat assign: %v", err)
		}
		if again.SellerID != first.SellerID {
			t.Fatalf("conversation switched seller from %s to %s", first.SellerID, again.SellerID)
		}
	}
	if dir.clients(first.SellerID) != 1 {
		t.Fatalf("expected a single increment, got %d", dir.clients(first.SellerID))
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory(seller("A", 2, 0))
	engine := newEngine(dir)

	if _, err := engine.Assign(ctx, "conv-1", ""); err != nil {
		t.Fatalf("assign: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := engine.Release(ctx, "conv-1"); err != nil {
			t.Fatalf("release %d: %v", i, err)
		}
	}
	if err := engine.Release(ctx, "never-assigned"); err != nil {
		t.Fatalf("release of unknown conversation: %v", err)
	}
	if dir.clients("A") != 0 {
		t.Fatalf("expected 0 clients, got %d", dir.clients("A"))
	}
	if _, ok, _ := engine.GetAssigned(ctx, "conv-1"); ok {
		t.Fatalf("expected no seller after release")
	}

	stats := engine.Stats()
	if stats.TotalAssignments != 1 || stats.CompletedConversations != 1 || stats.ActiveConversations != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestAssignFailsWithoutSellers(t *testing.T) {
	ctx := context.Background()
	_, err := newEngine(newFakeDirectory()).Assign(ctx, "conv-1", "")
	if !errors.Is(err, ErrNoSellersAvailable) {
		t.Fatalf("expected ErrNoSellersAvailable, got %v", err)
	}

	inactive := seller("A", 2, 0)
	inactive.Active = false
	_, err = newEngine(newFakeDirectory(inactive)).Assign(ctx, "conv-1", "")
	var routingErr *Error
	if !errors.As(err, &routingErr) || routingErr.Code != ErrorCodeNoSellersAvailable {
		t.Fatalf("expected no_sellers_available, got %v", err)
	}

	_, err = newEngine(newFakeDirectory(seller("A", 1, 0))).Assign(ctx, "  ", "")
	if !errors.As(err, &routingErr) || routingErr.Code != ErrorCodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAssignRollsBackCounterWhenSaveFails(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory(seller("A", 2, 0))
	dir.saveErr = errors.New("store unreachable")
	engine := newEngine(dir)

	if _, err := engine.Assign(ctx, "conv-1", ""); err == nil {
		t.Fatalf("expected persistence error to propagate")
	}
	if dir.clients("A") != 0 {
		t.Fatalf("expected counter rolled back to 0, got %d", dir.clients("A"))
	}
	if _, ok := engine.Assignment("conv-1"); ok {
		t.Fatalf("failed assignment must not be cached")
	}
}

func TestReleaseRollsBackCounterWhenCompleteFails(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory(seller("A", 2, 0))
	engine := newEngine(dir)

	if _, err := engine.Assign(ctx, "conv-1", ""); err != nil {
		t.Fatalf("assign: %v", err)
	}
	dir.completeErr = errors.New("store unreachable")
	if err := engine.Release(ctx, "conv-1"); err == nil {
		t.Fatalf("expected persistence error to propagate")
	}
	if dir.clients("A") != 1 {
		t.Fatalf("expected counter restored to 1, got %d", dir.clients("A"))
	}

	dir.completeErr = nil
	if err := engine.Release(ctx, "conv-1"); err != nil {
		t.Fatalf("retry release: %v", err)
	}
	if dir.clients("A") != 0 || dir.activeFor("A") != 0 {
		t.Fatalf("expected clean release, clients=%d active=%d", dir.clients("A"), dir.activeFor("A"))
	}
}

func TestReleaseDoesNotInflateCounterAtFloor(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory(seller("A", 2, 0))
	engine := newEngine(dir)

	if _, err := engine.Assign(ctx, "conv-1", ""); err != nil {
		t.Fatalf("assign: %v", err)
	}
	// The stored counter drifted to zero behind the engine's back.
	zero := 0
	if _, err := dir.UpdateSeller(ctx, "A", directory.SellerUpdate{CurrentClients: &zero}); err != nil {
		t.Fatalf("update: %v", err)
	}

	dir.completeErr = errors.New("store unreachable")
	if err := engine.Release(ctx, "conv-1"); err == nil {
		t.Fatalf("expected persistence error to propagate")
	}
	if dir.clients("A") != 0 {
		t.Fatalf("expected counter to stay at 0, got %d", dir.clients("A"))
	}

	dir.completeErr = nil
	if err := engine.Release(ctx, "conv-1"); err != nil {
		t.Fatalf("retry release: %v", err)
	}
	if dir.clients("A") != 0 || dir.activeFor("A") != 0 {
		t.Fatalf("expected clean release, clients=%d active=%d", dir.clients("A"), dir.activeFor("A"))
	}
}

func TestAssignReplacesInactiveSeller(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory(seller("A", 2, 0), seller("B", 2, 0))
	engine := newEngine(dir)

	first, err := engine.Assign(ctx, "conv-1", "")
	if err != nil || first.SellerID != "A" {
		t.Fatalf("assign: %v %+v", err, first)
	}

	off := false
	dir.UpdateSeller(ctx, "A", directory.SellerUpdate{Active: &off})

	second, err := engine.Assign(ctx, "conv-1", "")
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if second.SellerID != "B" {
		t.Fatalf("expected reassignment to B, got %s", second.SellerID)
	}
	if dir.clients("A") != 0 || dir.activeFor("A") != 0 {
		t.Fatalf("expected A's binding to be retired, clients=%d", dir.clients("A"))
	}
	if dir.activeFor("B") != 1 {
		t.Fatalf("expected exactly one active assignment on B")
	}
}

func TestConcurrentAssignKeepsCountersConsistent(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory(seller("A", 5, 0), seller("B", 5, 0), seller("C", 5, 0))
	engine := newEngine(dir)

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// every conversation is requested twice concurrently
			conv := fmt.Sprintf("conv-%d", i%15)
			if _, err := engine.Assign(ctx, conv, ""); err != nil {
				t.Errorf("assign %s: %v", conv, err)
			}
		}(i)
	}
	wg.Wait()

	total := 0
	for _, id := range []string{"A", "B", "C"} {
		if dir.clients(id) != dir.activeFor(id) {
			t.Fatalf("seller %s drifted: clients=%d active=%d", id, dir.clients(id), dir.activeFor(id))
		}
		total += dir.clients(id)
	}
	if total != 15 {
		t.Fatalf("expected 15 bound conversations, got %d", total)
	}
	if len(engine.ActiveConversations()) != 15 {
		t.Fatalf("expected 15 cached conversations, got %d", len(engine.ActiveConversations()))
	}
}

func TestLoadReconcilesCounters(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory(seller("A", 5, 4), seller("B", 5, 0))
	dir.assignments["conv-1"] = model.AssignmentItem{ConversationID: "conv-1", SellerID: "A", Status: model.AssignmentStatusActive}
	dir.assignments["conv-2"] = model.AssignmentItem{ConversationID: "conv-2", SellerID: "B", Status: model.AssignmentStatusActive}
	dir.assignments["conv-3"] = model.AssignmentItem{ConversationID: "conv-3", SellerID: "B", Status: model.AssignmentStatusCompleted}

	engine := newEngine(dir)
	if err := engine.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if dir.clients("A") != 1 || dir.clients("B") != 1 {
		t.Fatalf("expected reconciled counters 1/1, got A=%d B=%d", dir.clients("A"), dir.clients("B"))
	}

	got, ok, err := engine.GetAssigned(ctx, "conv-2")
	if err != nil || !ok || got.SellerID != "B" {
		t.Fatalf("expected conv-2 bound to B after load, got %+v ok=%v err=%v", got, ok, err)
	}
	if err := engine.Release(ctx, "conv-1"); err != nil {
		t.Fatalf("release loaded assignment: %v", err)
	}
	if dir.clients("A") != 0 {
		t.Fatalf("expected A at 0, got %d", dir.clients("A"))
	}
}
