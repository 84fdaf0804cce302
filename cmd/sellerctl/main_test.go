package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"sales-routing-backend/internal/stores"
)

func openTestStores(t *testing.T) *stores.Stores {
	t.Helper()
	st, err := stores.Open(context.Background(), stores.Options{Backend: "sqlite", SQLitePath: ":memory:"})
	if err != nil {
		t.Fatalf("open stores: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func run(t *testing.T, st *stores.Stores, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(st)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, st *stores.Stores, args ...string) string {
	t.Helper()
	out, err := run(t, st, args...)
	if err != nil {
		t.Fatalf("sellerctl %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestSellerLifecycle(t *testing.T) {
	st := openTestStores(t)

	out := mustRun(t, st, "seller", "add", "--name", "Ana", "--contact", "+5491100000001", "--specialty", "mayorista", "--max-clients", "3")
	if !strings.Contains(out, "SELLER001") {
		t.Fatalf("add output = %q", out)
	}
	mustRun(t, st, "seller", "add", "--name", "Bruno", "--contact", "+5491100000002")

	out = mustRun(t, st, "seller", "list", "--specialty", "mayorista")
	if !strings.Contains(out, "Ana") || strings.Contains(out, "Bruno") {
		t.Fatalf("filtered list = %q", out)
	}

	mustRun(t, st, "seller", "update", "SELLER002", "--max-clients", "7", "--name", "Bruno M")
	seller, err := st.Sellers.GetSeller(context.Background(), "SELLER002")
	if err != nil {
		t.Fatalf("get seller: %v", err)
	}
	if seller.MaxClients != 7 || seller.DisplayName != "Bruno M" || seller.ContactHandle != "+5491100000002" {
		t.Fatalf("updated seller = %+v", seller)
	}

	out = mustRun(t, st, "seller", "status", "SELLER002", "busy", "--active=false")
	if !strings.Contains(out, "active=false") {
		t.Fatalf("status output = %q", out)
	}

	mustRun(t, st, "seller", "dayoff", "add", "SELLER001", "2026-12-24", "--reason", "vacaciones")
	if _, err := run(t, st, "seller", "dayoff", "add", "SELLER001", "2026-12-24"); err == nil {
		t.Fatal("expected conflict on duplicate day off")
	}
	mustRun(t, st, "seller", "dayoff", "remove", "SELLER001", "2026-12-24")

	out = mustRun(t, st, "workload")
	if !strings.Contains(out, "2 sellers, 1 active") {
		t.Fatalf("workload output = %q", out)
	}

	mustRun(t, st, "seller", "delete", "SELLER001")
	if _, err := run(t, st, "seller", "delete", "SELLER001"); err == nil {
		t.Fatal("expected not found on second delete")
	}
}

func TestSellerCommandValidation(t *testing.T) {
	st := openTestStores(t)

	if _, err := run(t, st, "seller", "add", "--name", "Ana"); err == nil {
		t.Fatal("expected missing --contact to fail")
	}
	if _, err := run(t, st, "seller", "add", "--name", "Ana", "--contact", "1", "--work-start", "25:00", "--work-end", "18:00"); err == nil {
		t.Fatal("expected invalid work window to fail")
	}
	if _, err := run(t, st, "seller", "status", "SELLER001"); err == nil {
		t.Fatal("expected status without a value to fail")
	}
}

func TestOperatorCreate(t *testing.T) {
	st := openTestStores(t)

	out := mustRun(t, st, "operator", "create", "--email", "Ops@Example.com", "--password", "supersecret")
	if !strings.Contains(out, "ops@example.com") {
		t.Fatalf("create output = %q", out)
	}
	if _, err := run(t, st, "operator", "create", "--email", "ops@example.com", "--password", "supersecret"); err == nil {
		t.Fatal("expected duplicate operator to fail")
	}
	if _, err := run(t, st, "operator", "create", "--email", "short@example.com", "--password", "abc"); err == nil {
		t.Fatal("expected short password to fail")
	}

	out = mustRun(t, st, "operator", "list")
	if !strings.Contains(out, "ops@example.com") {
		t.Fatalf("list output = %q", out)
	}
}
