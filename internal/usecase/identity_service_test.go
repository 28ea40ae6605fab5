package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/courtmetrics/hoop-ingest/internal/domain/identity"
	"github.com/courtmetrics/hoop-ingest/internal/infrastructure/repository/memory"
	idgen "github.com/courtmetrics/hoop-ingest/internal/platform/id"
)

func TestIdentityService_ResolveIsStable(t *testing.T) {
	ctx := context.Background()
	svc := NewIdentityService(memory.NewIdentityRepository(), idgen.NewRandomGenerator())

	first, err := svc.Resolve(ctx, identity.KindTeam, "Boston Celtics")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// Spelling variants of the same natural key bind to the same id.
	for _, variant := range []string{"boston celtics", "  Boston   Celtics ", "BOSTON CELTICS"} {
		got, err := svc.Resolve(ctx, identity.KindTeam, variant)
		if err != nil {
			t.Fatalf("resolve %q: %v", variant, err)
		}
		if got != first {
			t.Fatalf("variant %q resolved to %s, want %s", variant, got, first)
		}
	}
}

func TestIdentityService_KindsAreIndependent(t *testing.T) {
	ctx := context.Background()
	svc := NewIdentityService(memory.NewIdentityRepository(), idgen.NewRandomGenerator())

	teamID, err := svc.Resolve(ctx, identity.KindTeam, "Jordan")
	if err != nil {
		t.Fatalf("resolve team: %v", err)
	}
	playerID, err := svc.Resolve(ctx, identity.KindPlayer, "Jordan")
	if err != nil {
		t.Fatalf("resolve player: %v", err)
	}
	if teamID == playerID {
		t.Fatalf("expected distinct ids per kind, both were %s", teamID)
	}
}

func TestIdentityService_EmptyKeyRejected(t *testing.T) {
	svc := NewIdentityService(memory.NewIdentityRepository(), idgen.NewRandomGenerator())

	_, err := svc.Resolve(context.Background(), identity.KindTeam, "   ")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestIdentityService_LookupDoesNotCreate(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewIdentityRepository()
	svc := NewIdentityService(repo, idgen.NewRandomGenerator())

	if _, ok, err := svc.Lookup(ctx, identity.KindPlayer, "Never Seen"); err != nil || ok {
		t.Fatalf("unexpected lookup result: ok=%v err=%v", ok, err)
	}
	if repo.Len() != 0 {
		t.Fatalf("lookup must not create mappings, store has %d", repo.Len())
	}

	created, err := svc.Resolve(ctx, identity.KindPlayer, "Never Seen")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got, ok, err := svc.Lookup(ctx, identity.KindPlayer, "never seen")
	if err != nil || !ok {
		t.Fatalf("unexpected lookup result: ok=%v err=%v", ok, err)
	}
	if got != created {
		t.Fatalf("lookup returned %s, want %s", got, created)
	}
}

func TestIdentityService_ConcurrentResolveSingleWinner(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewIdentityRepository()
	svc := NewIdentityService(repo, idgen.NewRandomGenerator())

	const goroutines = 32
	ids := make([]string, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := svc.Resolve(ctx, identity.KindPlayer, "LeBron James")
			if err != nil {
				t.Errorf("resolve: %v", err)
				return
			}
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("goroutine %d resolved %s, want %s", i, ids[i], ids[0])
		}
	}
	if repo.Len() != 1 {
		t.Fatalf("expected a single mapping, store has %d", repo.Len())
	}
}
