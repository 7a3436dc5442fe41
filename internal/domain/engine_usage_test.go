package domain

import (
	"context"
	"sync"
	"testing"
)

func TestEngineUsage_ContextRoundTrip(t *testing.T) {
	ctx, u := NewContextWithUsage(context.Background())
	if got := UsageFromContext(ctx); got != u {
		t.Fatal("UsageFromContext returned a different collector")
	}
	u.AddTokens(120)
	u.AddTokens(30)
	if u.TotalTokens() != 150 {
		t.Errorf("TotalTokens() = %d, want 150", u.TotalTokens())
	}
	if u.Calls() != 2 {
		t.Errorf("Calls() = %d, want 2", u.Calls())
	}
}

func TestEngineUsage_MissingFromContext(t *testing.T) {
	if UsageFromContext(context.Background()) != nil {
		t.Fatal("expected nil collector for plain context")
	}
}

func TestEngineUsage_NilSafe(t *testing.T) {
	var u *EngineUsage
	u.AddTokens(10) // must not panic
	if u.TotalTokens() != 0 || u.Calls() != 0 {
		t.Error("nil collector should report zero usage")
	}
}

func TestEngineUsage_ConcurrentAdds(t *testing.T) {
	_, u := NewContextWithUsage(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u.AddTokens(10)
		}()
	}
	wg.Wait()

	if u.TotalTokens() != 500 {
		t.Errorf("TotalTokens() = %d, want 500", u.TotalTokens())
	}
	if u.Calls() != 50 {
		t.Errorf("Calls() = %d, want 50", u.Calls())
	}
}
