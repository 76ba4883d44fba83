package session

import (
	"sync"
	"testing"

	"github.com/svaboev-coder/Tornado-cooking/internal/domain"
)

func TestGetOrCreateStartsAtFirstStep(t *testing.T) {
	st := NewStore()

	s := st.GetOrCreate(42)
	if s.Step != domain.StepSelectBuilding {
		t.Errorf("expected new session at select_building, got %s", s.Step)
	}
	if s.Draft == nil {
		t.Fatal("expected non-nil draft")
	}

	s.Step = domain.StepEnterName
	again := st.GetOrCreate(42)
	if again != s {
		t.Error("expected the same session instance on repeat access")
	}
	if again.Step != domain.StepEnterName {
		t.Errorf("expected preserved step, got %s", again.Step)
	}
}

func TestClearRemovesSession(t *testing.T) {
	st := NewStore()
	st.GetOrCreate(1)
	st.Clear(1)

	if st.Get(1) != nil {
		t.Error("expected session to be gone after Clear")
	}
	if st.Len() != 0 {
		t.Errorf("expected empty store, got %d sessions", st.Len())
	}
}

func TestDisjointUsersAreIndependent(t *testing.T) {
	st := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			s := st.GetOrCreate(id)
			s.Lock()
			s.Step = domain.StepEnterName
			s.Draft.Name = "user"
			s.Unlock()
		}(int64(i))
	}
	wg.Wait()

	if st.Len() != 50 {
		t.Fatalf("expected 50 sessions, got %d", st.Len())
	}
	for i := 0; i < 50; i++ {
		if s := st.Get(int64(i)); s == nil || s.Step != domain.StepEnterName {
			t.Fatalf("session %d missing or in wrong step", i)
		}
	}
}
