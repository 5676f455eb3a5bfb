package runlog_test

import (
	"errors"
	"testing"
	"time"

	"github.com/recipeforge/recipeforge/internal/runlog"
	"github.com/recipeforge/recipeforge/pkg/models"
)

func TestCreateGet(t *testing.T) {
	s := runlog.New()
	s.Create("run-1", "recipe.json")

	rec, err := s.Get("run-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.Status != models.RunPending {
		t.Fatalf("Status = %v, want pending", rec.Status)
	}
}

func TestGetMissing(t *testing.T) {
	s := runlog.New()
	_, err := s.Get("nope")
	if !errors.Is(err, runlog.ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestCompleteSuccess(t *testing.T) {
	s := runlog.New()
	s.Create("run-1", "recipe.json")
	s.SetRunning("run-1")
	s.Complete("run-1", map[string]interface{}{"x": "1"}, nil)

	rec, _ := s.Get("run-1")
	if rec.Status != models.RunCompleted {
		t.Fatalf("Status = %v, want completed", rec.Status)
	}
	if rec.CompletedAt == nil {
		t.Fatal("CompletedAt = nil, want set")
	}
	if rec.Artifacts["x"] != "1" {
		t.Fatalf("Artifacts = %v", rec.Artifacts)
	}
}

func TestCompleteFailure(t *testing.T) {
	s := runlog.New()
	s.Create("run-1", "recipe.json")
	s.Complete("run-1", nil, errors.New("boom"))

	rec, _ := s.Get("run-1")
	if rec.Status != models.RunFailed {
		t.Fatalf("Status = %v, want failed", rec.Status)
	}
	if rec.Error != "boom" {
		t.Fatalf("Error = %q, want boom", rec.Error)
	}
}

func TestListOrderedNewestFirst(t *testing.T) {
	s := runlog.New()
	s.Create("run-a", "a.json")
	time.Sleep(2 * time.Millisecond)
	s.Create("run-b", "b.json")

	list := s.List()
	if len(list) != 2 || list[0].ID != "run-b" || list[1].ID != "run-a" {
		t.Fatalf("List() = %+v, want [run-b, run-a]", list)
	}
}

func TestEvictOlderThan(t *testing.T) {
	s := runlog.New()
	s.Create("run-1", "recipe.json")
	s.Complete("run-1", nil, nil)

	evicted := s.EvictOlderThan(time.Now().Add(-time.Hour))
	if evicted != 0 {
		t.Fatalf("EvictOlderThan(past) = %d, want 0 (record not old enough yet)", evicted)
	}

	evicted = s.EvictOlderThan(time.Now().Add(time.Hour))
	if evicted != 1 {
		t.Fatalf("EvictOlderThan(future) = %d, want 1", evicted)
	}
	if _, err := s.Get("run-1"); !errors.Is(err, runlog.ErrNotFound) {
		t.Fatal("record should have been evicted")
	}
}
