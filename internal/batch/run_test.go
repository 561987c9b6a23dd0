package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vtikhonov/cv-screener/internal/ai"
	"github.com/vtikhonov/cv-screener/internal/candidate"
	"github.com/vtikhonov/cv-screener/internal/extract"
)

func TestNewRunValidation(t *testing.T) {
	set := &candidate.Set{Items: []*candidate.Document{textDoc("cv.txt", "go dev")}}
	scorer := &queueScorer{}

	if _, err := NewRun(set, "job", scorer, Config{Workers: 0}, zap.NewNop()); err == nil {
		t.Fatal("expected error for zero workers")
	}

	if _, err := NewRun(set, "job", scorer, Config{Workers: -2}, zap.NewNop()); err == nil {
		t.Fatal("expected error for negative workers")
	}

	if _, err := NewRun(set, "   ", scorer, Config{Workers: 1}, zap.NewNop()); err == nil {
		t.Fatal("expected error for empty job description")
	}

	if _, err := NewRun(set, "job", nil, Config{Workers: 1}, zap.NewNop()); err == nil {
		t.Fatal("expected error for missing scorer")
	}
}

func TestExecuteSevenDocumentsFiveWorkers(t *testing.T) {
	docs := make([]*candidate.Document, 0, 7)
	for i := 0; i < 7; i++ {
		docs = append(docs, textDoc(fmt.Sprintf("cv-%d.txt", i), fmt.Sprintf("resume %d", i)))
	}

	scorer := &queueScorer{}
	run := newTestRun(t, docs, scorer, Config{Workers: 5})

	if err := run.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := run.Snapshot()

	sizes := []int{2, 2, 1, 1, 1}
	for i, want := range sizes {
		if snap.Agents[i].TotalAssigned != want {
			t.Fatalf("agent %d: expected %d assigned, got %d", i, want, snap.Agents[i].TotalAssigned)
		}
	}

	if !snap.Completed() {
		t.Fatalf("expected all agents completed: %+v", snap.Agents)
	}

	for _, a := range snap.Agents {
		if a.Progress != 100 || a.Processed != a.TotalAssigned {
			t.Fatalf("unexpected agent state: %+v", a)
		}
	}

	for _, item := range snap.Items {
		if item.Status != StatusCompleted || item.Result == nil {
			t.Fatalf("expected completed item with result: %+v", item)
		}
	}

	if snap.Processed != 7 || snap.Total != 7 {
		t.Fatalf("expected 7 of 7 processed, got %d of %d", snap.Processed, snap.Total)
	}

	if got := scorer.calls(); got != 7 {
		t.Fatalf("expected 7 scorer calls, got %d", got)
	}
}

func TestExecuteEmptyInput(t *testing.T) {
	scorer := &queueScorer{}
	run := newTestRun(t, nil, scorer, Config{Workers: 5})

	if err := run.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := run.Snapshot()

	if len(snap.Agents) != 5 {
		t.Fatalf("expected 5 agents, got %d", len(snap.Agents))
	}

	for _, a := range snap.Agents {
		if a.Status != AgentCompleted {
			t.Fatalf("expected agent %s completed, got %s", a.Name, a.Status)
		}
		if a.Progress != 100 || a.TotalAssigned != 0 || a.Processed != 0 {
			t.Fatalf("unexpected agent state: %+v", a)
		}
	}

	if got := scorer.calls(); got != 0 {
		t.Fatalf("expected no scorer calls, got %d", got)
	}

	if snap.Percent() != 100 {
		t.Fatalf("expected overall progress 100, got %v", snap.Percent())
	}
}

func TestExecuteMoreWorkersThanDocuments(t *testing.T) {
	docs := []*candidate.Document{
		textDoc("a.txt", "resume a"),
		textDoc("b.txt", "resume b"),
	}

	run := newTestRun(t, docs, &queueScorer{}, Config{Workers: 5})

	if err := run.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := run.Snapshot()
	for i, a := range snap.Agents {
		if a.Status != AgentCompleted {
			t.Fatalf("agent %d not completed: %+v", i, a)
		}
		want := 0
		if i < 2 {
			want = 1
		}
		if a.TotalAssigned != want {
			t.Fatalf("agent %d: expected %d assigned, got %d", i, want, a.TotalAssigned)
		}
	}
}

func TestExecuteFailureIsolation(t *testing.T) {
	scorer := scorerFunc(func(_ context.Context, content *extract.Content, _ string) (*ai.Assessment, error) {
		if strings.Contains(content.Text, "broken") {
			return nil, errors.New("provider rejected the document")
		}
		return &ai.Assessment{Fit: true, Score: 0.8}, nil
	})

	docs := []*candidate.Document{
		textDoc("a.txt", "resume a"),
		textDoc("broken.txt", "broken resume"),
		textDoc("c.txt", "resume c"),
		textDoc("d.txt", "resume d"),
	}

	run := newTestRun(t, docs, scorer, Config{Workers: 2})

	if err := run.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := run.Snapshot()
	if !snap.Completed() {
		t.Fatalf("expected completed run")
	}

	if snap.Failed != 1 {
		t.Fatalf("expected exactly 1 failed item, got %d", snap.Failed)
	}

	for _, item := range snap.Items {
		if item.Status != StatusCompleted {
			t.Fatalf("expected item %s completed, got %s", item.Name, item.Status)
		}

		if item.Name == "broken.txt" {
			if !item.Result.Failed() || item.Result.Error == "" {
				t.Fatalf("expected error result for broken document: %+v", item.Result)
			}
			continue
		}

		if item.Result.Failed() {
			t.Fatalf("expected success for %s, got %+v", item.Name, item.Result)
		}
	}

	if snap.Matched != 3 {
		t.Fatalf("expected 3 matched, got %d", snap.Matched)
	}
}

func TestExecuteRejectsReinvocation(t *testing.T) {
	run := newTestRun(t, []*candidate.Document{textDoc("a.txt", "resume")}, &queueScorer{}, Config{Workers: 1})

	if err := run.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := run.Execute(context.Background()); err == nil {
		t.Fatal("expected error on second execution")
	}
}

func TestSnapshotObservesLiveProgress(t *testing.T) {
	release := make(chan struct{})
	scorer := scorerFunc(func(_ context.Context, _ *extract.Content, _ string) (*ai.Assessment, error) {
		<-release
		return &ai.Assessment{Fit: true, Score: 0.9}, nil
	})

	docs := []*candidate.Document{
		textDoc("a.txt", "resume a"),
		textDoc("b.txt", "resume b"),
	}

	run := newTestRun(t, docs, scorer, Config{Workers: 1})

	done := make(chan error, 1)
	go func() {
		done <- run.Execute(context.Background())
	}()

	waitSnapshot := func(cond func(*Snapshot) bool) *Snapshot {
		t.Helper()
		deadline := time.After(5 * time.Second)
		lastProcessed := 0
		for {
			select {
			case <-deadline:
				t.Fatal("condition not reached before deadline")
			default:
			}

			snap := run.Snapshot()
			if snap.Processed < lastProcessed {
				t.Fatalf("processed count decreased from %d to %d", lastProcessed, snap.Processed)
			}
			lastProcessed = snap.Processed

			if cond(snap) {
				return snap
			}
			time.Sleep(time.Millisecond)
		}
	}

	working := waitSnapshot(func(s *Snapshot) bool {
		return s.Agents[0].Status == AgentWorking && s.Agents[0].CurrentItem != ""
	})

	if working.Agents[0].CurrentItem != "a.txt" {
		t.Fatalf("expected first document in flight, got %q", working.Agents[0].CurrentItem)
	}

	release <- struct{}{}

	one := waitSnapshot(func(s *Snapshot) bool { return s.Processed == 1 })
	if one.Items[0].Status != StatusCompleted {
		t.Fatalf("expected first item completed, got %s", one.Items[0].Status)
	}

	release <- struct{}{}

	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	final := run.Snapshot()
	if !final.Completed() || final.Processed != 2 || final.Agents[0].CurrentItem != "" {
		t.Fatalf("unexpected final state: %+v", final.Agents[0])
	}
}

func TestExecuteCompletesWhenContextCanceled(t *testing.T) {
	scorer := &queueScorer{}

	docs := []*candidate.Document{
		textDoc("a.txt", "resume a"),
		textDoc("b.txt", "resume b"),
	}

	run := newTestRun(t, docs, scorer, Config{Workers: 2, Pacing: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := run.Execute(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := run.Snapshot()
	if !snap.Completed() {
		t.Fatalf("expected run to complete under cancellation")
	}

	for _, item := range snap.Items {
		if item.Status != StatusCompleted || !item.Result.Failed() {
			t.Fatalf("expected canceled item to carry an error result: %+v", item)
		}
		if !strings.Contains(item.Result.Error, "canceled") {
			t.Fatalf("unexpected error reason: %q", item.Result.Error)
		}
	}

	if got := scorer.calls(); got != 0 {
		t.Fatalf("expected no scorer calls after cancellation, got %d", got)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	run := newTestRun(t, []*candidate.Document{textDoc("a.txt", "resume")}, &queueScorer{}, Config{Workers: 1})

	snap := run.Snapshot()
	snap.Agents[0].Processed = 42
	snap.Items[0].Status = "mutated"

	fresh := run.Snapshot()
	if fresh.Agents[0].Processed != 0 {
		t.Fatalf("snapshot mutation leaked into run state")
	}
	if fresh.Items[0].Status != StatusPending {
		t.Fatalf("item mutation leaked into run state")
	}
}
