package queue_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cherry/cherry/pkg/queue"
	"github.com/cherry/cherry/pkg/source"
	"github.com/cherry/cherry/pkg/types"
)

func mem(name string) source.Source {
	return source.NewMemory(types.FileTypeJavaScript, []byte(name))
}

func drain(t *testing.T, w *queue.Worklist) []string {
	t.Helper()
	var got []string
	for {
		src, ok := w.PopBack()
		if !ok {
			break
		}
		data, err := src.Read()
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		got = append(got, string(data))
	}
	return got
}

func TestWorklist_ReversePushRestoresOrder(t *testing.T) {
	w := queue.NewWorklist()
	entries := []string{"a", "b", "c"}
	for i := len(entries) - 1; i >= 0; i-- {
		w.PushBack(mem(entries[i]))
	}

	if diff := cmp.Diff(entries, drain(t, w)); diff != "" {
		t.Errorf("pop order mismatch (-want +got):\n%s", diff)
	}
	if w.Len() != 0 {
		t.Errorf("Len() = %d after drain, want 0", w.Len())
	}
}

func TestWorklist_PushFrontIsProcessedLast(t *testing.T) {
	w := queue.NewWorklist()
	w.PushBack(mem("later"))
	w.PushBack(mem("next"))
	w.PushFront(mem("runtime"))

	if w.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", w.Len())
	}
	want := []string{"next", "later", "runtime"}
	if diff := cmp.Diff(want, drain(t, w)); diff != "" {
		t.Errorf("pop order mismatch (-want +got):\n%s", diff)
	}
}

func TestWorklist_PushFrontOnEmpty(t *testing.T) {
	w := queue.NewWorklist()
	w.PushFront(mem("only"))

	if diff := cmp.Diff([]string{"only"}, drain(t, w)); diff != "" {
		t.Errorf("pop order mismatch (-want +got):\n%s", diff)
	}
}

func TestWorklist_PopEmpty(t *testing.T) {
	w := queue.NewWorklist()
	if src, ok := w.PopBack(); ok || src != nil {
		t.Errorf("PopBack() on empty = %v, %v", src, ok)
	}
}

func TestWorklist_ImplementsScheduler(t *testing.T) {
	var s queue.Scheduler = queue.NewWorklist()
	s.PushBack(mem("x"))
}
