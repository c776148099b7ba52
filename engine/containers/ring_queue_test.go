package containers

import "testing"

func TestRingQueueFIFOOrder(t *testing.T) {
	t.Parallel()

	rq := NewRingQueue[int](4)
	for i := 1; i <= 3; i++ {
		if err := rq.Enqueue(i); err != nil {
			t.Fatal(err)
		}
	}
	if rq.Len() != 3 {
		t.Fatalf("Len = %d, want 3", rq.Len())
	}
	for i := 1; i <= 3; i++ {
		got, err := rq.Dequeue()
		if err != nil {
			t.Fatal(err)
		}
		if got != i {
			t.Errorf("Dequeue = %d, want %d", got, i)
		}
	}
	if !rq.IsEmpty() {
		t.Error("queue should be empty after draining")
	}
}

func TestRingQueueFullAndEmpty(t *testing.T) {
	t.Parallel()

	rq := NewRingQueue[string](2)
	if _, err := rq.Dequeue(); err == nil {
		t.Error("dequeue on empty queue must fail")
	}
	if _, err := rq.Peek(); err == nil {
		t.Error("peek on empty queue must fail")
	}

	if err := rq.Enqueue("a"); err != nil {
		t.Fatal(err)
	}
	if err := rq.Enqueue("b"); err != nil {
		t.Fatal(err)
	}
	if !rq.IsFull() {
		t.Error("queue should be full")
	}
	if err := rq.Enqueue("c"); err == nil {
		t.Error("enqueue on full queue must fail")
	}

	front, err := rq.Peek()
	if err != nil || front != "a" {
		t.Errorf("Peek = %q, %v", front, err)
	}
	if rq.Len() != 2 {
		t.Error("peek must not consume")
	}
}

func TestRingQueueWrapAround(t *testing.T) {
	t.Parallel()

	rq := NewRingQueue[int](3)
	for round := 0; round < 5; round++ {
		base := round * 10
		for i := 0; i < 3; i++ {
			if err := rq.Enqueue(base + i); err != nil {
				t.Fatal(err)
			}
		}
		for i := 0; i < 3; i++ {
			got, err := rq.Dequeue()
			if err != nil {
				t.Fatal(err)
			}
			if got != base+i {
				t.Fatalf("round %d: Dequeue = %d, want %d", round, got, base+i)
			}
		}
	}
}
