package api

import (
	"context"
	"errors"
	"testing"

	"postline/internal/queue"
)

type queueResetStub struct {
	items  map[int64]*queue.Item
	resets []int64
	err    error
}

func (s *queueResetStub) GetByID(_ context.Context, id int64) (*queue.Item, error) {
	return s.items[id], nil
}

func (s *queueResetStub) ResetFailed(_ context.Context, id int64) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	s.resets = append(s.resets, id)
	return true, nil
}

func TestResetFailedItemsByID(t *testing.T) {
	stub := &queueResetStub{items: map[int64]*queue.Item{
		1: {ID: 1, Status: queue.StatusFailed},
		2: {ID: 2, Status: queue.StatusPosted},
	}}

	result, err := ResetFailedItemsByID(context.Background(), stub, []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("ResetFailedItemsByID: %v", err)
	}
	if result.UpdatedCount != 1 || len(stub.resets) != 1 || stub.resets[0] != 1 {
		t.Fatalf("unexpected resets: %#v %v", result, stub.resets)
	}
	want := []ResetItemOutcome{ResetItemUpdated, ResetItemNotFailed, ResetItemNotFound}
	for i, outcome := range want {
		if result.Items[i].Outcome != outcome {
			t.Fatalf("item %d outcome = %s, want %s", i, result.Items[i].Outcome, outcome)
		}
	}
	if result.Items[1].PriorStatus != "posted" {
		t.Fatalf("prior status = %q", result.Items[1].PriorStatus)
	}
}

func TestResetFailedItemsByIDError(t *testing.T) {
	stub := &queueResetStub{
		items: map[int64]*queue.Item{1: {ID: 1, Status: queue.StatusFailed}},
		err:   errors.New("disk full"),
	}
	if _, err := ResetFailedItemsByID(context.Background(), stub, []int64{1}); err == nil {
		t.Fatal("expected error")
	}
}
