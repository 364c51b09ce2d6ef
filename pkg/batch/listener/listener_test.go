package listener_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/helios/pkg/batch/listener"
)

type recording struct {
	events []listener.BatchEvent
	err    error
}

func (r *recording) AfterBatch(_ context.Context, ev listener.BatchEvent) error {
	r.events = append(r.events, ev)
	return r.err
}

func TestComposite_CallsEveryListener(t *testing.T) {
	first := &recording{err: errors.New("first failed")}
	second := &recording{}
	third := &recording{err: errors.New("third failed")}
	ev := listener.BatchEvent{Split: "train", Name: "batch_1", Samples: 256, Labeled: 250}

	err := listener.Composite{first, nil, second, listener.NopListener{}, third}.AfterBatch(context.Background(), ev)

	assert.ErrorContains(t, err, "first failed")
	assert.ErrorContains(t, err, "third failed")
	for _, r := range []*recording{first, second, third} {
		assert.Equal(t, []listener.BatchEvent{ev}, r.events)
	}
}

func TestComposite_Empty(t *testing.T) {
	assert.NoError(t, listener.Composite(nil).AfterBatch(context.Background(), listener.BatchEvent{}))
}
