package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegistryKeepsSessionsApart(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(NewInterpreter(&failingLedger{}, 0))

	_, s := r.Handle(ctx, "ana", "adicionar produto")
	assert.Equal(t, StepAwaitingName, s.Step)
	_, s = r.Handle(ctx, "joao", "ajuda")
	assert.Equal(t, StepIdle, s.Step)

	assert.Equal(t, StepAwaitingName, r.Session("ana").Step)
	assert.Equal(t, 2, r.Len())

	r.Reset("ana")
	assert.Equal(t, StepIdle, r.Session("ana").Step)
}

func TestRegistrySerializesTurns(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(NewInterpreter(&failingLedger{}, 0))
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Handle(ctx, "ana", "ajuda")
		}()
	}
	wg.Wait()
	assert.Len(t, r.Session("ana").History, 40)
}

func TestRegistryExpire(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(NewInterpreter(&failingLedger{}, 0))
	r.Handle(ctx, "ana", "ajuda")
	assert.Equal(t, 0, r.Expire(time.Hour))
	assert.Equal(t, 1, r.Expire(-time.Second))
	assert.Equal(t, 0, r.Len())
}
