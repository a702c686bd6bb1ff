package combat

import (
	"context"
	"errors"
	"testing"
	"time"
)

func waitReply(t *testing.T, c *Channel) Reply {
	t.Helper()
	select {
	case reply := <-c.Replies():
		return reply
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for reply")
	}
	return Reply{}
}

func TestChannelResolvesInOrder(t *testing.T) {
	c := NewChannel(ChannelConfig{})
	defer c.Close()

	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		if _, err := c.Submit(ctx, DamageRequest{TargetID: "t", RawDamage: i * 10, TargetHP: 100}); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	for i := 1; i <= 5; i++ {
		reply := waitReply(t, c)
		if reply.Err != nil {
			t.Fatalf("unexpected error: %v", reply.Err)
		}
		if reply.Request.Seq != uint64(i) {
			t.Fatalf("expected seq %d, got %d", i, reply.Request.Seq)
		}
		if reply.Result.HPDamageDealt != i*10 {
			t.Fatalf("expected %d damage, got %d", i*10, reply.Result.HPDamageDealt)
		}
	}
}

func TestChannelResolverErrorFailsChannel(t *testing.T) {
	c := NewChannel(ChannelConfig{Resolve: func(DamageRequest) (DamageResult, error) {
		return DamageResult{}, errors.New("boom")
	}})
	defer c.Close()

	if _, err := c.Submit(context.Background(), DamageRequest{TargetID: "t"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	reply := waitReply(t, c)
	if !errors.Is(reply.Err, ErrChannelFailed) {
		t.Fatalf("expected ErrChannelFailed, got %v", reply.Err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !c.Failed() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if _, err := c.Submit(context.Background(), DamageRequest{TargetID: "t"}); !errors.Is(err, ErrChannelFailed) {
		t.Fatalf("expected submit on failed channel to fail, got %v", err)
	}
}

func TestChannelRecoversWorkerPanic(t *testing.T) {
	c := NewChannel(ChannelConfig{Resolve: func(DamageRequest) (DamageResult, error) {
		panic("worker exploded")
	}})
	defer c.Close()

	c.Submit(context.Background(), DamageRequest{TargetID: "t"})
	reply := waitReply(t, c)
	if !errors.Is(reply.Err, ErrChannelFailed) {
		t.Fatalf("expected ErrChannelFailed from panic, got %v", reply.Err)
	}
	if reply.Request.TargetID != "t" {
		t.Fatalf("expected failed reply to carry the request")
	}
}

func TestSubmitAfterClose(t *testing.T) {
	c := NewChannel(ChannelConfig{})
	c.Close()
	c.Close()
	if _, err := c.Submit(context.Background(), DamageRequest{}); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed, got %v", err)
	}
}
