package actorcore

import (
	"sync"
	"testing"
	"time"
)

const (
	pingID Identity = ApplicationBase
	pongID Identity = ApplicationBase + 1
)

func startActor(t *testing.T, a *Actor) (stop func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		a.Run()
		close(done)
	}()
	DispatchFast(a, NewMessage(Start, nil))
	return func() {
		a.Send(a, NewMessage(Shutdown, nil))
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("actor did not shut down in time")
		}
	}
}

func TestFIFOPerSenderReceiverPair(t *testing.T) {
	var mu sync.Mutex
	var order []int

	receiver := NewActor("receiver")
	receiver.On(pingID, func(m *Message) {
		mu.Lock()
		order = append(order, m.Payload.(int))
		mu.Unlock()
	})
	stop := startActor(t, receiver)
	defer stop()

	sender := NewActor("sender")
	for i := 0; i < 20; i++ {
		sender.Send(receiver, NewMessage(pingID, i))
	}

	deadline := time.After(time.Second)
	for {
		mu.Lock()
		n := len(order)
		mu.Unlock()
		if n == 20 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("receiver never processed all 20 messages")
		case <-time.After(time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		if v != i {
			t.Fatalf("order[%d] = %d, want %d; FIFO violated", i, v, i)
		}
	}
}

func TestSelfFastSendPanics(t *testing.T) {
	a := NewActor("loopback")
	a.On(pingID, func(m *Message) {})

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a panic from fast_send to self")
		}
	}()
	a.FastSend(a, NewMessage(pingID, nil))
}

func TestMessageReuseIsContractViolation(t *testing.T) {
	a := NewActor("a")
	b := NewActor("b")
	b.On(pingID, func(m *Message) {})

	m := NewMessage(pingID, nil)
	a.Send(b, m)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a panic when re-sending an already-sent message")
		}
	}()
	a.Send(b, m)
}

func TestFastSendReplyRoundTrip(t *testing.T) {
	pong := NewActor("pong")
	pong.On(pingID, func(m *Message) {
		Reply(m, pongID, m.Payload.(int)*2)
	})

	ping := NewActor("ping")
	reply := ping.FastSend(pong, NewMessage(pingID, 21))
	if reply == nil {
		t.Fatal("expected a reply message from fast_send")
	}
	if got := reply.Payload.(int); got != 42 {
		t.Fatalf("reply payload = %d, want 42", got)
	}
}

func TestAsyncReplyRoundTrip(t *testing.T) {
	var mu sync.Mutex
	var got int
	gotCh := make(chan struct{})

	ping := NewActor("ping")
	ping.On(pongID, func(m *Message) {
		mu.Lock()
		got = m.Payload.(int)
		mu.Unlock()
		close(gotCh)
	})
	stopPing := startActor(t, ping)
	defer stopPing()

	pong := NewActor("pong")
	pong.On(pingID, func(m *Message) {
		Reply(m, pongID, m.Payload.(int)+1)
	})
	stopPong := startActor(t, pong)
	defer stopPong()

	ping.Send(pong, NewMessage(pingID, 41))

	select {
	case <-gotCh:
	case <-time.After(time.Second):
		t.Fatal("async reply never arrived")
	}
	mu.Lock()
	defer mu.Unlock()
	if got != 42 {
		t.Fatalf("got = %d, want 42", got)
	}
}

func TestReplyWithoutSenderOutsideFastSendPanics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a panic replying to a message with no sender, outside fast_send")
		}
	}()
	m := NewMessage(pingID, nil)
	Reply(m, pongID, nil)
}

func TestDispatchUsesRegisteredHandlerOnRepeatedCalls(t *testing.T) {
	a := NewActor("a")
	calls := 0
	a.On(pingID, func(m *Message) { calls++ })

	for i := 0; i < 5; i++ {
		a.RunFast(NewMessage(pingID, nil))
	}
	if calls != 5 {
		t.Fatalf("calls = %d, want 5; dense cache must keep dispatching to the same handler", calls)
	}
}

func TestUnregisteredIdentityFallsBackWithoutPanicking(t *testing.T) {
	dropped := make(chan Identity, 1)
	a := NewActor("a", WithFallback(func(m *Message) { dropped <- m.ID() }))

	a.RunFast(NewMessage(pongID, nil))

	select {
	case id := <-dropped:
		if id != pongID {
			t.Fatalf("fallback saw identity %d, want %d", id, pongID)
		}
	case <-time.After(time.Second):
		t.Fatal("fallback was never invoked for an unregistered identity")
	}
}

func TestTerminatedActorSilentlyDropsFurtherSends(t *testing.T) {
	a := NewActor("a")
	var calls int
	a.On(pingID, func(m *Message) { calls++ })
	stop := startActor(t, a)
	stop()

	if !a.Terminated() {
		t.Fatal("actor must be terminated once its Run loop has exited")
	}

	sender := NewActor("sender")
	sender.Send(a, NewMessage(pingID, nil))
	time.Sleep(10 * time.Millisecond)
	if calls != 0 {
		t.Fatalf("handler ran %d times after termination, want 0 (silent drop)", calls)
	}
}

func TestFastTerminateMarksActorTerminatedAndRunsShutdownHandler(t *testing.T) {
	a := NewActor("a")
	shutdownSeen := make(chan struct{})
	a.On(Shutdown, func(m *Message) { close(shutdownSeen) })

	a.FastTerminate()

	select {
	case <-shutdownSeen:
	case <-time.After(time.Second):
		t.Fatal("fast_terminate never ran the actor's own Shutdown handler")
	}
	if !a.Terminated() {
		t.Fatal("fast_terminate must mark the actor terminated")
	}
}

func TestAsyncSendStampsLastFalseAtSendTimeThenRunOverwritesWithDrainSignal(t *testing.T) {
	var lasts []bool
	var mu sync.Mutex

	receiver := NewActor("receiver")
	receiver.On(pingID, func(m *Message) {
		mu.Lock()
		lasts = append(lasts, m.Last)
		mu.Unlock()
	})

	sender := NewActor("sender")
	first := NewMessage(pingID, 1)
	second := NewMessage(pingID, 2)
	sender.Send(receiver, first)
	sender.Send(receiver, second)

	if first.Last {
		t.Fatal("an async send must stamp Last=false at send time")
	}

	// Both messages are already queued before the worker loop starts
	// draining, so Pop's last-in-queue signal is deterministic here.
	stop := startActor(t, receiver)
	defer stop()

	deadline := time.After(time.Second)
	for {
		mu.Lock()
		n := len(lasts)
		mu.Unlock()
		if n == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("receiver never processed both messages")
		case <-time.After(time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if lasts[0] {
		t.Fatal("first message popped with another still queued must see Last=false")
	}
	if !lasts[1] {
		t.Fatal("second message draining the mailbox must see Last=true")
	}
}

func TestFastSendStampsLastTrue(t *testing.T) {
	pong := NewActor("pong")
	var sawLast bool
	pong.On(pingID, func(m *Message) { sawLast = m.Last })

	ping := NewActor("ping")
	ping.FastSend(pong, NewMessage(pingID, nil))

	if !sawLast {
		t.Fatal("fast_send must stamp Last=true")
	}
}

func TestMailboxConservation(t *testing.T) {
	var mu sync.Mutex
	handled := 0

	receiver := NewActor("receiver")
	receiver.On(pingID, func(m *Message) {
		mu.Lock()
		handled++
		mu.Unlock()
	})

	const total = 50
	sender := NewActor("sender")
	for i := 0; i < total; i++ {
		sender.Send(receiver, NewMessage(pingID, i))
	}

	pending := receiver.MailboxLength()
	stop := startActor(t, receiver)
	defer stop()

	deadline := time.After(time.Second)
	for {
		mu.Lock()
		h := handled
		mu.Unlock()
		if h == total {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("only handled %d/%d messages", h, total)
		case <-time.After(time.Millisecond):
		}
	}

	if pending > total {
		t.Fatalf("pending (%d) exceeds total sent (%d)", pending, total)
	}
}
