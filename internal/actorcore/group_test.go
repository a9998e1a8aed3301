package actorcore

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGroupSerializesMemberHandlers(t *testing.T) {
	var inFlight int32
	var peak int32
	var peakMu sync.Mutex

	recordEntry := func() {
		cur := atomic.AddInt32(&inFlight, 1)
		peakMu.Lock()
		if cur > peak {
			peak = cur
		}
		peakMu.Unlock()
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
	}

	members := make([]*Actor, 4)
	for i := range members {
		members[i] = NewActor("member")
		members[i].On(pingID, func(m *Message) { recordEntry() })
	}

	group, err := NewGroup("group", members...)
	if err != nil {
		t.Fatalf("NewGroup: %v", err)
	}

	done := make(chan struct{})
	go func() {
		group.Run()
		close(done)
	}()
	DispatchFast(group, NewMessage(Start, nil))

	outsider := NewActor("outsider")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		member := members[i%len(members)]
		go func() {
			defer wg.Done()
			outsider.Send(member, NewMessage(pingID, nil))
		}()
	}
	wg.Wait()

	time.Sleep(50 * time.Millisecond)
	DispatchFast(group, NewMessage(Shutdown, nil))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("group did not shut down in time")
	}

	if peak > 1 {
		t.Fatalf("peak concurrent handler invocations = %d, want at most 1 (group members share one worker)", peak)
	}
}

func TestGroupFanOutOnStartVisitsEveryMemberInOrder(t *testing.T) {
	var mu sync.Mutex
	var seen []string

	members := make([]*Actor, 3)
	names := []string{"a", "b", "c"}
	for i, name := range names {
		members[i] = NewActor(name)
		n := name
		members[i].On(Start, func(m *Message) {
			mu.Lock()
			seen = append(seen, n)
			mu.Unlock()
		})
	}

	group, err := NewGroup("group", members...)
	if err != nil {
		t.Fatalf("NewGroup: %v", err)
	}

	DispatchFast(group, NewMessage(Start, nil))

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != len(names) {
		t.Fatalf("saw %d Start deliveries, want %d", len(seen), len(names))
	}
	for i, name := range names {
		if seen[i] != name {
			t.Fatalf("seen[%d] = %s, want %s; fan-out must preserve insertion order", i, seen[i], name)
		}
	}
}

func TestGroupRunsMemberInitBeforeStartAndEndAfterShutdown(t *testing.T) {
	var mu sync.Mutex
	var events []string

	record := func(s string) {
		mu.Lock()
		events = append(events, s)
		mu.Unlock()
	}

	members := make([]*Actor, 2)
	names := []string{"a", "b"}
	for i, name := range names {
		n := name
		members[i] = NewActor(n,
			WithInit(func() { record(n + ":init") }),
			WithEnd(func() { record(n + ":end") }),
		)
		members[i].On(Start, func(m *Message) { record(n + ":start") })
		members[i].On(Shutdown, func(m *Message) { record(n + ":shutdown") })
	}

	group, err := NewGroup("group", members...)
	if err != nil {
		t.Fatalf("NewGroup: %v", err)
	}

	done := make(chan struct{})
	go func() {
		group.Run()
		close(done)
	}()

	DispatchFast(group, NewMessage(Start, nil))
	DispatchFast(group, NewMessage(Shutdown, nil))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("group did not shut down in time")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{
		"a:init", "a:start", "b:init", "b:start",
		"a:shutdown", "a:end", "b:shutdown", "b:end",
	}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i, w := range want {
		if events[i] != w {
			t.Fatalf("events[%d] = %s, want %s; full sequence: %v", i, events[i], w, events)
		}
	}

	for i, member := range members {
		if !member.Terminated() {
			t.Fatalf("member %s must be terminated after the group's Shutdown fan-out", names[i])
		}
	}
}

func TestEmptyGroupManageIsRejected(t *testing.T) {
	if _, err := NewGroup("empty"); err == nil {
		t.Fatal("expected NewGroup with no members to fail")
	}
}
