// Command vane-pingpong drives the local ping-pong scenario end to end: a
// PingActor and a PongActor exchange fast_send-free async messages through a
// Manager until a bound is reached, then the Manager shuts down cleanly and
// hands control back to main.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/vane-rt/vane/internal/actorcore"
	"github.com/vane-rt/vane/internal/manager"
	"github.com/vane-rt/vane/internal/rtlog"
)

const (
	pingIdentity actorcore.Identity = actorcore.ApplicationBase
	pongIdentity actorcore.Identity = actorcore.ApplicationBase + 1
)

type pingPayload struct{ N int }
type pongPayload struct{ N int }

func main() {
	bound := flag.Int("bound", 5, "stop after this many ping/pong round trips")
	timeout := flag.Duration("timeout", 5*time.Second, "maximum time to let the scenario run")
	verbose := flag.Bool("v", false, "log every handler invocation")
	flag.Parse()

	if *bound <= 0 {
		fatal("bound must be positive, got %d", *bound)
	}

	log := rtlog.Discard
	if *verbose {
		log = rtlog.Default("pingpong")
	}

	mgr := manager.New(log)

	var wg sync.WaitGroup
	wg.Add(1)

	var (
		mu         sync.Mutex
		pingCount  int
		pongCount  int
		finalCount int
	)

	pong := actorcore.NewActor("pong", actorcore.WithLogger(log))
	ping := actorcore.NewActor("ping", actorcore.WithLogger(log))

	pong.On(pingIdentity, func(m *actorcore.Message) {
		p := m.Payload.(pingPayload)
		mu.Lock()
		pongCount++
		mu.Unlock()
		actorcore.Reply(m, pongIdentity, pongPayload{N: p.N})
	})

	ping.On(pongIdentity, func(m *actorcore.Message) {
		p := m.Payload.(pongPayload)
		mu.Lock()
		pingCount++
		finalCount = p.N
		done := p.N >= *bound
		mu.Unlock()
		if done {
			wg.Done()
			return
		}
		ping.Send(pong, actorcore.NewMessage(pingIdentity, pingPayload{N: p.N + 1}))
	})
	ping.On(actorcore.Start, func(m *actorcore.Message) {
		ping.Send(pong, actorcore.NewMessage(pingIdentity, pingPayload{N: 1}))
	})

	mgr.Manage(pong, manager.Placement{})
	mgr.Manage(ping, manager.Placement{})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	mgr.Init(ctx)

	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()

	select {
	case <-waitDone:
	case <-ctx.Done():
		fatal("scenario did not complete within %s", *timeout)
	}

	if err := mgr.Shutdown(); err != nil {
		fatal("manager shutdown: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	fmt.Printf("ping handler invocations: %d\n", pingCount)
	fmt.Printf("pong handler invocations: %d\n", pongCount)
	fmt.Printf("final counter: %d\n", finalCount)

	if pingCount != *bound || pongCount != *bound || finalCount != *bound {
		fatal("scenario produced unexpected counts: ping=%d pong=%d final=%d, want %d",
			pingCount, pongCount, finalCount, *bound)
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "vane-pingpong: "+format+"\n", args...)
	os.Exit(1)
}
