package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ghalamif/kioskbridge"
)

// Drives the orchestrator in-process: keys are injected through the loopback
// transport and resume signals are printed instead of sent to a robot.
func main() {
	cfg := kioskbridge.DefaultConfig()
	cfg.Resolver.Source = "memory"
	cfg.Playback.SimulatedClip = 2 * time.Second

	flow, err := kioskbridge.ConfFromConfig(cfg)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	bridge := kioskbridge.NewLoopbackTransport(func(channel string, value int32) {
		fmt.Printf("-> %s %d\n", channel, value)
	})
	notifier, notices, closeNotices := kioskbridge.NewChannelNotifier(32)
	defer closeNotices()

	rt, err := flow.
		Inbound(kioskbridge.InboundLoopback(bridge)).
		Outbound(
			kioskbridge.OutboundCatalog(
				kioskbridge.ResolvedEntry{Key: 1, Description: "Welcome to the main hall", AssetRef: "assets/hall.mp4"},
				kioskbridge.ResolvedEntry{Key: 2, Description: "This is the robotics lab"},
				kioskbridge.ResolvedEntry{Key: 3, AssetRef: "assets/cafeteria.mp4"},
			),
			kioskbridge.OutboundNotifier(notifier),
		)
	if err != nil {
		log.Fatalf("runtime: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	go func() {
		for n := range notices {
			fmt.Printf("notice %-15s key=%d %s\n", n.Kind, n.Key, n.Text)
		}
	}()

	go func() {
		for _, key := range []int32{1, 1, 2, 3} {
			time.Sleep(4 * time.Second)
			if err := bridge.Inject(key); err != nil {
				log.Printf("inject %d: %v", key, err)
			}
		}
	}()

	if err := rt.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}
