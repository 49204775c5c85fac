package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/kioskbridge/pkg/kioskbridge"
)

func main() {
	flow, err := kioskbridge.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	captions := func(n kioskbridge.Notice) {
		switch n.Kind {
		case kioskbridge.NoticeCaptionShown:
			fmt.Printf("%s [%d] %s\n", n.At.Format(time.TimeOnly), n.Key, n.Text)
		case kioskbridge.NoticeCaptionCleared:
			fmt.Println()
		default:
			fmt.Printf("%s %s %s\n", n.At.Format(time.TimeOnly), n.Kind, n.Text)
		}
	}

	if err := flow.Run(ctx, kioskbridge.OutboundCallback(captions)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}
