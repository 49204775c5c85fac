package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ghalamif/kioskbridge"
	"github.com/ghalamif/kioskbridge/internal/adapters/observability"
	"github.com/ghalamif/kioskbridge/internal/adapters/transport/line"
	"github.com/ghalamif/kioskbridge/internal/adapters/transport/rosbridge"
	"github.com/ghalamif/kioskbridge/internal/logger"
	"github.com/ghalamif/kioskbridge/internal/ports"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "send":
		err = sendCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("kiosk-bridge %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to kiosk configuration file")
	host := fs.String("host", "", "Bridge host, overrides bridge.host and the persisted host")
	if err := fs.Parse(args); err != nil {
		return err
	}

	flow, err := kioskbridge.Conf(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if h := strings.TrimSpace(*host); h != "" {
		flow.Config().Bridge.Host = h
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return flow.Run(ctx)
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := kioskbridge.LoadConfig(*cfgPath)
	if err != nil {
		return err
	}
	fmt.Printf("config %s looks good (protocol=%s resolver=%s)\n", *cfgPath, cfg.Bridge.Protocol, cfg.Resolver.Source)
	return nil
}

// sendCommand publishes a single value and exits. Used when commissioning a
// kiosk to check that the robot side receives resume signals.
func sendCommand(args []string) error {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	protocol := fs.String("protocol", rosbridge.Protocol, "Bridge protocol: rosbridge or line")
	host := fs.String("host", "", "Bridge host (host, host:port or ws://host:port)")
	topic := fs.String("topic", "/start_movement", "Topic to publish on (ignored by the line protocol)")
	value := fs.Int("value", 1, "Integer value to publish")
	timeout := fs.Duration("timeout", 5*time.Second, "Dial timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := kioskbridge.DefaultConfig()
	obs := observability.NewPromObs(logger.New(cfg.Logging))

	var (
		tr  ports.Transport
		err error
	)
	switch strings.ToLower(*protocol) {
	case rosbridge.Protocol:
		tr, err = rosbridge.NewTransport(rosbridge.Config{DialTimeout: *timeout}, obs)
	case line.Protocol:
		tr, err = line.NewTransport(line.Config{DialTimeout: *timeout}, obs)
	default:
		err = fmt.Errorf("unknown protocol %q", *protocol)
	}
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, err := tr.Connect(ctx, *host, discardSink{})
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.Send(*topic, int32(*value)); err != nil {
		return err
	}
	fmt.Printf("sent %d on %s via %s\n", *value, *topic, tr.Protocol())
	return nil
}

type discardSink struct{}

func (discardSink) Push(int32) {}

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	url := fs.String("url", "http://localhost:9110/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(*url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

var statsTargets = []string{
	ports.MetricSignalsReceived,
	ports.MetricSequencesStarted,
	ports.MetricResumeSignals,
	ports.MetricReconnectAttempts,
	ports.GaugeBridgeConnected,
	ports.GaugeQueueLength,
}

func printMetricsSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	values, err := scanMetrics(resp.Body, statsTargets)
	if err != nil {
		return err
	}
	fmt.Printf("[%s] signals=%.0f sequences=%.0f resumes=%.0f reconnects=%.0f connected=%.0f queue=%.0f\n",
		time.Now().Format(time.RFC3339),
		values[ports.MetricSignalsReceived],
		values[ports.MetricSequencesStarted],
		values[ports.MetricResumeSignals],
		values[ports.MetricReconnectAttempts],
		values[ports.GaugeBridgeConnected],
		values[ports.GaugeQueueLength],
	)
	return nil
}

// scanMetrics extracts unlabelled samples for names from the Prometheus text format.
func scanMetrics(r io.Reader, names []string) (map[string]float64, error) {
	out := make(map[string]float64, len(names))
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for _, key := range names {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %g", &value); err == nil {
					out[key] = value
				}
				break
			}
		}
	}
	return out, scanner.Err()
}

func printUsage() {
	fmt.Printf(`KioskBridge CLI

Usage:
  kiosk-bridge <command> [flags]

Commands:
  run        Start the kiosk runtime using the provided config
  validate   Load and validate a config file without starting the runtime
  send       Publish one integer to a bridge and exit
  stats      Poll the Prometheus metrics endpoint and print live counters

Examples:
  kiosk-bridge run -config ./data/config.yaml -host 192.168.1.20
  kiosk-bridge validate -config ./data/config.yaml
  kiosk-bridge send -protocol line -host 192.168.1.20 -value 1
  kiosk-bridge stats -url http://localhost:9110/metrics -interval 1s
`)
}
