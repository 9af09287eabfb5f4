package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/hamed0406/mqttprobe/internal/broker"
	"github.com/hamed0406/mqttprobe/internal/config"
	"github.com/hamed0406/mqttprobe/internal/domain"
	"github.com/hamed0406/mqttprobe/internal/probe"
)

func usage() string {
	return strings.TrimSpace(`
usage: mqttprobe <command> [flags]

commands:
  check   probe a topic once and print the heartbeat (exit 1 when down)
  watch   subscribe with the long-lived client and print every message
`)
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage())
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "check":
		var up bool
		up, err = runCheck(os.Args[2:])
		if err == nil && !up {
			os.Exit(1)
		}
	case "watch":
		err = runWatch(os.Args[2:])
	default:
		err = fmt.Errorf("unknown command %q\n%s", os.Args[1], usage())
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
}

func cliLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func runCheck(args []string) (bool, error) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	host := fs.String("host", "", "broker hostname or URL (mqtt://, mqtts://, ws://, wss://)")
	port := fs.Int("port", 1883, "broker port")
	user := fs.String("user", "", "username")
	pass := fs.String("pass", os.Getenv("MQTT_PASSWORD"), "password (default $MQTT_PASSWORD)")
	topic := fs.String("topic", "", "topic to wait on")
	wsPath := fs.String("ws-path", "", "websocket path for ws:// and wss:// brokers")
	interval := fs.Int("interval", domain.DefaultInterval, "monitor interval in seconds; the wait is 80% of it")
	checkType := fs.String("type", string(domain.CheckKeyword), "check type: keyword or json-query")
	success := fs.String("success", "", "keyword the message must contain")
	query := fs.String("query", "", "JSONata expression for json-query checks")
	expected := fs.String("expected", "", "expected query result")
	verbose := fs.Bool("v", false, "log to stderr")
	_ = fs.Parse(args)
	if *host == "" || *topic == "" {
		return false, fmt.Errorf("host and topic are required")
	}

	logger := cliLogger(*verbose)
	defer logger.Sync()

	m := &domain.Monitor{
		Hostname:       *host,
		Port:           *port,
		Username:       *user,
		Password:       *pass,
		Topic:          *topic,
		WebsocketPath:  *wsPath,
		Interval:       *interval,
		CheckType:      domain.CheckType(*checkType),
		SuccessMessage: *success,
		JSONQuery:      *query,
		ExpectedValue:  *expected,
	}
	checker := probe.NewDNSChecker(probe.NewMQTTChecker(logger, broker.NewProber(logger), nil))

	hb := &domain.Heartbeat{}
	start := time.Now()
	if err := checker.Check(m, hb); err != nil {
		return false, err
	}
	hb.LatencyMS = float64(time.Since(start).Microseconds()) / 1000
	hb.Time = time.Now().UTC()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(hb); err != nil {
		return false, err
	}
	return hb.IsUp(), nil
}

func runWatch(args []string) error {
	cfg := config.FromEnv().Broker()

	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	url := fs.String("url", cfg.URL, "broker URL (default $MQTT_URL)")
	user := fs.String("user", cfg.Username, "username (default $MQTT_USERNAME)")
	topic := fs.String("topic", "#", "topic filter to subscribe to")
	tlsOn := fs.Bool("tls", cfg.TLSEnabled, "use TLS (default $MQTT_TLS_ENABLED)")
	caFile := fs.String("ca", cfg.CAFile, "CA bundle (default $MQTT_TLS_CA_FILE)")
	verbose := fs.Bool("v", false, "log to stderr")
	_ = fs.Parse(args)

	cfg.URL, cfg.Username, cfg.TLSEnabled, cfg.CAFile = *url, *user, *tlsOn, *caFile

	logger := cliLogger(*verbose)
	defer logger.Sync()

	printMsg := func(_ mqtt.Client, msg mqtt.Message) {
		fmt.Printf("%s %s %s\n", time.Now().UTC().Format(time.RFC3339), msg.Topic(), msg.Payload())
	}
	cfg.OnConnect = func(c mqtt.Client) {
		tok := c.Subscribe(*topic, 0, printMsg)
		go func() {
			if tok.Wait() && tok.Error() != nil {
				fmt.Fprintln(os.Stderr, "subscribe:", tok.Error())
			}
		}()
	}

	client, err := broker.NewSecureClient(cfg, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	fmt.Fprintf(os.Stderr, "watching %s on %s (ctrl-c to stop)\n", *topic, cfg.URL)
	<-ctx.Done()
	return nil
}
