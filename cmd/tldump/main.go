// Command tldump decodes TL-serialized messages and prints them as JSON.
//
//	tldump [-config minitl.toml] [-hex] [-publish] [-peer node] [file ...]
//
// -publish announces the supported types in the etcd catalog. The lease is renewed
// while tldump runs, so the entries expire one TTL after it exits.
//
// Each file (or stdin when none is given) holds one binary message. With -hex the
// input is text and every non-empty line is one hex-encoded message.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"mini-tl/codec"
	"mini-tl/config"
	"mini-tl/logging"
	"mini-tl/metrics"
	"mini-tl/middleware"
	"mini-tl/protocol"
	"mini-tl/registry"
	"mini-tl/service"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "tldump:", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	hexInput   bool
	publish    bool
	peer       string
	stats      bool
	files      []string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("tldump", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "TOML config file")
	fs.BoolVar(&o.hexInput, "hex", false, "input is hex text, one message per line")
	fs.BoolVar(&o.publish, "publish", false, "publish the supported types to the etcd catalog")
	fs.StringVar(&o.peer, "peer", "", "report types the peer node has not published")
	fs.BoolVar(&o.stats, "stats", false, "log decode counters on exit")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	o.files = fs.Args()
	return o, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	promReg := prometheus.NewRegistry()
	recorder, err := metrics.NewPrometheus(promReg)
	if err != nil {
		return err
	}

	opts := []registry.Option{
		registry.WithLimits(cfg.Limits.Registry()),
		registry.WithLogger(logger.Named("registry")),
		registry.WithRecorder(recorder),
	}
	if cfg.Decode.PoolAllocator {
		opts = append(opts, registry.WithAllocator(protocol.NewPoolAllocator()))
	}
	reg := service.NewRegistry(opts...)

	if o.publish || o.peer != "" {
		cat, err := syncCatalog(ctx, cfg.Catalog, reg, o, stdout, logger)
		if err != nil {
			return err
		}
		// closing stops the lease keepalive, so published types live for the run plus one TTL
		defer cat.Close()
	}

	decode, err := pipeline(cfg, reg, logger)
	if err != nil {
		return err
	}

	messages, err := readInputs(o, stdin)
	if err != nil {
		return err
	}
	out := &codec.JSONCodec{Indent: "  "}
	failed := 0
	for _, m := range messages {
		e, err := decode(ctx, m.data)
		if err != nil {
			failed++
			fmt.Fprintf(stderr, "%s: %v\n", m.name, err)
			continue
		}
		data, err := out.Encode(e)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s\n", data)
	}

	if o.stats {
		logStats(promReg, logger)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d messages failed", failed, len(messages))
	}
	return nil
}

func pipeline(cfg config.Config, reg *registry.Registry, logger *zap.Logger) (middleware.HandlerFunc, error) {
	stages := []middleware.Middleware{middleware.LoggingMiddleware(logger.Named("decode"))}
	if cfg.RateLimit.Enable {
		stages = append(stages, middleware.RateLimitMiddleware(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst))
	}
	timeout, err := cfg.Decode.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		stages = append(stages, middleware.TimeOutMiddleware(timeout))
	}
	return middleware.Chain(stages...)(middleware.Decode(reg)), nil
}

type input struct {
	name string
	data []byte
}

func readInputs(o options, stdin io.Reader) ([]input, error) {
	var raw []input
	if len(o.files) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, err
		}
		raw = append(raw, input{name: "stdin", data: data})
	}
	for _, path := range o.files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		raw = append(raw, input{name: path, data: data})
	}
	if !o.hexInput {
		return raw, nil
	}

	var out []input
	for _, in := range raw {
		sc := bufio.NewScanner(bytes.NewReader(in.data))
		sc.Buffer(make([]byte, 0, 64<<10), 64<<20)
		for line := 1; sc.Scan(); line++ {
			text := strings.Join(strings.Fields(sc.Text()), "")
			if text == "" || strings.HasPrefix(text, "#") {
				continue
			}
			data, err := hex.DecodeString(text)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", in.name, line, err)
			}
			out = append(out, input{name: fmt.Sprintf("%s:%d", in.name, line), data: data})
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// catalog is what tldump needs from a type catalog connection.
type catalog interface {
	registry.Catalog
	Close() error
}

var dialCatalog = func(endpoints []string, timeout time.Duration) (catalog, error) {
	return registry.NewEtcdCatalog(endpoints, timeout)
}

// syncCatalog publishes and diffs against the catalog. The returned connection must
// stay open for as long as the published entries should be kept alive.
func syncCatalog(ctx context.Context, c config.CatalogConfig, reg *registry.Registry, o options, stdout io.Writer, logger *zap.Logger) (catalog, error) {
	if len(c.Endpoints) == 0 {
		return nil, fmt.Errorf("catalog: no etcd endpoints configured")
	}
	dial, err := time.ParseDuration(c.DialTimeout)
	if err != nil {
		return nil, err
	}
	cat, err := dialCatalog(c.Endpoints, dial)
	if err != nil {
		return nil, err
	}

	if o.publish {
		if err := cat.Publish(ctx, c.Node, reg, c.TTLSeconds); err != nil {
			cat.Close()
			return nil, err
		}
		logger.Info("published types", zap.String("node", c.Node), zap.Int("count", len(reg.IDs())))
	}
	if o.peer != "" {
		missing, err := registry.Missing(ctx, cat, o.peer, reg)
		if err != nil {
			cat.Close()
			return nil, err
		}
		for _, id := range missing {
			fmt.Fprintf(stdout, "peer %s lacks %s\n", o.peer, id)
		}
	}
	return cat, nil
}

func logStats(g prometheus.Gatherer, logger *zap.Logger) {
	families, err := g.Gather()
	if err != nil {
		logger.Warn("gather metrics", zap.Error(err))
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			fields := []zap.Field{zap.Float64("value", m.GetCounter().GetValue())}
			for _, lp := range m.GetLabel() {
				fields = append(fields, zap.String(lp.GetName(), lp.GetValue()))
			}
			logger.Info(mf.GetName(), fields...)
		}
	}
}
