package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"time"

	"accord/internal/gateway"
	"accord/internal/model"
	"accord/internal/obs"
	"accord/internal/ops"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON or YAML config (token may come from GATEWAY_TOKEN)")
	metricsAddr := flag.String("metrics-addr", "", "Serve prometheus metrics on this address (empty=disable)")
	pyroscopeAddr := flag.String("pyroscope", "", "Pyroscope server address (empty=disable)")
	statsInterval := flag.Duration("stats-interval", 30*time.Second, "Interval between stats log lines (0=disable)")
	flag.Parse()

	cfg, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %+v", err)
	}

	if *pyroscopeAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "accord.gateway",
			ServerAddress:   *pyroscopeAddr,
			Logger:          profilerLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	metrics := obs.NewMetrics()
	session, err := gateway.New(cfg, gateway.WithMetrics(metrics))
	if err != nil {
		log.Fatalf("session init failed: %+v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var server *http.Server
	if *metricsAddr != "" {
		server = serveMetrics(*metricsAddr, metrics)
	}

	go logEvents(ctx, session)
	if *statsInterval > 0 {
		go logStats(ctx, metrics, *statsInterval)
	}

	if err := session.Connect(); err != nil {
		log.Fatalf("connect failed: %+v", err)
	}

	<-sys.Shutdown()
	logs.Info("shutting down")
	cancel()
	_ = session.Close()
	if server != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = server.Shutdown(shutdownCtx)
	}
}

func serveMetrics(addr string, metrics *obs.Metrics) *http.Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(obs.NewCollector(metrics, nil))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logs.Errorf("metrics server stopped: %+v", err)
		}
	}()
	logs.Infof("serving metrics on %s/metrics", addr)
	return server
}

func logEvents(ctx context.Context, session *gateway.Session) {
	states := session.States()
	messages := session.Messages()
	presences := session.Presences()
	users := session.UsersFor(gateway.Me)
	defer states.Close()
	defer messages.Close()
	defer presences.Close()
	defer users.Close()

	go states.Run(ctx, func(st gateway.State) {
		logs.Infof("state %s", st)
	})
	go users.Run(ctx, func(u model.User) {
		logs.Infof("logged in as %s (%s)", u.DisplayName(), u.ID)
	})
	go presences.Run(ctx, func(p model.Presence) {
		logs.Debugf("presence %s %s", p.UserID, p.Status)
	})
	messages.Run(ctx, func(m model.Message) {
		logs.Infof("message %s in %s from %s: %d chars, %d attachments",
			m.ID, m.ChannelID, m.Author.DisplayName(), len(m.Content), len(m.Attachments))
	})
}

func logStats(ctx context.Context, metrics *obs.Metrics, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := metrics.Snapshot()
			logs.Infof("stats dials=%d opens=%d frames_in=%d frames_out=%d decode_errors=%d reconnects=%d rtt_avg=%s",
				snap.DialAttempts, snap.Opens, snap.FramesIn, snap.FramesOut, snap.DecodeErrors, snap.Reconnects,
				snap.HeartbeatLatency.Avg)
		}
	}
}

type profilerLogger struct{}

func (profilerLogger) Infof(format string, args ...interface{})  { logs.Debugf(format, args...) }
func (profilerLogger) Debugf(format string, args ...interface{}) { logs.Debugf(format, args...) }
func (profilerLogger) Errorf(format string, args ...interface{}) { logs.Errorf(format, args...) }
