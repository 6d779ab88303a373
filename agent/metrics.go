package agent

import (
	"context"
	"net/http"

	metrics "github.com/armon/go-metrics"
	gmetricsprom "github.com/armon/go-metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupMetrics wires snapshot.Controller's counters and timers
// (chandysim.send, chandysim.node.created, ...) to a Prometheus sink and,
// if addr is non-empty, serves them on addr at /metrics until ctx is
// canceled. Grounded on command/agent/command.go's metrics bootstrap
// (metrics.NewInmemSink + metrics.NewGlobal), swapped to the Prometheus
// sink so the numbers are scrapable rather than only queryable in-process.
func setupMetrics(ctx context.Context, addr string) (*http.Server, error) {
	sink, err := gmetricsprom.NewPrometheusSink()
	if err != nil {
		return nil, err
	}
	conf := metrics.DefaultConfig("chandysim")
	conf.EnableHostname = false
	if _, err := metrics.NewGlobal(conf, sink); err != nil {
		return nil, err
	}

	if addr == "" {
		return nil, nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	go func() {
		_ = srv.ListenAndServe()
	}()

	return srv, nil
}
