// Command dem-server is the NVMe-oF discovery endpoint manager daemon: it
// wires the configuration model, pseudo discovery controller, REST
// management surface, propagation dispatcher and log-page aggregator
// together (C1-C8) and runs until SIGINT/SIGTERM or POST /dem {"op":"shutdown"}.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"

	"github.com/nvme-dem/nvme-dem/pkg/aen"
	"github.com/nvme-dem/nvme-dem/pkg/aggregator"
	"github.com/nvme-dem/nvme-dem/pkg/config"
	"github.com/nvme-dem/nvme-dem/pkg/discoveryconfig"
	"github.com/nvme-dem/nvme-dem/pkg/discoveryctrl"
	"github.com/nvme-dem/nvme-dem/pkg/model"
	"github.com/nvme-dem/nvme-dem/pkg/propagate"
	"github.com/nvme-dem/nvme-dem/pkg/restapi"
	"github.com/nvme-dem/nvme-dem/pkg/transport"
	"github.com/nvme-dem/nvme-dem/pkg/transport/rdma"
	"github.com/nvme-dem/nvme-dem/pkg/transport/tcp"
)

const httpShutdownTimeout = 5 * time.Second

func main() {
	klog.InitFlags(nil)
	configPath := flag.String("config", "", "path to dem-server config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		klog.Errorf("dem-server: %v", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	mgr := model.NewManager()
	if cfg.StorePath != "" {
		if err := mgr.Load(cfg.StorePath); err != nil {
			klog.Warningf("dem-server: loading store %s: %v", cfg.StorePath, err)
		}
	}

	notifier := aen.New(mgr)
	mgr.SetPublisher(notifier)

	transports := map[model.TrType]transport.Transport{
		model.TrTypeTCP:  tcp.New(),
		model.TrTypeRDMA: rdma.New(),
	}

	var listeners []model.Interface
	if cfg.DiscoveryConfigDir != "" {
		parsed, err := discoveryconfig.Load(cfg.DiscoveryConfigDir)
		if err != nil {
			klog.Warningf("dem-server: discovery-config: %v", err)
		}
		for _, l := range parsed {
			listeners = append(listeners, model.Interface{Type: l.Type, Family: l.Family, Address: l.Address, TrsvcID: l.Trsvcid})
		}
	}

	sigValue := ""
	if cfg.SignaturePath != "" {
		b, err := os.ReadFile(cfg.SignaturePath)
		if err != nil {
			klog.Warningf("dem-server: reading signature file %s: %v", cfg.SignaturePath, err)
		} else {
			sigValue = string(b)
		}
	}
	sigStore := restapi.NewSignatureStore(sigValue)

	local := propagate.NewLocal()
	inband := propagate.NewInBand(mgr, transports)
	outofband := propagate.NewOutOfBand(mgr)
	router := propagate.NewRouter(mgr, local, inband, outofband)

	ctl := discoveryctrl.New(mgr, discoveryctrl.Transports(transports))
	agg := aggregator.New(mgr, transports)

	ctx, cancel := context.WithCancel(context.Background())
	var stopped int32

	shutdown := func() {
		if atomic.CompareAndSwapInt32(&stopped, 0, 1) {
			klog.Info("dem-server: shutdown requested")
			cancel()
		}
	}

	srv := restapi.NewServer(mgr, router, sigStore, cfg.StorePath, shutdown, listeners)
	httpServer := &http.Server{Addr: cfg.RESTAddress, Handler: srv.Router()}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: cfg.MetricsAddress, Handler: metricsMux}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		shutdown()
	}()

	go notifier.Run(ctx)
	go agg.Run(ctx)
	go func() {
		if err := ctl.Serve(ctx); err != nil && ctx.Err() == nil {
			klog.Errorf("dem-server: discovery controller: %v", err)
		}
	}()
	go func() {
		klog.Infof("dem-server: REST surface listening on %s", cfg.RESTAddress)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			klog.Errorf("dem-server: REST surface: %v", err)
		}
	}()
	go func() {
		klog.Infof("dem-server: metrics listening on %s", cfg.MetricsAddress)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			klog.Errorf("dem-server: metrics: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	metricsServer.Shutdown(shutdownCtx)
	ctl.Close()

	if cfg.StorePath != "" {
		if err := mgr.Save(cfg.StorePath); err != nil {
			klog.Errorf("dem-server: final save: %v", err)
		}
	}
	return nil
}
