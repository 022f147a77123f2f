package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"

	"github.com/wejdeneh/cntrl/internal/clientconfig"
	"github.com/wejdeneh/cntrl/internal/config"
	"github.com/wejdeneh/cntrl/internal/edgestore"
	"github.com/wejdeneh/cntrl/internal/k8sclient"
	"github.com/wejdeneh/cntrl/internal/lifecycle"
	"github.com/wejdeneh/cntrl/internal/logging"
	"github.com/wejdeneh/cntrl/internal/metrics"
	"github.com/wejdeneh/cntrl/internal/observer"
)

func main() {
	kubeconfig := flag.String("kubeconfig", clientconfig.DefaultKubeconfigPath(), "(optional) absolute path to the kubeconfig file")
	apiserverURL := flag.String("apiserver", "", "URL to the Kubernetes API server")
	logLevel := flag.String("log-level", logging.LevelInfo,
		fmt.Sprintf("Log level to use. Possible values: %s", strings.Join(logging.ValidLevels, ", ")))
	metricsAddr := flag.String("metrics-addr", ":8080", "Address to emit metrics on")
	flag.Parse()

	logger, err := logging.New(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating logger failed: %s\n", err)
		os.Exit(2)
	}

	cfg := config.FromEnv()

	restConfig, err := clientconfig.RestConfig(*apiserverURL, *kubeconfig)
	if err != nil {
		level.Error(logger).Log("msg", "building kubeconfig failed", "err", err)
		os.Exit(1)
	}

	typed, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		level.Error(logger).Log("msg", "building typed clientset failed", "err", err)
		os.Exit(1)
	}
	dyn, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		level.Error(logger).Log("msg", "building dynamic clientset failed", "err", err)
		os.Exit(1)
	}
	client := k8sclient.New(typed, dyn)

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	met := metrics.New(reg)

	store := edgestore.New(cfg.BundleDir)
	obs := observer.New(cfg.FlowServerAddr, cfg.Namespace, store, logger, cfg.HubbleDebug, met)

	orch := &lifecycle.Orchestrator{
		Config:   cfg,
		Client:   client,
		Store:    store,
		Observer: obs,
		Logger:   logger,
		Metrics:  met,
	}

	ctx, cancel := context.WithCancel(context.Background())
	term := make(chan os.Signal, 1)
	signal.Notify(term, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-term
		level.Info(logger).Log("msg", "received termination signal, shutting down")
		cancel()
	}()

	metricsServer := &http.Server{Addr: *metricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			level.Error(logger).Log("msg", "metrics server failed", "err", err)
		}
	}()

	if err := orch.Run(ctx); err != nil && ctx.Err() == nil {
		level.Error(logger).Log("msg", "exit with error", "err", err)
		os.Exit(1)
	}
}
