// Package config collects the environment-derived configuration of the
// controller into a single immutable value constructed once at startup.
// No package holds its own copy of os.Getenv state; Config is threaded
// explicitly to every component that needs it.
package config

import (
	"os"
	"strconv"
	"time"
)

// DefaultNamespace is used when NAMESPACE is unset.
const DefaultNamespace = "trirematics"

// DefaultLoopInterval is used when LOOP_SECONDS is unset or invalid.
const DefaultLoopInterval = 5 * time.Second

// DefaultFlowServerAddr is the well-known local address of the flow
// telemetry stream (spec.md §6).
const DefaultFlowServerAddr = "127.0.0.1:4245"

// Finalizer is the namespace finalizer the lifecycle orchestrator manages.
const Finalizer = "trirematics.io/network-cleanup"

// ModeAnnotation is the namespace annotation consulted by the mode resolver.
const ModeAnnotation = "trirematics.io/controller-mode"

// Config is the full set of environment-derived knobs recognized by
// cntrl (spec.md §6).
type Config struct {
	Namespace     string
	LoopInterval  time.Duration
	ModeOverride  string // CONTROLLER_MODE / MODE, "" if unset or invalid
	ManageInfra   bool
	EnableSafety  bool
	DerivePorts   bool
	HubbleDebug   bool
	FlowServerAddr string
	BundleDir     string
}

// FromEnv builds a Config from the process environment, applying the
// defaults spec.md §6 specifies.
func FromEnv() Config {
	cfg := Config{
		Namespace:      getEnvDefault("NAMESPACE", DefaultNamespace),
		LoopInterval:   loopIntervalFromEnv(),
		ModeOverride:   modeOverrideFromEnv(),
		ManageInfra:    isOne(os.Getenv("CONTROLLER_MANAGE_INFRA")),
		EnableSafety:   isOne(os.Getenv("CONTROLLER_ENABLE_SAFETY")),
		DerivePorts:    derivePortsFromEnv(),
		HubbleDebug:    isOne(os.Getenv("HUBBLE_DEBUG")),
		FlowServerAddr: getEnvDefault("FLOW_SERVER_ADDR", DefaultFlowServerAddr),
		BundleDir:      getEnvDefault("POLICY_BUNDLE_DIR", "policyBundle"),
	}
	return cfg
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func isOne(v string) bool {
	return v == "1"
}

func loopIntervalFromEnv() time.Duration {
	v := os.Getenv("LOOP_SECONDS")
	if v == "" {
		return DefaultLoopInterval
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return DefaultLoopInterval
	}
	return time.Duration(n) * time.Second
}

func modeOverrideFromEnv() string {
	v := os.Getenv("CONTROLLER_MODE")
	if v == "" {
		v = os.Getenv("MODE")
	}
	if v == "BOOTSTRAP" || v == "APPLY" {
		return v
	}
	return ""
}

// derivePortsFromEnv defaults to enabled, per spec.md §6
// (CONTROLLER_DERIVE_PORTS: "Default on.").
func derivePortsFromEnv() bool {
	v, ok := os.LookupEnv("CONTROLLER_DERIVE_PORTS")
	if !ok {
		return true
	}
	return v == "1"
}
