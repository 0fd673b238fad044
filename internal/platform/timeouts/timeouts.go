// Package timeouts holds the durations shared by OKR entry points.
package timeouts

import "time"

// GRPCDial caps the wait for a gRPC peer to report SERVING.
const GRPCDial = 2 * time.Second

// Shutdown caps flushing telemetry after a service stops.
const Shutdown = 5 * time.Second
