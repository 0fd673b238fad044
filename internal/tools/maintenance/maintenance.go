// Package maintenance verifies, validates and rebuilds the objective journal
// and its views offline.
package maintenance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	entrypoint "github.com/louisbranch/okr/internal/platform/cmd"
	platformgrpc "github.com/louisbranch/okr/internal/platform/grpc"
	"github.com/louisbranch/okr/internal/platform/timeouts"
	"github.com/louisbranch/okr/internal/services/objective/api/grpc/objectives"
	"github.com/louisbranch/okr/internal/services/objective/domain/event"
	"github.com/louisbranch/okr/internal/services/objective/domain/objective"
	"github.com/louisbranch/okr/internal/services/objective/domain/view"
	"github.com/louisbranch/okr/internal/services/objective/projection"
	"github.com/louisbranch/okr/internal/services/objective/storage"
	"github.com/louisbranch/okr/internal/services/objective/storage/sqlite"
)

const validatePageSize = 200

const (
	modeRebuild   = "rebuild"
	modeVerify    = "verify"
	modeValidate  = "validate"
	modeIntegrity = "integrity"
	modePrint     = "print"
)

// Config holds maintenance command configuration.
type Config struct {
	AggregateID  string
	AggregateIDs string
	All          bool
	DBPath       string        `env:"OKR_OBJECTIVES_DB_PATH" envDefault:"data/objectives.db"`
	Timeout      time.Duration `env:"OKR_MAINTENANCE_TIMEOUT" envDefault:"10m"`
	HealthAddr   string        `env:"OKR_MAINTENANCE_HEALTH_ADDR"`
	Verify       bool
	Validate     bool
	Integrity    bool
	Print        bool
	WarningsCap  int
	JSONOutput   bool
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{WarningsCap: 25}
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.AggregateID, "aggregate-id", "", "objective id to process")
	fs.StringVar(&cfg.AggregateIDs, "aggregate-ids", "", "comma-separated objective ids to process")
	fs.BoolVar(&cfg.All, "all", false, "process every objective in the journal")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "path to the objectives sqlite database (default: OKR_OBJECTIVES_DB_PATH or data/objectives.db)")
	fs.StringVar(&cfg.HealthAddr, "health", cfg.HealthAddr, "probe the health of a running objectives server at this address")
	fs.BoolVar(&cfg.Verify, "verify", false, "recompute the event hash chain without touching views")
	fs.BoolVar(&cfg.Validate, "validate", false, "validate stored event payloads against the event registry")
	fs.BoolVar(&cfg.Integrity, "integrity", false, "replay views and compare them against stored views")
	fs.BoolVar(&cfg.Print, "print", false, "replay and print each objective view as JSON")
	fs.IntVar(&cfg.WarningsCap, "warnings-cap", cfg.WarningsCap, "max warnings to print (0 = no limit)")
	fs.BoolVar(&cfg.JSONOutput, "json", false, "output JSON reports")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "overall timeout")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the maintenance command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if strings.TrimSpace(cfg.HealthAddr) != "" {
		if cfg.AggregateID != "" || cfg.AggregateIDs != "" || cfg.All {
			return errors.New("-health cannot be combined with aggregate selection")
		}
		return runHealth(ctx, cfg.HealthAddr, timeouts.GRPCDial, out, errOut)
	}
	if _, err := resolveMode(cfg); err != nil {
		return err
	}
	if _, err := resolveAggregateIDs(cfg.AggregateID, cfg.AggregateIDs, cfg.All); err != nil {
		return err
	}
	if cfg.WarningsCap < 0 {
		return errors.New("-warnings-cap must be >= 0")
	}

	events := event.NewRegistry()
	if err := objective.RegisterEvents(events); err != nil {
		return fmt.Errorf("register events: %w", err)
	}
	store, err := sqlite.Open(cfg.DBPath, events)
	if err != nil {
		return fmt.Errorf("open sqlite store: %w", err)
	}
	return runWithDeps(ctx, cfg, store, events, out, errOut)
}

// runWithDeps contains the core maintenance logic. It owns the store and
// closes it on return.
func runWithDeps(ctx context.Context, cfg Config, store journalStore, registry *event.Registry, out io.Writer, errOut io.Writer) error {
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(errOut, "Error: close store: %v\n", err)
		}
	}()

	mode, err := resolveMode(cfg)
	if err != nil {
		return err
	}
	ids, err := resolveAggregateIDs(cfg.AggregateID, cfg.AggregateIDs, cfg.All)
	if err != nil {
		return err
	}
	if cfg.All {
		ids, err = store.ListAggregateIDs(ctx)
		if err != nil {
			return fmt.Errorf("list aggregates: %w", err)
		}
	}

	failed := false
	for _, id := range ids {
		result := runAggregate(ctx, store, registry, id, mode)
		result.Warnings, result.WarningsTotal = capWarnings(result.Warnings, cfg.WarningsCap)
		if cfg.JSONOutput {
			outputJSON(out, errOut, result)
		} else {
			prefix := ""
			if len(ids) > 1 {
				prefix = fmt.Sprintf("[%s] ", id)
			}
			printResult(out, errOut, result, prefix)
		}
		if result.ExitCode != 0 {
			failed = true
		}
	}
	if failed {
		return errors.New("maintenance failed")
	}
	return nil
}

type report struct {
	LastSeq       uint64          `json:"last_seq"`
	Events        int             `json:"events"`
	InvalidEvents int             `json:"invalid_events,omitempty"`
	ViewMatches   *bool           `json:"view_matches,omitempty"`
	View          json.RawMessage `json:"view,omitempty"`
}

type runResult struct {
	AggregateID   string   `json:"aggregate_id"`
	Mode          string   `json:"mode"`
	Report        *report  `json:"report,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
	WarningsTotal int      `json:"warnings_total,omitempty"`
	Error         string   `json:"error,omitempty"`
	ExitCode      int      `json:"-"`
}

func runAggregate(ctx context.Context, store journalStore, registry *event.Registry, aggregateID string, mode string) runResult {
	result := runResult{AggregateID: aggregateID, Mode: mode}
	fail := func(format string, args ...any) runResult {
		result.Error = fmt.Sprintf(format, args...)
		result.ExitCode = 1
		return result
	}

	switch mode {
	case modeVerify:
		checked, err := store.VerifyAggregate(ctx, aggregateID)
		result.Report = &report{LastSeq: uint64(checked), Events: checked}
		if err != nil {
			return fail("verify chain: %v", err)
		}
		return result

	case modeValidate:
		rep, warnings, err := validateEvents(ctx, store, registry, aggregateID)
		result.Report, result.Warnings = &rep, warnings
		if err != nil {
			return fail("validate events: %v", err)
		}
		if rep.InvalidEvents > 0 {
			result.ExitCode = 1
		}
		return result

	case modeIntegrity:
		rep, warnings, err := checkViewIntegrity(ctx, store, aggregateID)
		result.Report, result.Warnings = &rep, warnings
		if err != nil {
			return fail("integrity check: %v", err)
		}
		if rep.ViewMatches != nil && !*rep.ViewMatches {
			result.ExitCode = 1
		}
		return result

	case modePrint:
		replayed, err := projection.Replay(ctx, store, aggregateID)
		if err != nil {
			return fail("%v", err)
		}
		if !replayed.State.Exists() {
			return fail("objective %s has no events", aggregateID)
		}
		data, err := view.Encode(replayed.State)
		if err != nil {
			return fail("%v", err)
		}
		result.Report = &report{LastSeq: replayed.LastSeq, Events: replayed.Applied, View: data}
		return result
	}

	stats, err := projection.Rebuild(ctx, store, store, aggregateID)
	if err != nil {
		return fail("rebuild view: %v", err)
	}
	lastSeq, err := store.GetLatestEventSeq(ctx, aggregateID)
	if err != nil {
		return fail("latest seq: %v", err)
	}
	result.Report = &report{LastSeq: lastSeq, Events: stats.Events}
	if stats.Aggregates == 0 {
		result.Warnings = append(result.Warnings, "no view written: objective has no creation event")
	}
	return result
}

func validateEvents(ctx context.Context, store storage.EventStore, registry *event.Registry, aggregateID string) (report, []string, error) {
	var (
		rep      report
		warnings []string
	)
	for {
		events, err := store.ListEvents(ctx, aggregateID, rep.LastSeq, validatePageSize)
		if err != nil {
			return rep, warnings, err
		}
		for _, evt := range events {
			rep.Events++
			rep.LastSeq = evt.Seq
			if _, err := registry.ValidateForAppend(evt); err != nil {
				rep.InvalidEvents++
				warnings = append(warnings, fmt.Sprintf("seq %d %s: %v", evt.Seq, evt.Type, err))
			}
		}
		if len(events) < validatePageSize {
			return rep, warnings, nil
		}
	}
}

func checkViewIntegrity(ctx context.Context, store journalStore, aggregateID string) (report, []string, error) {
	replayed, err := projection.Replay(ctx, store, aggregateID)
	if err != nil {
		return report{}, nil, err
	}
	rep := report{LastSeq: replayed.LastSeq, Events: replayed.Applied}
	matches := false
	rep.ViewMatches = &matches

	stored, err := store.GetView(ctx, aggregateID)
	if errors.Is(err, storage.ErrNotFound) {
		if !replayed.State.Exists() {
			matches = true
			return rep, nil, nil
		}
		return rep, []string{"stored view is missing"}, nil
	}
	if err != nil {
		return rep, nil, err
	}

	var warnings []string
	if stored.LastSeq != replayed.LastSeq {
		warnings = append(warnings, fmt.Sprintf("stored view at seq %d, journal at seq %d", stored.LastSeq, replayed.LastSeq))
	}
	want, err := view.Encode(replayed.State)
	if err != nil {
		return rep, warnings, err
	}
	got, err := view.Encode(stored.View)
	if err != nil {
		return rep, warnings, err
	}
	if !bytes.Equal(want, got) {
		warnings = append(warnings, fmt.Sprintf("stored view differs from replay: stored=%s replay=%s", got, want))
	}
	matches = len(warnings) == 0
	return rep, warnings, nil
}

func runHealth(ctx context.Context, addr string, timeout time.Duration, out io.Writer, errOut io.Writer) error {
	logf := func(format string, args ...any) {
		fmt.Fprintf(errOut, format+"\n", args...)
	}
	conn, err := platformgrpc.Dial(ctx, addr, objectives.ServiceName, timeout, logf)
	if err != nil {
		return err
	}
	if err := conn.Close(); err != nil {
		fmt.Fprintf(errOut, "Error: close connection: %v\n", err)
	}
	fmt.Fprintf(out, "%s at %s is serving\n", objectives.ServiceName, addr)
	return nil
}

func resolveMode(cfg Config) (string, error) {
	selected := make([]string, 0, 1)
	for _, mode := range []struct {
		set  bool
		name string
	}{
		{cfg.Verify, modeVerify},
		{cfg.Validate, modeValidate},
		{cfg.Integrity, modeIntegrity},
		{cfg.Print, modePrint},
	} {
		if mode.set {
			selected = append(selected, mode.name)
		}
	}
	switch len(selected) {
	case 0:
		return modeRebuild, nil
	case 1:
		return selected[0], nil
	default:
		return "", fmt.Errorf("-%s cannot be combined with -%s", selected[0], selected[1])
	}
}

func resolveAggregateIDs(singleID, list string, all bool) ([]string, error) {
	set := 0
	for _, chosen := range []bool{singleID != "", list != "", all} {
		if chosen {
			set++
		}
	}
	if set == 0 {
		return nil, errors.New("one of -aggregate-id, -aggregate-ids or -all is required")
	}
	if set > 1 {
		return nil, errors.New("-aggregate-id, -aggregate-ids and -all are mutually exclusive")
	}
	if all {
		return nil, nil
	}
	if singleID != "" {
		return []string{strings.TrimSpace(singleID)}, nil
	}
	ids := splitCSV(list)
	if len(ids) == 0 {
		return nil, errors.New("-aggregate-ids must contain at least one objective id")
	}
	return ids, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	output := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		output = append(output, trimmed)
	}
	return output
}

func capWarnings(warnings []string, limit int) ([]string, int) {
	total := len(warnings)
	if limit == 0 || total <= limit {
		return warnings, total
	}
	return warnings[:limit], total
}

func outputJSON(out io.Writer, errOut io.Writer, result runResult) {
	encoded, err := json.Marshal(result)
	if err != nil {
		fmt.Fprintf(errOut, "Error: encode report: %v\n", err)
		return
	}
	fmt.Fprintln(out, string(encoded))
}

func printResult(out io.Writer, errOut io.Writer, result runResult, prefix string) {
	if result.Error != "" {
		fmt.Fprintf(errOut, "%sError: %s\n", prefix, result.Error)
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(errOut, "%sWarning: %s\n", prefix, warning)
	}
	if result.WarningsTotal > len(result.Warnings) {
		fmt.Fprintf(errOut, "%sWarning: %d more warnings suppressed\n", prefix, result.WarningsTotal-len(result.Warnings))
	}
	rep := result.Report
	if rep == nil || result.Error != "" {
		return
	}
	switch result.Mode {
	case modeVerify:
		fmt.Fprintf(out, "%sVerified hash chain for objective %s (%d events)\n", prefix, result.AggregateID, rep.Events)
	case modeValidate:
		fmt.Fprintf(out, "%sValidated events for objective %s through seq %d (%d invalid, %d total)\n", prefix, result.AggregateID, rep.LastSeq, rep.InvalidEvents, rep.Events)
	case modeIntegrity:
		fmt.Fprintf(out, "%sIntegrity check for objective %s through seq %d: view match %t\n", prefix, result.AggregateID, rep.LastSeq, rep.ViewMatches != nil && *rep.ViewMatches)
	case modePrint:
		fmt.Fprintf(out, "%s%s\n", prefix, rep.View)
	default:
		fmt.Fprintf(out, "%sRebuilt view for objective %s through seq %d (%d events)\n", prefix, result.AggregateID, rep.LastSeq, rep.Events)
	}
}
