package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/opscart/k8s-resource-resizer/pkg/cluster"
	"github.com/opscart/k8s-resource-resizer/pkg/config"
	"github.com/opscart/k8s-resource-resizer/pkg/discovery"
	"github.com/opscart/k8s-resource-resizer/pkg/engine"
	"github.com/opscart/k8s-resource-resizer/pkg/manifest"
	"github.com/opscart/k8s-resource-resizer/pkg/metrics"
	"github.com/opscart/k8s-resource-resizer/pkg/models"
	"github.com/opscart/k8s-resource-resizer/pkg/reporter"
	"github.com/opscart/k8s-resource-resizer/pkg/storage"
	"github.com/opscart/k8s-resource-resizer/pkg/strategy"
	"github.com/opscart/k8s-resource-resizer/pkg/window"
)

var (
	// Analyze flags
	namespace     string
	allNamespaces bool
	strategyName  string
	windowSpec    string
	stepSpec      string
	outputFormat  string
	outputFile    string
	applyChanges  bool
	saveResults   bool
	usePrometheus bool
	verbose       bool
	parallelism   int
	runTimeout    time.Duration

	// Strategy tuning flags
	cpuPercentile      float64
	memoryPercentile   float64
	businessHoursStart int
	businessHoursEnd   int
	businessDays       string
	trendThreshold     float64
	varianceThreshold  float64

	// Safety constraint flags
	cpuFloor      string
	cpuCeiling    string
	memoryFloor   string
	memoryCeiling string
	cpuBuffer     float64
	memoryBuffer  float64

	// Global config
	cfg   *config.Config
	store storage.Store

	// History command vars
	historyLimit int
)

func logVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Printf("[DEBUG] "+format+"\n", args...)
	}
}

func main() {
	// Initialize config
	cfg = config.NewConfig()

	var rootCmd = &cobra.Command{
		Use:   "resizer [manifest-dir]",
		Short: "Kubernetes resource request and limit right-sizer",
		Long: `Analyze historical container usage and recommend CPU and memory
requests and limits. Given a manifest directory the recommendations can be
written back in place; without one, workloads are read from the cluster and
the result is report-only.`,
		Args: cobra.MaximumNArgs(1),
		Run:  runResize,
	}

	rootCmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Namespace to analyze (cluster mode)")
	rootCmd.Flags().BoolVarP(&allNamespaces, "all-namespaces", "A", false, "Analyze all namespaces (cluster mode)")
	rootCmd.Flags().StringVarP(&strategyName, "strategy", "s", strategy.NameEnsemble, "Recommendation strategy (see 'resizer strategies')")
	rootCmd.Flags().StringVarP(&windowSpec, "window", "w", cfg.HistoryWindow, "History window, e.g. 24h, 7d, 4w, 1yr")
	rootCmd.Flags().StringVar(&stepSpec, "step", "5m", "Metric sampling step")
	rootCmd.Flags().StringVarP(&outputFormat, "output", "o", cfg.OutputFormat, "Output format: text, json, yaml, csv")
	rootCmd.Flags().StringVar(&outputFile, "output-file", "", "Write the report to a file instead of stdout")
	rootCmd.Flags().BoolVar(&applyChanges, "apply", false, "Write recommendations back into the manifest files")
	rootCmd.Flags().BoolVar(&saveResults, "save", false, "Save the run to the history database")
	rootCmd.Flags().BoolVar(&usePrometheus, "use-prometheus", true, "Use Prometheus range queries (falls back to metrics-server)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", cfg.Verbose, "Enable verbose logging")
	rootCmd.Flags().IntVar(&parallelism, "parallelism", 4, "Concurrent container evaluations")
	rootCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Abort the run after this duration, keeping finished results (0 disables)")

	rootCmd.Flags().Float64Var(&cpuPercentile, "cpu-percentile", cfg.CPUPercentile, "CPU usage percentile for requests")
	rootCmd.Flags().Float64Var(&memoryPercentile, "memory-percentile", 99.0, "Memory usage percentile for requests")
	rootCmd.Flags().IntVar(&businessHoursStart, "business-hours-start", cfg.BusinessHoursStart, "Business hours start (UTC hour)")
	rootCmd.Flags().IntVar(&businessHoursEnd, "business-hours-end", cfg.BusinessHoursEnd, "Business hours end (UTC hour)")
	rootCmd.Flags().StringVar(&businessDays, "business-days", "", "Business days, e.g. Mon,Tue,Wed (default Mon-Fri or BUSINESS_DAYS)")
	rootCmd.Flags().Float64Var(&trendThreshold, "trend-threshold", cfg.TrendThreshold, "Relative growth above which usage counts as trending")
	rootCmd.Flags().Float64Var(&varianceThreshold, "variance-threshold", cfg.VarianceThreshold, "Coefficient of variation above which usage counts as volatile")

	rootCmd.Flags().StringVar(&cpuFloor, "cpu-floor", "10m", "Minimum CPU request")
	rootCmd.Flags().StringVar(&cpuCeiling, "cpu-ceiling", "64", "Maximum CPU limit")
	rootCmd.Flags().StringVar(&memoryFloor, "memory-floor", "32Mi", "Minimum memory request")
	rootCmd.Flags().StringVar(&memoryCeiling, "memory-ceiling", "256Gi", "Maximum memory limit")
	rootCmd.Flags().Float64Var(&cpuBuffer, "cpu-buffer", 1.10, "Safety multiplier applied to CPU values")
	rootCmd.Flags().Float64Var(&memoryBuffer, "memory-buffer", cfg.MemoryBuffer, "Safety multiplier applied to memory values")

	// History command
	historyCmd := &cobra.Command{
		Use:   "history [namespace/workload/container]",
		Short: "View past runs or one container's recommendation history",
		Args:  cobra.MaximumNArgs(1),
		Run:   runHistory,
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of entries to show")

	// Strategies command
	strategiesCmd := &cobra.Command{
		Use:   "strategies",
		Short: "List available recommendation strategies",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range strategy.Names() {
				fmt.Println(name)
			}
		},
	}

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(strategiesCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initStorage() error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set to use the history database")
	}

	var err error
	store, err = storage.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	return nil
}

func runResize(cmd *cobra.Command, args []string) {
	manifestDir := ""
	if len(args) == 1 {
		manifestDir = args[0]
	}

	if manifestDir == "" && namespace == "" && !allNamespaces {
		fmt.Fprintln(os.Stderr, "Error: provide a manifest directory, or --namespace / --all-namespaces for cluster mode")
		os.Exit(1)
	}
	if applyChanges && manifestDir == "" {
		fmt.Fprintln(os.Stderr, "Error: --apply requires a manifest directory")
		os.Exit(1)
	}

	lookback, err := window.Parse(windowSpec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	step, err := time.ParseDuration(stepSpec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid step %q: %v\n", stepSpec, err)
		os.Exit(1)
	}

	// Overlay flag values onto the env-derived defaults and validate the
	// result; a degenerate configuration aborts before any analysis.
	cfg.CPUPercentile = cpuPercentile
	cfg.MemoryBuffer = memoryBuffer
	cfg.BusinessHoursStart = businessHoursStart
	cfg.BusinessHoursEnd = businessHoursEnd
	cfg.StorageEnabled = cfg.StorageEnabled || saveResults
	if businessDays != "" {
		days, err := config.ParseWeekdays(businessDays)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid --business-days: %v\n", err)
			os.Exit(1)
		}
		cfg.BusinessDays = days
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if saveResults {
		if err := initStorage(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	fmt.Println("[INFO] K8s Resource Resizer - starting analysis")
	fmt.Printf("[INFO] Strategy: %s, window: %s, step: %s\n", strategyName, windowSpec, stepSpec)

	ctx := context.Background()

	// Collect targets
	var targets []engine.Target
	var clusterClient *cluster.Client

	if manifestDir != "" {
		disc := &discovery.Discoverer{Verbose: verbose}
		targets, err = disc.Discover(manifestDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error discovering manifests: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("[INFO] Discovered %d container(s) in %s\n", len(targets), manifestDir)
	} else {
		clusterClient, err = cluster.New()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to cluster: %v\n", err)
			os.Exit(1)
		}
		targets, err = clusterClient.ListTargets(ctx, namespace, allNamespaces)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing workloads: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("[INFO] Found %d container(s) in cluster\n", len(targets))
	}

	if len(targets) == 0 {
		fmt.Println("[INFO] Nothing to analyze")
		return
	}

	// Pick a metrics provider: Prometheus range queries when reachable,
	// metrics-server instant samples otherwise.
	provider, err := selectProvider(ctx, clusterClient)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("[INFO] Metrics source: %s\n", provider.Name())

	eng, err := engine.New(provider, buildStrategyConfig(), buildConstraints(), engine.DefaultSeverityThresholds(), engine.Options{
		Strategy:    strategyName,
		Lookback:    lookback,
		Step:        step,
		Parallelism: parallelism,
		Timeout:     runTimeout,
		Verbose:     verbose,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	results, err := eng.Run(ctx, targets)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] Evaluation interrupted: %v\n", err)
	}

	if applyChanges {
		applyResults(results)
	}

	rep := reporter.New(reporter.ReportFormat(outputFormat))
	report := rep.Generate(results, strategyName, windowSpec)

	out := os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating report file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	if err := rep.Write(report, out); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		os.Exit(1)
	}
	if outputFile != "" {
		fmt.Printf("[INFO] Report written to %s\n", outputFile)
	}

	if saveResults {
		saveRun(ctx, report, results)
	}
}

// selectProvider prefers Prometheus and falls back to metrics-server
// instant samples. Instant samples carry far less signal, so the fallback
// is logged loudly.
func selectProvider(ctx context.Context, clusterClient *cluster.Client) (metrics.Provider, error) {
	if usePrometheus && cfg.PrometheusURL != "" {
		prom, err := metrics.NewPrometheusProvider(cfg.PrometheusURL, verbose)
		if err != nil {
			fmt.Printf("[WARN] Prometheus initialization failed: %v\n", err)
		} else if prom.IsAvailable(ctx) {
			fmt.Printf("[INFO] Using Prometheus at %s\n", cfg.PrometheusURL)
			return prom, nil
		} else {
			fmt.Println("[WARN] Prometheus not reachable, falling back to metrics-server")
		}
	} else if usePrometheus {
		fmt.Println("[INFO] Prometheus URL not configured, using metrics-server")
		fmt.Println("[INFO] Set PROMETHEUS_URL environment variable to enable Prometheus")
	}

	if clusterClient == nil {
		var err error
		clusterClient, err = cluster.New()
		if err != nil {
			return nil, fmt.Errorf("no metrics source available: %w", err)
		}
	}
	return cluster.NewInstantProvider(clusterClient), nil
}

func buildStrategyConfig() strategy.Config {
	sc := strategy.DefaultConfig()
	sc.CPUPercentile = cpuPercentile
	sc.MemoryPercentile = memoryPercentile
	sc.BusinessHoursStart = businessHoursStart
	sc.BusinessHoursEnd = businessHoursEnd
	sc.BusinessDays = cfg.BusinessDays
	sc.TrendThreshold = trendThreshold
	sc.HighVarianceThreshold = varianceThreshold
	return sc
}

func buildConstraints() engine.SafetyConstraints {
	c := engine.DefaultConstraints()
	c.CPUBuffer = cpuBuffer
	c.MemoryBuffer = memoryBuffer

	parse := func(name, value string, parser func(string) (float64, error), dst *float64) {
		v, err := parser(value)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid --%s: %v\n", name, err)
			os.Exit(1)
		}
		*dst = v
	}
	parse("cpu-floor", cpuFloor, manifest.ParseCPU, &c.CPUFloor)
	parse("cpu-ceiling", cpuCeiling, manifest.ParseCPU, &c.CPUCeiling)
	parse("memory-floor", memoryFloor, manifest.ParseMemory, &c.MemoryFloor)
	parse("memory-ceiling", memoryCeiling, manifest.ParseMemory, &c.MemoryCeiling)
	return c
}

// applyResults writes successful recommendations back to their manifest
// files, grouping by file so each file is rewritten once.
func applyResults(results []engine.Result) {
	byPath := make(map[string][]manifest.Update)
	for _, res := range results {
		if res.Err != nil || res.Target.Path == "" {
			continue
		}
		byPath[res.Target.Path] = append(byPath[res.Target.Path], manifest.Update{
			Container: res.Target.Container,
			Values:    res.Recommendation.Recommended,
		})
	}

	mut := manifest.NewMutator()
	applied, unchanged := 0, 0
	for path, updates := range byPath {
		outcomes, err := mut.ApplyFile(path, updates)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] Failed to update %s: %v\n", path, err)
			continue
		}
		for i, outcome := range outcomes {
			if outcome.Err != nil {
				fmt.Fprintf(os.Stderr, "[WARN] %s: %v\n", updates[i].Container, outcome.Err)
				continue
			}
			if outcome.Edit.NoOp {
				unchanged++
				logVerbose("%s already within tolerance", updates[i].Container)
				continue
			}
			applied++
			fmt.Printf("[INFO] Updated %s in %s\n", updates[i].Container, path)
		}
	}
	fmt.Printf("[INFO] Applied %d change(s), %d container(s) already sized correctly\n", applied, unchanged)
}

func saveRun(ctx context.Context, report *reporter.Report, results []engine.Result) {
	run := &storage.Run{
		Strategy:  strategyName,
		Window:    windowSpec,
		Targets:   report.Targets,
		Succeeded: report.Succeeded,
		Failed:    report.Failed,
	}

	var recs []*models.Recommendation
	for _, res := range results {
		if res.Err == nil {
			recs = append(recs, res.Recommendation)
		}
	}

	if err := store.SaveRun(ctx, run, recs); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] Failed to save run: %v\n", err)
		return
	}
	fmt.Printf("[INFO] Saved run %s (%d recommendation(s))\n", run.ID, len(recs))
}

func runHistory(cmd *cobra.Command, args []string) {
	if err := initStorage(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()

	if len(args) == 0 {
		runs, err := store.ListRuns(ctx, historyLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded")
			return
		}
		fmt.Println("Recent runs:")
		for i, run := range runs {
			fmt.Printf("%d. %s\n", i+1, run.ID)
			fmt.Printf("   Strategy: %s, window: %s\n", run.Strategy, run.Window)
			fmt.Printf("   Targets: %d (%d ok, %d failed)\n", run.Targets, run.Succeeded, run.Failed)
			fmt.Printf("   Created: %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Println()
		}
		return
	}

	parts := strings.Split(args[0], "/")
	if len(parts) != 3 {
		fmt.Fprintln(os.Stderr, "Error: expected namespace/workload/container")
		os.Exit(1)
	}
	id := models.ContainerID{Namespace: parts[0], Workload: parts[1], Container: parts[2]}

	recs, err := store.ListContainerHistory(ctx, id, historyLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(recs) == 0 {
		fmt.Printf("No recommendations found for %s\n", id)
		return
	}

	fmt.Printf("Recent recommendations for %s:\n\n", id)
	for i, rec := range recs {
		fmt.Printf("%d. %s (ID: %s)\n", i+1, rec.Strategy, rec.ID)
		fmt.Printf("   CPU: %s -> %s (limit %s)\n",
			manifest.FormatCPU(rec.Current.CPURequest),
			manifest.FormatCPU(rec.Recommended.CPURequest),
			manifest.FormatCPU(rec.Recommended.CPULimit))
		fmt.Printf("   Memory: %s -> %s (limit %s)\n",
			manifest.FormatMemory(rec.Current.MemoryRequest),
			manifest.FormatMemory(rec.Recommended.MemoryRequest),
			manifest.FormatMemory(rec.Recommended.MemoryLimit))
		fmt.Printf("   Severity: %s, confidence: %.2f\n", rec.Severity, rec.Confidence)
		fmt.Printf("   Created: %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}
}
