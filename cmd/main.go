// Copyright Twinscan Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"golang.org/x/term"

	"twinscan/internal/config"
	"twinscan/internal/document"
	"twinscan/internal/export"
	"twinscan/internal/extractor"
	"twinscan/internal/filter"
	"twinscan/internal/matcher"
	"twinscan/internal/observability"
	"twinscan/internal/progress"
	"twinscan/internal/task"
	"twinscan/internal/version"
	"twinscan/internal/web"

	_ "twinscan/internal/export/csv"
	_ "twinscan/internal/export/json"
	_ "twinscan/internal/export/pdfreport"
	_ "twinscan/internal/export/text"
)

// cliFlags holds command line flag values
type cliFlags struct {
	threshold      float64
	sequenceLength int
	mode           string
	fast           bool
	ultraFast      bool
	filterPolicy   string
	maxMatches     int
	contextChars   int
	minLineLength  int
	pageRange1     string
	pageRange2     string
	format         string
	output         string
	verbose        bool
	noColor        bool
	debug          bool
	showVersion    bool
	configFile     string
	webMode        bool
	port           int
}

func main() {
	// A .env next to the binary quietly augments the environment.
	_ = godotenv.Load()

	var flags cliFlags
	flag.Float64Var(&flags.threshold, "threshold", 0, "similarity threshold in (0, 1]")
	flag.IntVar(&flags.sequenceLength, "sequence-length", 0, "units per comparison window")
	flag.StringVar(&flags.mode, "mode", "", "processing mode: standard, fast, ultra_fast")
	flag.BoolVar(&flags.fast, "fast", false, "shorthand for -mode fast")
	flag.BoolVar(&flags.ultraFast, "ultra-fast", false, "shorthand for -mode ultra_fast")
	flag.StringVar(&flags.filterPolicy, "filter", "", "content filter: all, main_content_only")
	flag.IntVar(&flags.maxMatches, "max-matches", 0, "maximum reported matches")
	flag.IntVar(&flags.contextChars, "context-chars", 0, "context units around each match")
	flag.IntVar(&flags.minLineLength, "min-line-length", 0, "minimum kept line length")
	flag.StringVar(&flags.pageRange1, "page-range1", "", "page range for file 1, e.g. 1-146")
	flag.StringVar(&flags.pageRange2, "page-range2", "", "page range for file 2, e.g. 1-146")
	flag.StringVar(&flags.format, "format", "", "output format: text, json, csv, pdf")
	flag.StringVar(&flags.output, "output", "", "write report to file instead of stdout")
	flag.BoolVar(&flags.verbose, "verbose", false, "include context and differences in the report")
	flag.BoolVar(&flags.noColor, "no-color", false, "disable colored output")
	flag.BoolVar(&flags.debug, "debug", false, "enable debug logging")
	flag.BoolVar(&flags.showVersion, "version", false, "print version and exit")
	flag.StringVar(&flags.configFile, "config", "", "path to config file")
	flag.BoolVar(&flags.webMode, "web", false, "run the HTTP server instead of a one-shot comparison")
	flag.IntVar(&flags.port, "port", 0, "server port for -web")
	flag.Usage = printUsage
	flag.Parse()

	if flags.showVersion {
		fmt.Println(version.Info())
		return
	}

	configPath := flags.configFile
	if configPath == "" {
		configPath = config.FindConfigFile()
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		fmt.Fprintln(os.Stderr, "Using default configuration")
		cfg, _ = config.LoadConfig("")
	}

	if flags.noColor || cfg.Defaults.NoColor || !isTerminal(os.Stdout) {
		color.NoColor = true
	}

	level := observability.LevelOff
	if flags.debug || cfg.Defaults.Debug {
		level = observability.LevelDebug
	}
	observer := observability.NewObserver(level, os.Stderr)

	if flags.webMode {
		os.Exit(runWeb(flags, cfg, observer))
	}
	os.Exit(runCompare(flags, cfg, observer))
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: twinscan [options] <file1> <file2>\n")
	fmt.Fprintf(os.Stderr, "       twinscan -web [options]\n\n")
	fmt.Fprintf(os.Stderr, "Finds near-duplicate passages between two documents (PDF or plain text).\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
}

// resolveParams layers CLI flags over config file defaults.
func resolveParams(flags cliFlags, cfg *config.Config) (task.Params, error) {
	params := task.Params{
		SimilarityThreshold: cfg.Defaults.SimilarityThreshold,
		SequenceLength:      cfg.Defaults.SequenceLength,
		FilterPolicy:        filter.Policy(cfg.Defaults.ContentFilter),
		ProcessingMode:      matcher.Mode(cfg.Defaults.ProcessingMode),
		MaxMatches:          cfg.Defaults.MaxMatches,
		ContextChars:        cfg.Defaults.ContextChars,
		MinLineLength:       cfg.Defaults.MinLineLength,
	}

	if flags.threshold != 0 {
		params.SimilarityThreshold = flags.threshold
	}
	if flags.sequenceLength != 0 {
		params.SequenceLength = flags.sequenceLength
	}
	if flags.maxMatches != 0 {
		params.MaxMatches = flags.maxMatches
	}
	if flags.contextChars != 0 {
		params.ContextChars = flags.contextChars
	}
	if flags.minLineLength != 0 {
		params.MinLineLength = flags.minLineLength
	}

	modeName := flags.mode
	switch {
	case flags.ultraFast:
		modeName = string(matcher.UltraFast)
	case flags.fast:
		modeName = string(matcher.Fast)
	}
	if modeName != "" {
		mode, err := matcher.ParseMode(modeName)
		if err != nil {
			return params, err
		}
		params.ProcessingMode = mode
	}

	if flags.filterPolicy != "" {
		policy, err := filter.ParsePolicy(flags.filterPolicy)
		if err != nil {
			return params, err
		}
		params.FilterPolicy = policy
	}

	pr1, err := document.ParsePageRange(flags.pageRange1)
	if err != nil {
		return params, err
	}
	params.PageRange1 = pr1
	pr2, err := document.ParsePageRange(flags.pageRange2)
	if err != nil {
		return params, err
	}
	params.PageRange2 = pr2

	return params, nil
}

// runCompare performs a one-shot comparison of the two positional arguments.
func runCompare(flags cliFlags, cfg *config.Config, observer *observability.Observer) int {
	args := flag.Args()
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "Error: exactly two input files are required")
		flag.Usage()
		return 2
	}
	for _, path := range args {
		if _, err := os.Stat(path); err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot read %s: %v\n", path, err)
			return 2
		}
	}

	params, err := resolveParams(flags, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	broadcaster := progress.NewBroadcaster()
	controller := task.NewController(task.NewRegistry(), broadcaster, extractor.NewRouter(), observer, task.ControllerConfig{
		Workers:   1,
		QueueSize: 1,
		Retention: time.Hour,
	})
	controller.Start()
	defer controller.Stop()

	id, err := controller.Submit(params, args[0], args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	updates, cancelSub, err := controller.Subscribe(id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer cancelSub()

	// Ctrl-C requests cooperative cancellation; a second one kills us.
	interrupts := make(chan os.Signal, 2)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupts)

	showProgress := isTerminal(os.Stderr)
	for {
		select {
		case <-interrupts:
			fmt.Fprintln(os.Stderr, "\nCancelling...")
			controller.Cancel(id)
			signal.Stop(interrupts)
		case u, ok := <-updates:
			if !ok {
				fmt.Fprintln(os.Stderr, "Error: progress stream closed unexpectedly")
				return 1
			}
			if showProgress && !u.Terminal {
				fmt.Fprintf(os.Stderr, "\r%3d%% %-40s", u.Progress, u.Message)
			}
			if !u.Terminal {
				continue
			}
			if showProgress {
				fmt.Fprintf(os.Stderr, "\r%48s\r", "")
			}
			switch task.Status(u.Status) {
			case task.StatusCompleted:
				return emitReport(controller, id, flags, cfg)
			case task.StatusCancelled:
				fmt.Fprintln(os.Stderr, "Comparison cancelled")
				return 130
			default:
				fmt.Fprintf(os.Stderr, "Error: %s\n", u.Message)
				return 1
			}
		}
	}
}

func emitReport(controller *task.Controller, id string, flags cliFlags, cfg *config.Config) int {
	result, err := controller.Result(id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	format := flags.format
	if format == "" {
		format = cfg.Defaults.Format
	}
	content, err := export.Export(format, result, export.Options{
		NoColor: color.NoColor || flags.output != "",
		Verbose: flags.verbose,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	if flags.output != "" {
		if err := os.WriteFile(flags.output, content, 0o640); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to write %s: %v\n", flags.output, err)
			return 1
		}
		fmt.Printf("Report written to %s\n", flags.output)
		return 0
	}
	os.Stdout.Write(content)
	return 0
}

// runWeb starts the HTTP server and blocks until interrupted.
func runWeb(flags cliFlags, cfg *config.Config, observer *observability.Observer) int {
	port := cfg.Server.Port
	if flags.port != 0 {
		port = flags.port
	}

	broadcaster := progress.NewBroadcaster()
	controller := task.NewController(task.NewRegistry(), broadcaster, extractor.NewRouter(), observer, task.ControllerConfig{
		Workers:   cfg.Server.Workers,
		QueueSize: cfg.Server.QueueSize,
		Retention: time.Duration(cfg.Server.RetentionMins) * time.Minute,
	})
	controller.Start()
	defer controller.Stop()

	server := web.NewServer(web.Config{
		Port:        port,
		UploadDir:   cfg.Server.UploadDir,
		MaxUploadMB: cfg.Server.MaxUploadMB,
	}, controller, observer)

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupts
		fmt.Fprintln(os.Stderr, "Shutting down...")
		server.Stop()
	}()

	if err := server.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
