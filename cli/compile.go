package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/ruleforge/ruleforge/emit"
	"github.com/ruleforge/ruleforge/graph"
	rfotel "github.com/ruleforge/ruleforge/otel"
)

// NewCompileCmd creates the "compile" subcommand.
func NewCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <graph-file>",
		Short: "Compile a graph into workshop rule text",
		Args:  cobra.ExactArgs(1),
		RunE:  runCompile,
	}

	cmd.Flags().String("manifest", "", "Definition manifest (JSON or YAML)")
	cmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().Bool("validate-only", false, "Validate the graph, don't emit")
	cmd.Flags().String("otlp-endpoint", "", "Export compile traces to an OTLP/HTTP endpoint")

	return cmd
}

// runCompile implements the compile pipeline:
//
//	load manifest → load graph → validate → (if --validate-only: stop)
//	→ emit → write output
func runCompile(cmd *cobra.Command, args []string) error {
	filePath := args[0]
	stderr := cmd.ErrOrStderr()
	stdout := cmd.OutOrStdout()
	log := newLogger(cmd)

	validateOnly, _ := cmd.Flags().GetBool("validate-only")
	outputPath, _ := cmd.Flags().GetString("output")

	reg, err := loadRegistry(cmd)
	if err != nil {
		return err
	}
	log.Debug().Int("definitions", reg.Len()).Msg("manifest loaded")

	g, err := loadGraph(filePath, reg)
	if err != nil {
		return err
	}
	log.Debug().Int("nodes", len(g.Nodes())).Msg("graph loaded")

	compile := func(ctx context.Context) (string, graph.Report) {
		report := graph.Validate(g)
		if report.HasErrors() || validateOnly {
			return "", report
		}
		text, diags := emit.Emit(g)
		report.Diagnostics = append(report.Diagnostics, diags...)
		return text, report
	}

	ctx := cmd.Context()
	text, report := "", graph.Report{}
	if endpoint, _ := cmd.Flags().GetString("otlp-endpoint"); endpoint != "" {
		shutdown, observer, err := setupTracing(ctx, endpoint)
		if err != nil {
			return fmt.Errorf("setting up tracing: %w", err)
		}
		defer shutdown()
		name := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
		text, report = observer.ObserveCompile(ctx, name, compile)
	} else {
		text, report = compile(ctx)
	}

	if report.HasErrors() {
		printDiagnosticsText(stderr, report.Diagnostics)
		for _, d := range report.Errors() {
			if d.Code == graph.CodeRecursionLimit {
				return exitError(exitEmit, "emission failed: %s", d.Message)
			}
		}
		return exitError(exitValidation, "validation failed with %d error(s)", len(report.Errors()))
	}
	for _, d := range report.Warnings() {
		log.Warn().Str("code", d.Code).Str("node", d.Node).Msg(d.Message)
	}

	if validateOnly {
		fmt.Fprintln(stdout, "Valid")
		return nil
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, []byte(text), 0600); err != nil {
			return fmt.Errorf("writing output file: %w", err)
		}
		log.Info().Str("path", outputPath).Msg("script written")
		return nil
	}
	fmt.Fprint(stdout, text)
	return nil
}

// setupTracing wires an OTLP/HTTP span exporter and returns a compile
// observer recording to it, plus a shutdown function that flushes spans.
func setupTracing(ctx context.Context, endpoint string) (func(), *rfotel.CompileObserver, error) {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))

	observer, err := rfotel.NewCompileObserver(
		tp.Tracer("ruleforge/cli"),
		otelapi.GetMeterProvider().Meter("ruleforge/cli"),
	)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, nil, err
	}

	shutdown := func() { _ = tp.Shutdown(context.Background()) }
	return shutdown, observer, nil
}
