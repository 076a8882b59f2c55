package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/Motta-Financial/statement-audit/internal/audit"
	"github.com/Motta-Financial/statement-audit/internal/bankprofile"
	bqgateway "github.com/Motta-Financial/statement-audit/internal/gateway/bigquery"
	"github.com/Motta-Financial/statement-audit/internal/learning"
	"github.com/Motta-Financial/statement-audit/internal/logger"
	"github.com/Motta-Financial/statement-audit/internal/model"
	"github.com/Motta-Financial/statement-audit/internal/statementstore"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runAudit(log)
	case "detect":
		runDetect(log)
	case "learn":
		runLearn(log)
	case "metrics":
		runMetrics(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Statement Audit CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  audit <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  run      Audit an extracted statement (gs:// URI or local JSON file)")
	fmt.Println("  detect   Detect the institution from raw statement text")
	fmt.Println("  learn    Mine correction patterns from a corrections JSON file")
	fmt.Println("  metrics  Show learning metrics from the persistence gateway")
	fmt.Println("  help     Show this help message")
	fmt.Println("\nRun 'audit <command> -h' for more information on a command.")
}

func runAudit(log zerolog.Logger) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	statementURI := fs.String("statement", "", "gs:// URI or local path of the extracted statement JSON")
	applyPatterns := fs.Bool("apply-patterns", false, "pre-apply learned patterns from the gateway before auditing")
	threshold := fs.Float64("large-amount", audit.DefaultLargeAmountThreshold, "large-amount advisory threshold")
	fs.Parse(os.Args[2:])

	if *statementURI == "" {
		log.Fatal().Msg("Error: --statement is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	stmt, err := statementstore.ForURI(*statementURI).Load(ctx, *statementURI)
	if err != nil {
		log.Fatal().Err(err).Msg("loading statement failed")
	}

	if *applyPatterns {
		store := learning.NewStore(learning.WithLogger(log))
		gw, closeGW := mustGateway(ctx, log)
		defer closeGW()
		store.HydrateFromGateway(ctx, gw)

		applied := store.ApplyToStatement(ctx, gw, stmt)
		log.Info().Int("patterns_applied", applied).Msg("learned patterns applied")
		store.SyncToGateway(ctx, gw)
	}

	registry := bankprofile.NewRegistry()
	engine := audit.NewEngine(
		audit.WithRegistry(registry),
		audit.WithLogger(log),
		audit.WithLargeAmountThreshold(*threshold),
	)

	result, err := engine.RunFullAudit(stmt)
	if err != nil {
		log.Fatal().Err(err).Msg("audit failed")
	}

	printJSON(result)
	if !result.Passed {
		os.Exit(2)
	}
}

func runDetect(log zerolog.Logger) {
	fs := flag.NewFlagSet("detect", flag.ExitOnError)
	textFile := fs.String("file", "", "file containing raw statement text")
	fs.Parse(os.Args[2:])

	if *textFile == "" {
		log.Fatal().Msg("Error: --file is required")
	}

	data, err := os.ReadFile(*textFile)
	if err != nil {
		log.Fatal().Err(err).Msg("reading text file failed")
	}

	registry := bankprofile.NewRegistry()
	institution, ok := registry.DetectFromContent(string(data))
	if !ok {
		fmt.Println("no institution detected")
		os.Exit(1)
	}
	fmt.Println(institution)
}

func runLearn(log zerolog.Logger) {
	fs := flag.NewFlagSet("learn", flag.ExitOnError)
	correctionsFile := fs.String("corrections", "", "JSON file with an array of corrections")
	sync := fs.Bool("sync", false, "sync mined patterns back to the persistence gateway")
	fs.Parse(os.Args[2:])

	if *correctionsFile == "" {
		log.Fatal().Msg("Error: --corrections is required")
	}

	data, err := os.ReadFile(*correctionsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("reading corrections file failed")
	}
	var batch []model.TransactionCorrection
	if err := json.Unmarshal(data, &batch); err != nil {
		log.Fatal().Err(err).Msg("parsing corrections file failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store := learning.NewStore(learning.WithLogger(log))

	var mined []model.LearnedPattern
	if *sync {
		gw, closeGW := mustGateway(ctx, log)
		defer closeGW()
		store.HydrateFromGateway(ctx, gw)
		mined = store.LearnAndSync(ctx, gw, batch)
	} else {
		for _, c := range batch {
			store.AddCorrection(c)
		}
		mined = store.LearnFromCorrections(batch)
	}

	printJSON(mined)
	log.Info().Int("corrections", len(batch)).Int("patterns", len(mined)).Msg("learning complete")
}

func runMetrics(log zerolog.Logger) {
	fs := flag.NewFlagSet("metrics", flag.ExitOnError)
	institution := fs.String("institution", "", "filter by institution id")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer cancel()

	gw, closeGW := mustGateway(ctx, log)
	defer closeGW()

	metrics, err := gw.LoadMetrics(ctx, *institution)
	if err != nil {
		log.Fatal().Err(err).Msg("loading metrics failed")
	}
	for i := range metrics {
		trend, err := gw.CalculateImprovementTrend(ctx, metrics[i].Institution)
		if err != nil {
			log.Warn().Err(err).Str("institution", metrics[i].Institution).Msg("trend unavailable")
			continue
		}
		metrics[i].ImprovementTrend = trend
	}

	printJSON(metrics)
}

func mustGateway(ctx context.Context, log zerolog.Logger) (*bqgateway.Gateway, func()) {
	project := os.Getenv("BQ_PROJECT")
	dataset := os.Getenv("BQ_DATASET")
	if project == "" || dataset == "" {
		log.Fatal().Msg("Error: BQ_PROJECT and BQ_DATASET must be set")
	}
	gw, err := bqgateway.NewGateway(ctx, project, dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("creating bigquery gateway failed")
	}
	return gw, func() {
		if err := gw.Close(); err != nil {
			log.Warn().Err(err).Msg("closing bigquery gateway")
		}
	}
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
