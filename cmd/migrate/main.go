// Command migrate applies versioned BigQuery DDL migrations for the
// learning dataset. Migration files live in migrations/bigquery as
// NNNN_name.sql and are tracked in a schema_migrations table so reruns
// only apply what is new.
package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/Motta-Financial/statement-audit/internal/logger"
)

type migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

type appliedMigration struct {
	Version  int
	Name     string
	Checksum string
}

var (
	projectID     = flag.String("project", "", "GCP project ID (required)")
	datasetID     = flag.String("dataset", "statement_learning", "BigQuery dataset ID")
	appliedBy     = flag.String("applied-by", "migrate-cli", "name recorded against applied migrations")
	migrationsDir = flag.String("migrations", "migrations/bigquery", "path to the migrations directory")
)

func main() {
	flag.Parse()
	log := logger.New()

	if *projectID == "" {
		log.Fatal().Msg("Error: -project flag is required")
	}

	ctx := context.Background()
	client, err := bigquery.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("creating BigQuery client failed")
	}
	defer client.Close()

	log.Info().Str("project", *projectID).Str("dataset", *datasetID).Msg("connected to BigQuery")

	if err := ensureSchemaMigrationsTable(ctx, client); err != nil {
		log.Fatal().Err(err).Msg("ensuring schema_migrations table failed")
	}

	migrations, err := readMigrations(*migrationsDir, *projectID, *datasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("reading migrations failed")
	}

	applied, err := getAppliedMigrations(ctx, client)
	if err != nil {
		log.Fatal().Err(err).Msg("reading applied migrations failed")
	}
	appliedByVersion := make(map[int]appliedMigration, len(applied))
	for _, am := range applied {
		appliedByVersion[am.Version] = am
	}

	ran := 0
	for _, m := range migrations {
		if am, ok := appliedByVersion[m.Version]; ok {
			if am.Checksum != "" && am.Checksum != m.Checksum {
				log.Fatal().
					Int("version", m.Version).
					Str("name", m.Name).
					Msg("applied migration was edited after the fact; refusing to continue")
			}
			log.Debug().Int("version", m.Version).Str("name", m.Name).Msg("already applied")
			continue
		}

		log.Info().Int("version", m.Version).Str("name", m.Name).Msg("applying migration")
		if err := runStatement(ctx, client, m.SQL); err != nil {
			log.Fatal().Err(err).Int("version", m.Version).Str("name", m.Name).Msg("migration failed")
		}
		if err := recordMigration(ctx, client, m); err != nil {
			log.Fatal().Err(err).Int("version", m.Version).Str("name", m.Name).Msg("recording migration failed")
		}
		ran++
	}

	if ran == 0 {
		log.Info().Msg("no new migrations; dataset is up to date")
	} else {
		log.Info().Int("applied", ran).Msg("migrations complete")
	}
}

func ensureSchemaMigrationsTable(ctx context.Context, client *bigquery.Client) error {
	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS `+"`%s.%s.schema_migrations`"+` (
			version    INT64 NOT NULL,
			name       STRING NOT NULL,
			applied_at TIMESTAMP NOT NULL,
			checksum   STRING,
			applied_by STRING
		)
	`, *projectID, *datasetID)
	return runStatement(ctx, client, sql)
}

var migrationFilename = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// parseMigrationFilename splits NNNN_name.sql into its version and name.
func parseMigrationFilename(filename string) (version int, name string, ok bool) {
	matches := migrationFilename.FindStringSubmatch(filename)
	if matches == nil {
		return 0, "", false
	}
	version, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, "", false
	}
	return version, matches[2], true
}

// checksumOf fingerprints the migration file content before placeholder
// substitution, so the same logical migration matches across datasets.
func checksumOf(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

func readMigrations(dir, project, dataset string) ([]migration, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		// Running from cmd/migrate directly.
		dir = filepath.Join("..", "..", dir)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return nil, fmt.Errorf("migrations directory not found: %s", dir)
		}
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []migration
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		version, name, ok := parseMigrationFilename(file.Name())
		if !ok {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", file.Name(), err)
		}

		sql := string(content)
		sql = strings.ReplaceAll(sql, "{{PROJECT_ID}}", project)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", dataset)

		migrations = append(migrations, migration{
			Version:  version,
			Name:     name,
			Filename: file.Name(),
			SQL:      sql,
			Checksum: checksumOf(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

func getAppliedMigrations(ctx context.Context, client *bigquery.Client) ([]appliedMigration, error) {
	sql := fmt.Sprintf(`
		SELECT version, name, checksum
		FROM `+"`%s.%s.schema_migrations`"+`
		ORDER BY version ASC
	`, *projectID, *datasetID)

	it, err := client.Query(sql).Read(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "Not found") {
			return nil, nil
		}
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	var applied []appliedMigration
	for {
		var row struct {
			Version  int64
			Name     string
			Checksum bigquery.NullString
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating results: %w", err)
		}
		am := appliedMigration{Version: int(row.Version), Name: row.Name}
		if row.Checksum.Valid {
			am.Checksum = row.Checksum.StringVal
		}
		applied = append(applied, am)
	}
	return applied, nil
}

func recordMigration(ctx context.Context, client *bigquery.Client, m migration) error {
	sql := fmt.Sprintf(`
		INSERT INTO `+"`%s.%s.schema_migrations`"+`
			(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, @applied_at, @checksum, @applied_by)
	`, *projectID, *datasetID)

	q := client.Query(sql)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "version", Value: int64(m.Version)},
		{Name: "name", Value: m.Name},
		{Name: "applied_at", Value: time.Now().UTC()},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: *appliedBy},
	}
	return runQuery(ctx, q)
}

func runStatement(ctx context.Context, client *bigquery.Client, sql string) error {
	return runQuery(ctx, client.Query(sql))
}

func runQuery(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
