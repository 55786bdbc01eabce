package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"betting-assessment-service/internal/config"
	"betting-assessment-service/internal/domain"
	"betting-assessment-service/internal/upload"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewImportCmd imports a CSV or ZIP question file into Postgres.
func NewImportCmd(configPath *string) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "import <questions.csv|questions.zip>",
		Short: "Import a question file as a new question set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			defer func() { _ = log.Sync() }()

			set, err := runImport(cmd.Context(), cfg, log, args[0], name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "question set %s: %d questions\n", set.ID, len(set.QuestionIDs))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "question set name (defaults to the file name)")
	return cmd
}

func runImport(ctx context.Context, cfg config.Config, log *zap.Logger, path, name string) (domain.ImportedSet, error) {
	if cfg.Postgres.URL == "" {
		return domain.ImportedSet{}, domain.ErrPersistenceDisabled
	}
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ImportedSet{}, err
	}

	if err := runMigrations(ctx, cfg, log); err != nil {
		return domain.ImportedSet{}, err
	}
	b, err := connectBackends(ctx, cfg, log)
	if err != nil {
		return domain.ImportedSet{}, err
	}
	defer b.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		preview, err := upload.ParseCSV(bytes.NewReader(data))
		if err != nil {
			return domain.ImportedSet{}, err
		}
		if len(preview.Errors) > 0 {
			msgs := make([]string, len(preview.Errors))
			for i, e := range preview.Errors {
				msgs[i] = e.String()
			}
			return domain.ImportedSet{}, fmt.Errorf("%w: %s", domain.ErrInvalidUpload, strings.Join(msgs, " | "))
		}
		return b.store.ImportQuestionSet(ctx, name, preview.ParsedQuestions)
	case ".zip":
		res, err := newImporter(cfg, b, log).ImportZip(ctx, name, data)
		if err != nil {
			return domain.ImportedSet{}, err
		}
		return domain.ImportedSet{ID: res.QuestionSetID, QuestionIDs: res.Inserted}, nil
	default:
		return domain.ImportedSet{}, fmt.Errorf("%w: expected a .csv or .zip file", domain.ErrInvalidUpload)
	}
}
