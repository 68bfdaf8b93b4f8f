package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/phrasesynth/internal/backup"
	"github.com/dgnsrekt/phrasesynth/internal/config"
	"github.com/dgnsrekt/phrasesynth/internal/phrasedb"
)

var (
	audioDir   string
	backupFile string

	backupCmd = &cobra.Command{
		Use:   "backup",
		Short: "Export id-phrase pairs to a TSV file",
		Long: paragraph(
			fmt.Sprintf("\nDump every phrase row to a %s backup next to the MP3s.", keyword("tab-separated")),
		),
		Example: paragraph("phrasesynth backup -a ./audio\nphrasesynth backup -a ./audio -o phrases_2026-08.tsv"),
		Args:    cobra.NoArgs,
		RunE:    runBackup,
	}
)

func init() {
	backupCmd.Flags().StringVarP(&audioDir, "audio-dir", "a", "", "directory holding the MP3 files (backup is written here)")
	_ = backupCmd.MarkFlagRequired("audio-dir")
	backupCmd.Flags().StringVarP(&backupFile, "output", "o", "", "backup file name (default phrases_backup.tsv in audio-dir)")
}

func runBackup(cmd *cobra.Command, _ []string) error {
	envCfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := envCfg.Database.Validate(); err != nil {
		return err
	}

	dir, err := homedir.Expand(audioDir)
	if err != nil {
		return fmt.Errorf("unable to expand audio dir: %w", err)
	}

	outPath, err := backup.ResolveOutput(dir, backupFile)
	if err != nil {
		return err
	}
	log.Info("writing backup", "audioDir", dir, "output", outPath)

	ctx := cmd.Context()

	db, err := phrasedb.Open(ctx, envCfg.Database.DSN())
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	total, err := db.CountAll(ctx)
	if err != nil {
		return err
	}
	log.Info("phrases in database", "total", humanize.Comma(int64(total)))

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("unable to create backup file: %w", err)
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("dumping"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("phr"),
		progressbar.OptionShowIts(),
	)

	rows, exportErr := backup.Export(ctx, db, f, func(n int) { _ = bar.Add(n) })
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)

	if closeErr := f.Close(); exportErr == nil {
		exportErr = closeErr
	}
	if exportErr != nil {
		return exportErr
	}

	log.Info("backup written", "rows", rows, "path", outPath)
	return nil
}
