package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/phrasesynth/internal/config"
	"github.com/dgnsrekt/phrasesynth/internal/generator"
	"github.com/dgnsrekt/phrasesynth/internal/phrasedb"
	"github.com/dgnsrekt/phrasesynth/internal/synth"
)

var (
	outDir       string
	language     string
	voice        string
	batchSize    int
	maxPhrases   int
	maxAttempts  int
	sleepOnError float64
	dryRun       bool

	generateCmd = &cobra.Command{
		Use:   "generate",
		Short: "Synthesize MP3s for phrases that lack them",
		Long: paragraph(
			fmt.Sprintf("\nPull pending phrases from Postgres and synthesize one MP3 each via Azure Speech. Safe to interrupt and %s at any point.", keyword("re-run")),
		),
		Example: paragraph("phrasesynth generate -o ./audio\nphrasesynth generate -o ./audio --max-phrases 500 --dry-run"),
		Args:    cobra.NoArgs,
		RunE:    runGenerate,
	}
)

func init() {
	generateCmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "directory for MP3 files (file name = {id:06d}.mp3)")
	_ = generateCmd.MarkFlagRequired("out-dir")
	generateCmd.Flags().StringVar(&language, "language", "es-ES", "synthesis language")
	generateCmd.Flags().StringVar(&voice, "voice", "es-ES-AlvaroNeural", "Azure voice name")
	generateCmd.Flags().IntVar(&batchSize, "batch-size", 100, "phrases fetched from the database per page")
	generateCmd.Flags().IntVar(&maxPhrases, "max-phrases", 0, "max phrases to process this run (0 = unlimited)")
	generateCmd.Flags().IntVar(&maxAttempts, "max-attempts", 5, "max TTS attempts per phrase")
	generateCmd.Flags().Float64Var(&sleepOnError, "sleep-on-error", 5, "seconds to pause after a failed synthesis")
	generateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview without calling Azure, writing files, or updating the database")

	_ = viper.BindPFlag("language", generateCmd.Flags().Lookup("language"))
	_ = viper.BindPFlag("voice", generateCmd.Flags().Lookup("voice"))
	_ = viper.BindPFlag("batch-size", generateCmd.Flags().Lookup("batch-size"))
	_ = viper.BindPFlag("max-attempts", generateCmd.Flags().Lookup("max-attempts"))
	_ = viper.BindPFlag("sleep-on-error", generateCmd.Flags().Lookup("sleep-on-error"))

	viper.SetDefault("language", "es-ES")
	viper.SetDefault("voice", "es-ES-AlvaroNeural")
	viper.SetDefault("batch-size", 100)
	viper.SetDefault("max-attempts", 5)
	viper.SetDefault("sleep-on-error", 5)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	// flag > config file > default
	language = viper.GetString("language")
	voice = viper.GetString("voice")
	batchSize = viper.GetInt("batch-size")
	maxAttempts = viper.GetInt("max-attempts")
	sleepOnError = viper.GetFloat64("sleep-on-error")

	envCfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := envCfg.Database.Validate(); err != nil {
		return err
	}

	dir, err := homedir.Expand(outDir)
	if err != nil {
		return fmt.Errorf("unable to expand out dir: %w", err)
	}

	ctx := cmd.Context()

	db, err := phrasedb.Open(ctx, envCfg.Database.DSN())
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	var provider synth.Provider
	if !dryRun {
		if err := envCfg.Azure.Validate(); err != nil {
			return err
		}
		engine, err := synth.NewAzureEngine(synth.AzureConfig{
			Key:      envCfg.Azure.Key,
			Region:   envCfg.Azure.Region,
			Language: language,
			Voice:    voice,
		})
		if err != nil {
			return err
		}
		provider = engine
	}

	var bar *progressbar.ProgressBar
	progress := func(done, target int) {
		if bar == nil {
			bar = progressbar.NewOptions(target,
				progressbar.OptionSetDescription("TTS"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionSetItsString("phr"),
				progressbar.OptionShowIts(),
			)
		}
		_ = bar.Set(done)
	}

	runner, err := generator.New(db, provider, generator.Config{
		OutDir:       dir,
		BatchSize:    batchSize,
		MaxPhrases:   maxPhrases,
		MaxAttempts:  maxAttempts,
		SleepOnError: time.Duration(sleepOnError * float64(time.Second)),
		DryRun:       dryRun,
	}, generator.WithProgress(progress))
	if err != nil {
		return err
	}

	sum, runErr := runner.Run(ctx)
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}

	log.Info("summary",
		"target", sum.Target,
		"processed", sum.Processed,
		"done", sum.Done,
		"skipped", sum.Skipped,
		"failed", sum.Failed,
	)
	if dryRun {
		log.Info("dry-run: no Azure calls, database not modified")
	}
	return runErr
}
