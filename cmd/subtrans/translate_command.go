package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"subtrans/internal/cache"
	"subtrans/internal/infer"
	"subtrans/internal/interrupt"
	"subtrans/internal/language"
	"subtrans/internal/manager"
	"subtrans/internal/pipeline"
	"subtrans/internal/validate"
	"subtrans/pkg/contract"
	"subtrans/pkg/registry"
	"subtrans/plugins/backend/nllb"
)

func newTranslateCommand(cctx *commandContext) *cobra.Command {
	var (
		langFlag     string
		outDirFlag   string
		deviceFlag   string
		largeFlag    bool
		backendFlag  string
		noCacheFlag  bool
		validateFlag bool
	)

	cmd := &cobra.Command{
		Use:   "translate [files or directories...]",
		Short: "Translate subtitle, JSON and text files",
		Long: `Translate .srt, .vtt, .json and .txt files from English into a supported
target language. Directories are expanded to their supported entries;
files that already carry a _<lang> suffix or whose output exists are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := cctx.ensure()
			if err != nil {
				return err
			}
			target, err := language.Validate(langFlag)
			if err != nil {
				return err
			}

			tier := contract.Tier(cfg.Model.Tier)
			if largeFlag {
				tier = contract.TierLarge
			}
			client := infer.New(cfg.Model.ServerURL, time.Duration(cfg.Model.TimeoutSeconds)*time.Second)
			primary, err := registry.BackendFor(backendFlag, registry.BackendOptions{
				Client:    client,
				Tier:      tier,
				MaxLength: cfg.Model.MaxLength,
				Target:    target,
			})
			if err != nil {
				return err
			}
			var fallback contract.Backend
			if backendFlag == "nllb" {
				fallback, _ = registry.BackendFor("m2m100", registry.BackendOptions{
					Client:    client,
					MaxLength: cfg.Model.MaxLength,
				})
			}

			device := cfg.Model.Device
			if deviceFlag != "" {
				device = deviceFlag
			}
			var force contract.Device
			if device != "auto" {
				force = contract.Device(device)
			}

			tok, runCtx := interrupt.New(cmd.Context())
			stopNotify := tok.Notify()
			defer stopNotify()

			mgr := manager.New(primary, fallback, manager.Options{
				Log:         log,
				Probe:       client,
				ForceDevice: force,
				CacheDir:    cfg.Model.CacheDir,
			})
			if err := mgr.Start(runCtx); err != nil {
				return err
			}
			defer func() { _ = mgr.Close(context.Background()) }()

			var store *cache.Store
			if cfg.Cache.Enabled && !noCacheFlag {
				store, err = cache.Open(cfg.Cache.Path)
				if err != nil {
					return err
				}
				defer store.Close()
			}

			var validator *validate.Validator
			if validateFlag || cfg.Pipeline.Validate {
				validator = &validate.Validator{
					Back: backTranslator(client, mgr.Active(), target, cfg.Model.MaxLength),
				}
			}

			pl := pipeline.New(mgr, pipeline.Options{
				Target:        target,
				BatchSize:     cfg.Pipeline.BatchSize,
				TextBatchSize: cfg.Pipeline.TextBatchSize,
				ChunkSize:     cfg.Pipeline.ChunkSize,
				OutDir:        outDirFlag,
				CacheModel:    mgr.Active().Spec().Model,
				Cache:         store,
				Validator:     validator,
				Token:         tok,
				Log:           log,
				Progress:      newProgress(os.Stderr),
			})
			results, err := pl.Run(runCtx, args)
			printSummary(cmd, results)
			if err != nil {
				return err
			}
			if tok.Stopping() {
				return fmt.Errorf("%w: stopped on request", contract.ErrInterrupted)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&langFlag, "lang", "l", "", "Target language code (e.g. fr, es, de)")
	cmd.Flags().StringVarP(&outDirFlag, "output", "o", "", "Output directory (default: alongside inputs)")
	cmd.Flags().StringVar(&deviceFlag, "device", "", "Execution device (auto|cuda|cpu)")
	cmd.Flags().BoolVar(&largeFlag, "large", false, "Use the large model tier")
	cmd.Flags().StringVar(&backendFlag, "backend", "nllb", "Translation backend (nllb|m2m100|marian)")
	cmd.Flags().BoolVar(&noCacheFlag, "no-cache", false, "Disable the translation cache")
	cmd.Flags().BoolVar(&validateFlag, "validate", false, "Run back-translation quality checks")
	_ = cmd.MarkFlagRequired("lang")

	return cmd
}

// backTranslator 构造 目标语言→英语 的反向调用（质量校验用）。
func backTranslator(client *infer.Client, b contract.Backend, target contract.Lang, maxLen int) validate.BackTranslator {
	spec := b.Spec()
	model := spec.Model
	src := string(target)
	dst := "en"
	switch spec.Kind {
	case "nllb":
		if c, ok := nllb.Code(target); ok {
			src = c
		}
		dst = nllb.SourceCode
	case "marian":
		// opus-mt 权重为单语向，回译需要反向权重
		model = "Helsinki-NLP/opus-mt-" + string(target) + "-en"
	}
	return func(ctx context.Context, text string) (string, error) {
		out, err := client.Translate(ctx, infer.TranslateRequest{
			Model:     model,
			Texts:     []string{text},
			Source:    src,
			Target:    dst,
			MaxLength: maxLen,
		})
		if err != nil {
			return "", err
		}
		return out[0], nil
	}
}

func printSummary(cmd *cobra.Command, results []pipeline.FileResult) {
	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No files to translate.")
		return
	}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status := "ok"
		switch {
		case r.Err != nil:
			status = "failed: " + r.Err.Error()
		case r.Stopped:
			status = "stopped"
		case r.Failed > 0:
			status = "degraded"
		}
		rows = append(rows, []string{
			string(r.FileID),
			strconv.Itoa(r.Units),
			strconv.Itoa(r.Translated),
			strconv.Itoa(r.FromCache),
			strconv.Itoa(r.Failed),
			strconv.Itoa(len(r.Issues)),
			status,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(),
		renderTable([]string{"File", "Units", "Translated", "Cached", "Failed", "Issues", "Status"}, rows, 2, 3, 4, 5, 6))
}
