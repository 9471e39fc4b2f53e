package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"subtrans/internal/interrupt"
	"subtrans/internal/media"
	"subtrans/internal/transcribe"
	"subtrans/pkg/contract"
)

const defaultTranscribeURL = "http://127.0.0.1:8094"

func newTranscribeCommand(cctx *commandContext) *cobra.Command {
	var (
		modelFlag    string
		langFlag     string
		formatFlag   string
		serverFlag   string
		outDirFlag   string
		audioFmtFlag string
		bitrateFlag  string
		startFlag    float64
		endFlag      float64
		keepFlag     bool
	)

	cmd := &cobra.Command{
		Use:   "transcribe [media files...]",
		Short: "Transcribe audio or video files to subtitles or text",
		Long: `Transcribe audio files, or video files after audio extraction with ffmpeg,
into txt, srt, vtt or json. Transcription runs on the local speech daemon.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := cctx.ensure()
			if err != nil {
				return err
			}
			if !transcribe.ValidFormat(formatFlag) {
				return fmt.Errorf("%w: transcript format %q (supported: %s)",
					contract.ErrFormatUnsupported, formatFlag, strings.Join(transcribe.Formats, ", "))
			}
			client, err := transcribe.New(serverFlag, modelFlag, langFlag,
				time.Duration(cfg.Model.TimeoutSeconds)*time.Second)
			if err != nil {
				return err
			}

			tok, runCtx := interrupt.New(cmd.Context())
			stopNotify := tok.Notify()
			defer stopNotify()

			extractor := media.New(media.Options{
				Format:  audioFmtFlag,
				Bitrate: bitrateFlag,
				OutDir:  outDirFlag,
			})
			needFFmpeg := false
			for _, in := range args {
				if media.IsVideo(filepath.Ext(in)) {
					needFFmpeg = true
				}
			}
			if needFFmpeg {
				if err := media.Check(runCtx); err != nil {
					return err
				}
			}

			for _, in := range args {
				if tok.Stopping() {
					return fmt.Errorf("%w: stopped on request", contract.ErrInterrupted)
				}
				audio := in
				if media.IsVideo(filepath.Ext(in)) {
					t := log.StartWith("media", "extract audio", in)
					audio, err = extractor.ExtractAudio(runCtx, in, contract.TimeRange{Start: startFlag, End: endFlag})
					if err != nil {
						return err
					}
					t.Finish("audio ready", 0)
					if !keepFlag {
						defer os.Remove(audio)
					}
				}

				t := log.StartWith("transcribe", "transcribe audio", audio)
				tr, err := client.Transcribe(runCtx, audio)
				if err != nil {
					return err
				}
				t.Finish("transcript ready", int64(len(tr.Segments)))

				out := transcriptPath(in, outDirFlag, formatFlag)
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create transcript: %w", err)
				}
				if err := transcribe.Write(f, tr, formatFlag); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d segments -> %s\n", filepath.Base(in), len(tr.Segments), out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&modelFlag, "model", "m", "base", "Speech model size (tiny|base|small|medium|large)")
	cmd.Flags().StringVarP(&langFlag, "language", "l", "", "Spoken language hint (empty: auto-detect)")
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "txt", "Output format (txt|srt|vtt|json)")
	cmd.Flags().StringVar(&serverFlag, "server", defaultTranscribeURL, "Speech daemon URL")
	cmd.Flags().StringVarP(&outDirFlag, "output", "o", "", "Output directory (default: alongside inputs)")
	cmd.Flags().StringVar(&audioFmtFlag, "audio-format", "wav", "Extracted audio format (wav|mp3|aac)")
	cmd.Flags().StringVar(&bitrateFlag, "bitrate", "192k", "Audio bitrate for lossy formats")
	cmd.Flags().Float64Var(&startFlag, "start", 0, "Extract from this position (seconds)")
	cmd.Flags().Float64Var(&endFlag, "end", 0, "Extract up to this position (seconds)")
	cmd.Flags().BoolVar(&keepFlag, "keep-audio", false, "Keep extracted audio files")

	return cmd
}

// transcriptPath 推导转写产物路径：<stem>.<format>。
func transcriptPath(inPath, outDir, format string) string {
	ext := filepath.Ext(inPath)
	stem := strings.TrimSuffix(filepath.Base(inPath), ext)
	dir := outDir
	if dir == "" {
		dir = filepath.Dir(inPath)
	}
	return filepath.Join(dir, stem+"."+format)
}
