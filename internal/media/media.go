// Package media 封装 ffmpeg 音频抽取：从视频容器取出音轨落盘，
// 供转写服务消费。仅做进程编排，不解析媒体流。
package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"subtrans/pkg/contract"
)

// 受支持的视频容器扩展名。
var videoExts = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true,
	".mov": true, ".flv": true, ".wmv": true,
}

// IsVideo 报告扩展名是否为受支持的视频容器。
func IsVideo(ext string) bool { return videoExts[strings.ToLower(ext)] }

// Options 为抽取参数。
type Options struct {
	// Format: wav（缺省，无损）/ mp3 / aac。
	Format string
	// Bitrate 仅对有损格式生效，如 "192k"。
	Bitrate string
	// OutDir 为空时输出到源文件所在目录。
	OutDir string
}

// FFmpeg 满足 contract.AudioExtractor。
type FFmpeg struct {
	opts Options
	// run 可注入，测试替换进程执行。
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// New 构造抽取器；零值 Options 可用。
func New(opts Options) *FFmpeg {
	if opts.Format == "" {
		opts.Format = "wav"
	}
	if opts.Bitrate == "" {
		opts.Bitrate = "192k"
	}
	return &FFmpeg{opts: opts, run: runCommand}
}

// Check 校验 ffmpeg 是否可用。
func Check(ctx context.Context) error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}
	if _, err := runCommand(ctx, "ffmpeg", "-version"); err != nil {
		return fmt.Errorf("ffmpeg not runnable: %w", err)
	}
	return nil
}

// codecFor 返回格式对应的编码器。
func codecFor(format string) (string, error) {
	switch format {
	case "wav":
		return "pcm_s16le", nil
	case "mp3":
		return "libmp3lame", nil
	case "aac":
		return "aac", nil
	default:
		return "", fmt.Errorf("%w: audio format %q", contract.ErrFormatUnsupported, format)
	}
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// sanitizeName 将文件名中的特殊字符归一为下划线。
func sanitizeName(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// ExtractAudio 抽取音轨；rng 非零时仅截取该区间。
// 返回产物路径。
func (f *FFmpeg) ExtractAudio(ctx context.Context, path string, rng contract.TimeRange) (string, error) {
	ext := filepath.Ext(path)
	if !IsVideo(ext) {
		return "", fmt.Errorf("%w: video container %q", contract.ErrFormatUnsupported, ext)
	}
	codec, err := codecFor(f.opts.Format)
	if err != nil {
		return "", err
	}
	outDir := f.opts.OutDir
	if outDir == "" {
		outDir = filepath.Dir(path)
	} else if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("ensure output dir: %w", err)
	}
	stem := sanitizeName(strings.TrimSuffix(filepath.Base(path), ext))
	outPath := filepath.Join(outDir, stem+"."+f.opts.Format)

	args := []string{"-y", "-i", path}
	if rng.Start > 0 {
		args = append(args, "-ss", formatSeconds(rng.Start))
	}
	if rng.End > 0 {
		args = append(args, "-to", formatSeconds(rng.End))
	}
	args = append(args, "-vn", "-acodec", codec)
	if f.opts.Format != "wav" {
		args = append(args, "-b:a", f.opts.Bitrate)
	}
	args = append(args, outPath)

	if out, err := f.run(ctx, "ffmpeg", args...); err != nil {
		return "", fmt.Errorf("ffmpeg extract %s: %w: %s", filepath.Base(path), err, tail(out))
	}
	return outPath, nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

// tail 截取进程输出尾部（错误信息通常在最后）。
func tail(out []byte) string {
	const n = 512
	out = bytes.TrimSpace(out)
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return string(out)
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.Bytes(), err
}

var _ contract.AudioExtractor = (*FFmpeg)(nil)
