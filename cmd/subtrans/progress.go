package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// barProgress 满足 pipeline.Progress：交互终端显示进度条，否则静默。
type barProgress struct {
	out     *os.File
	enabled bool
	bar     *progressbar.ProgressBar
}

func newProgress(out *os.File) *barProgress {
	fd := out.Fd()
	return &barProgress{
		out:     out,
		enabled: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
	}
}

func (p *barProgress) FileStart(name string, units int) {
	if !p.enabled || units == 0 {
		return
	}
	p.bar = progressbar.NewOptions(units,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription("Translating "+name),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionClearOnFinish(),
	)
}

func (p *barProgress) Advance(n int) {
	if p.bar != nil {
		_ = p.bar.Add(n)
	}
}

func (p *barProgress) FileFinish(ok bool) {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
		fmt.Fprintln(p.out)
	}
}
