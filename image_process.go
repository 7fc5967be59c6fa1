package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"img2webp/logger"
)

type Status int

const (
	StatusOK Status = iota
	StatusSkipped
	StatusError
)

// Result is the outcome of converting one source file.
type Result struct {
	Source         string
	Output         string
	Status         Status
	Err            error
	OriginalSize   int64
	CompressedSize int64
}

// Line renders r as the per-file status line written to stdout.
func (r Result) Line() string {
	switch r.Status {
	case StatusOK:
		return fmt.Sprintf("OK  %s -> %s", r.Source, r.Output)
	case StatusSkipped:
		return fmt.Sprintf("SKIP %s exists", r.Output)
	default:
		return fmt.Sprintf("ERR %s -> error:%v", r.Source, r.Err)
	}
}

type ProcessStats struct {
	TotalOriginalSize   int64
	TotalCompressedSize int64
	TotalFiles          int
	SuccessfulFiles     int
	SkippedFiles        int
	FailedFiles         int
}

func (s *ProcessStats) Add(r Result) {
	s.TotalFiles++
	switch r.Status {
	case StatusOK:
		s.SuccessfulFiles++
		s.TotalOriginalSize += r.OriginalSize
		s.TotalCompressedSize += r.CompressedSize
	case StatusSkipped:
		s.SkippedFiles++
	default:
		s.FailedFiles++
	}
}

func (s *ProcessStats) Summary() string {
	return fmt.Sprintf("Done. total=%d ok=%d skipped=%d errors=%d",
		s.TotalFiles, s.SuccessfulFiles, s.SkippedFiles, s.FailedFiles)
}

type Processor struct {
	Codec     Codec
	Console   *logger.Console
	Stdout    io.Writer
	Options   EncodeOptions
	Mode      ResizeMode
	OutputDir string
	Suffix    string
	Pattern   string
	Width     int
	Height    int
	Recursive bool
	Overwrite bool
}

func NewProcessor(cfg *Config, codec Codec, console *logger.Console, stdout io.Writer) *Processor {
	mode := ResizeContain
	if cfg.Exact {
		mode = ResizeExact
	}

	return &Processor{
		Codec:     codec,
		Console:   console,
		Stdout:    stdout,
		Options:   cfg.GetEncodingOptions(),
		Mode:      mode,
		OutputDir: cfg.OutputDir,
		Suffix:    cfg.Suffix,
		Pattern:   cfg.Glob,
		Width:     cfg.Width,
		Height:    cfg.Height,
		Recursive: cfg.Recursive,
		Overwrite: cfg.Overwrite,
	}
}

// ProcessDirectory converts every matching image under dirPath, one at a
// time, writing a status line per file and a summary to Stdout. It returns
// errNoImages when nothing matched.
func (p *Processor) ProcessDirectory(dirPath string) (*ProcessStats, error) {
	p.Console.Debug("Processing directory: %s (glob: %s, recursive: %t, mode: %s, %dx%d)",
		dirPath, p.Pattern, p.Recursive, p.Mode, p.Width, p.Height)

	filesToProcess, err := p.collectFiles(dirPath)
	if err != nil {
		return nil, fmt.Errorf("file collection error: %w", err)
	}
	if len(filesToProcess) == 0 {
		return nil, errNoImages
	}

	if p.Console.Verbose() {
		p.Console.Info("Starting batch processing of %d files", len(filesToProcess))
	}

	stats := &ProcessStats{}
	for _, file := range filesToProcess {
		res := p.ConvertFile(file)
		stats.Add(res)
		fmt.Fprintln(p.Stdout, res.Line())
	}
	fmt.Fprintf(p.Stdout, "\n%s\n", stats.Summary())

	if p.Console.Verbose() {
		p.displayResults(stats)
		p.Console.Success("Converted %d of %d files", stats.SuccessfulFiles, stats.TotalFiles)
	}

	return stats, nil
}

func (p *Processor) outputPath(src string) string {
	base := filepath.Base(src)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(p.OutputDir, stem+p.Suffix+".webp")
}

// ConvertFile converts a single source. Failures are reported in the Result,
// never returned.
func (p *Processor) ConvertFile(src string) Result {
	res := Result{Source: src, Output: p.outputPath(src)}

	if !p.Overwrite {
		if _, err := os.Stat(res.Output); err == nil {
			res.Status = StatusSkipped
			return res
		}
	}

	timer := p.Console.StartTimer("Converting " + filepath.Base(src))
	origSize, compSize, err := p.convert(src, res.Output)
	timer.End()

	if err != nil {
		res.Status = StatusError
		res.Err = err
		p.Console.Debug("Failed %s: %v", src, err)
		return res
	}

	res.Status = StatusOK
	res.OriginalSize = origSize
	res.CompressedSize = compSize
	return res
}

func (p *Processor) convert(src, dst string) (origSize int64, compSize int64, err error) {
	f, err := os.Open(src)
	if err != nil {
		return 0, 0, fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()

	fileInfo, err := f.Stat()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get file info: %w", err)
	}
	origSize = fileInfo.Size()

	img, err := p.Codec.Decode(f)
	if err != nil {
		return origSize, 0, fmt.Errorf("error decoding image: %w", err)
	}

	img = p.Codec.Resize(img, p.Width, p.Height, p.Mode)

	if err := os.MkdirAll(p.OutputDir, 0o755); err != nil {
		return origSize, 0, fmt.Errorf("error creating output directory: %w", err)
	}

	tempFile, err := os.CreateTemp(p.OutputDir, ".img2webp-*.tmp")
	if err != nil {
		return origSize, 0, fmt.Errorf("error creating temporary file: %w", err)
	}
	tempPath := tempFile.Name()

	committed := false
	defer func() {
		if !committed {
			tempFile.Close()
			os.Remove(tempPath)
		}
	}()

	if err := p.Codec.Encode(tempFile, img, p.Options); err != nil {
		return origSize, 0, fmt.Errorf("error encoding to WebP: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return origSize, 0, fmt.Errorf("error writing temporary file: %w", err)
	}

	compressedInfo, err := os.Stat(tempPath)
	if err != nil {
		return origSize, 0, fmt.Errorf("failed to get compressed file info: %w", err)
	}
	compSize = compressedInfo.Size()

	if err := os.Chmod(tempPath, 0o644); err != nil {
		return origSize, compSize, fmt.Errorf("error setting file mode: %w", err)
	}

	if err := os.Rename(tempPath, dst); err != nil {
		return origSize, compSize, fmt.Errorf("error renaming file: %w", err)
	}
	committed = true

	return origSize, compSize, nil
}

func (p *Processor) displayResults(stats *ProcessStats) {
	var ratio float64
	if stats.TotalOriginalSize > 0 {
		ratio = float64(stats.TotalCompressedSize) / float64(stats.TotalOriginalSize) * 100
	}

	table := p.Console.NewTable([]string{"Metric", "Value"})
	table.AddRow("Converted files", fmt.Sprintf("%d/%d", stats.SuccessfulFiles, stats.TotalFiles))
	table.AddRow("Skipped files", fmt.Sprintf("%d", stats.SkippedFiles))
	table.AddRow("Failed files", fmt.Sprintf("%d", stats.FailedFiles))
	table.AddRow("Original size", formatMB(stats.TotalOriginalSize))
	table.AddRow("WebP size", formatMB(stats.TotalCompressedSize))
	table.AddRow("Compression ratio", fmt.Sprintf("%.1f%%", ratio))

	if ratio > 0 && stats.TotalOriginalSize > stats.TotalCompressedSize {
		table.AddRow("Space saved", formatMB(stats.TotalOriginalSize-stats.TotalCompressedSize))
	}

	p.Console.Debug("Processing summary:")
	table.Print()
}

func formatMB(n int64) string {
	return fmt.Sprintf("%.2f MB", float64(n)/1024/1024)
}
