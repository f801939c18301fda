// Package corpus runs the round-trip check over collections of iReal
// Pro URLs.
//
// Files are scanned for irealb:// and irealbook:// URLs (plain text,
// HTML exports and .zst compressed copies of either). Every URL is
// decoded and re-encoded; the result is exact when the bytes match,
// equivalent when they differ but decode to the same songs, and failed
// otherwise.
package corpus

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/Neumenon/ireal/ireal"
)

// Status is the outcome of one URL.
type Status string

const (
	StatusExact      Status = "exact"
	StatusEquivalent Status = "equivalent"
	StatusFailed     Status = "failed"
)

// Result is the outcome of one URL.
type Result struct {
	File   string `json:"file" yaml:"file"`
	Index  int    `json:"index" yaml:"index"`
	Songs  int    `json:"songs" yaml:"songs"`
	Status Status `json:"status" yaml:"status"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// FileReport summarizes one input file.
type FileReport struct {
	Path   string `json:"path" yaml:"path"`
	Digest string `json:"digest" yaml:"digest"`
	Size   int64  `json:"size" yaml:"size"`
	URLs   int    `json:"urls" yaml:"urls"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report is the outcome of a run.
type Report struct {
	RunID      string        `json:"run_id" yaml:"run_id"`
	Started    time.Time     `json:"started" yaml:"started"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
	Files      []FileReport  `json:"files" yaml:"files"`
	Songs      int           `json:"songs" yaml:"songs"`
	Exact      int           `json:"exact" yaml:"exact"`
	Equivalent int           `json:"equivalent" yaml:"equivalent"`
	Failed     int           `json:"failed" yaml:"failed"`
	Failures   []Result      `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// OK reports whether every URL round-tripped and every file was read.
func (r *Report) OK() bool {
	if r.Failed > 0 {
		return false
	}
	for _, f := range r.Files {
		if f.Error != "" {
			return false
		}
	}
	return true
}

// Bytes returns the total size of the input files.
func (r *Report) Bytes() uint64 {
	var n uint64
	for _, f := range r.Files {
		n += uint64(f.Size)
	}
	return n
}

// Harness runs the round-trip check with a bounded worker pool.
type Harness struct {
	// Workers bounds the number of files processed at once.
	Workers int
	// Extensions selects files when walking directories.
	Extensions []string
	// Logger receives per-file and per-failure records.
	Logger *slog.Logger
}

// Run checks every URL found under paths. Directories are walked;
// files named explicitly are always read. Failures are recorded in the
// report; the error is reserved for an unusable path list or a
// cancelled context.
func (h *Harness) Run(ctx context.Context, paths []string) (*Report, error) {
	logger := h.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("run id: %w", err)
	}
	report := &Report{RunID: id.String(), Started: time.Now()}
	logger = logger.With("run_id", report.RunID)

	files, err := Collect(paths, h.Extensions)
	if err != nil {
		return nil, err
	}
	logger.Info("corpus scan starting", "files", len(files), "workers", h.workers())

	type outcome struct {
		file    FileReport
		results []Result
	}
	outcomes := make([]outcome, len(files))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for range h.workers() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fr, results := checkFile(files[i])
				outcomes[i] = outcome{fr, results}
				if fr.Error != "" {
					logger.Warn("file unreadable", "path", fr.Path, "error", fr.Error)
					continue
				}
				logger.Debug("file checked", "path", fr.Path, "urls", fr.URLs, "digest", fr.Digest)
			}
		}()
	}

	var cancelled error
feed:
	for i := range files {
		if cancelled = ctx.Err(); cancelled != nil {
			break
		}
		select {
		case jobs <- i:
		case <-ctx.Done():
			cancelled = ctx.Err()
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	if cancelled != nil {
		return nil, cancelled
	}

	for _, o := range outcomes {
		report.Files = append(report.Files, o.file)
		for _, r := range o.results {
			report.Songs += r.Songs
			switch r.Status {
			case StatusExact:
				report.Exact++
			case StatusEquivalent:
				report.Equivalent++
			default:
				report.Failed++
				report.Failures = append(report.Failures, r)
				logger.Warn("round trip failed", "path", r.File, "index", r.Index, "error", r.Error)
			}
		}
	}
	report.Duration = time.Since(report.Started)
	logger.Info("corpus scan finished",
		"exact", report.Exact, "equivalent", report.Equivalent, "failed", report.Failed,
		"duration", report.Duration)
	return report, nil
}

func (h *Harness) workers() int {
	if h.Workers < 1 {
		return 1
	}
	return h.Workers
}

// Collect expands paths into the list of files to read, sorted within
// each directory. A trailing .zst is ignored when matching extensions.
func Collect(paths []string, exts []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, errors.New("corpus: no input paths")
	}
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("corpus: %w", err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && matches(path, exts) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("corpus: walking %s: %w", p, err)
		}
	}
	return files, nil
}

func matches(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(strings.TrimSuffix(path, ".zst")))
	return slices.Contains(exts, ext)
}

// ReadFile returns the contents of path, decompressing .zst files.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil || !strings.HasSuffix(path, ".zst") {
		return data, err
	}
	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return io.ReadAll(dec)
}

var urlPattern = regexp.MustCompile(`irealb(?:ook)?://[^\s"'<>]+`)

// Extract returns every iReal Pro URL in text, in order.
func Extract(text []byte) []string {
	var urls []string
	for _, m := range urlPattern.FindAll(text, -1) {
		urls = append(urls, string(m))
	}
	return urls
}

func checkFile(path string) (FileReport, []Result) {
	fr := FileReport{Path: path}
	data, err := ReadFile(path)
	if err != nil {
		fr.Error = err.Error()
		return fr, nil
	}
	sum := blake3.Sum256(data)
	fr.Digest = hex.EncodeToString(sum[:])
	fr.Size = int64(len(data))

	urls := Extract(data)
	fr.URLs = len(urls)
	results := make([]Result, len(urls))
	for i, u := range urls {
		results[i] = CheckURL(u)
		results[i].File, results[i].Index = path, i
	}
	return fr, results
}

// CheckURL decodes and re-encodes one URL.
func CheckURL(url string) Result {
	pl, err := ireal.DecodePlaylist(url)
	if err != nil {
		return Result{Status: StatusFailed, Error: fmt.Sprintf("decode: %v", err)}
	}
	r := Result{Songs: len(pl.Items)}
	out, err := ireal.EncodePlaylist(pl)
	if err != nil {
		r.Status, r.Error = StatusFailed, fmt.Sprintf("encode: %v", err)
		return r
	}
	if out == url {
		r.Status = StatusExact
		return r
	}
	again, err := ireal.DecodePlaylist(out)
	if err != nil {
		r.Status, r.Error = StatusFailed, fmt.Sprintf("re-decode: %v", err)
		return r
	}
	if again.Name != pl.Name || len(again.Items) != len(pl.Items) {
		r.Status, r.Error = StatusFailed, "re-encoded playlist differs"
		return r
	}
	for i := range pl.Items {
		if !pl.Items[i].Song.Equal(again.Items[i].Song) {
			r.Status, r.Error = StatusFailed, fmt.Sprintf("song %d differs after re-encode", i)
			return r
		}
	}
	r.Status = StatusEquivalent
	return r
}
