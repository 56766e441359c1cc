package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/slant/internal/detect"
	"github.com/ppiankov/slant/internal/model"
	"github.com/ppiankov/slant/internal/pipeline"
)

// maxLineBytes bounds one input line; JSONL records may carry whole documents
const maxLineBytes = 4 << 20

// Scanner scans one input into a report
type Scanner interface {
	Scan(ctx context.Context, in pipeline.Input) (*model.Report, error)
}

// Item is one entry of a batch. Err is set for records rejected while
// reading; such items are reported without being scanned.
type Item struct {
	Index int
	Input pipeline.Input
	Err   error
}

// ScanJob scans one batch item
type ScanJob struct {
	Item    Item
	Scanner Scanner
	Limiter *Limiter // nil disables rate limiting
}

// Execute executes the scan job
func (j *ScanJob) Execute(ctx context.Context) Result {
	result := &ScanResult{Index: j.Item.Index, Input: j.Item.Input}
	if j.Item.Err != nil {
		result.Error = j.Item.Err
		return result
	}

	if j.Limiter != nil && j.Item.Input.Kind == model.SourceURL {
		if err := j.Limiter.Wait(ctx, j.Item.Input.Location); err != nil {
			result.Error = fmt.Errorf("rate limit: %w", err)
			return result
		}
	}

	result.Report, result.Error = j.Scanner.Scan(ctx, j.Item.Input)
	if result.Error != nil {
		result.Report = nil
	}
	return result
}

// ScanResult represents the result of a scan job
type ScanResult struct {
	Index  int
	Input  pipeline.Input
	Report *model.Report
	Error  error
}

// GetError returns the error from the scan result
func (r *ScanResult) GetError() error {
	return r.Error
}

// Outcome converts the result for batch summaries
func (r *ScanResult) Outcome() pipeline.BatchOutcome {
	return pipeline.BatchOutcome{Label: r.Input.Label(), Report: r.Report, Err: r.Error}
}

// BatchProcessor scans many inputs concurrently
type BatchProcessor struct {
	scanner     Scanner
	concurrency int
	limiter     *Limiter
	onResult    func(*ScanResult)
}

// NewBatchProcessor creates a batch processor. URL inputs are limited to
// requestsPerSecond per host; a non-positive rate disables limiting.
func NewBatchProcessor(scanner Scanner, concurrency int, requestsPerSecond float64, burst int) *BatchProcessor {
	b := &BatchProcessor{
		scanner:     scanner,
		concurrency: concurrency,
	}
	if requestsPerSecond > 0 {
		b.limiter = NewLimiter(requestsPerSecond, burst)
	}
	return b
}

// OnResult registers a callback invoked as each result completes. Calls are
// made from a single goroutine.
func (b *BatchProcessor) OnResult(fn func(*ScanResult)) {
	b.onResult = fn
}

// Process scans items and returns their results in item order
func (b *BatchProcessor) Process(ctx context.Context, items []Item) []*ScanResult {
	if len(items) == 0 {
		return []*ScanResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	go func() {
		for _, item := range items {
			if !pool.Submit(&ScanJob{Item: item, Scanner: b.scanner, Limiter: b.limiter}) {
				break
			}
		}
		pool.Close()
	}()

	done := make(map[int]*ScanResult, len(items))
	for r := range pool.Results() {
		res := r.(*ScanResult)
		done[res.Index] = res
		if b.onResult != nil {
			b.onResult(res)
		}
	}

	results := make([]*ScanResult, 0, len(items))
	for _, item := range items {
		res, ok := done[item.Index]
		if !ok {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			res = &ScanResult{Index: item.Index, Input: item.Input, Error: fmt.Errorf("not scanned: %w", err)}
		}
		results = append(results, res)
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	return results
}

// ProcessReader reads inputs from r and scans them. With jsonl set each
// line is a JSON record, otherwise a plain input line.
func (b *BatchProcessor) ProcessReader(ctx context.Context, r io.Reader, jsonl bool) ([]*ScanResult, error) {
	var (
		items []Item
		err   error
	)
	if jsonl {
		items, err = ReadJSONL(r)
	} else {
		items, err = ReadInputs(r)
	}
	if err != nil {
		return nil, err
	}
	return b.Process(ctx, items), nil
}

// ProcessFile reads inputs from a file and scans them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string, jsonl bool) ([]*ScanResult, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return b.ProcessReader(ctx, file, jsonl)
}

// ReadInputs reads one input per line: URLs, @file references or literal
// text. Blank lines and # comments are skipped and duplicates dropped.
func ReadInputs(r io.Reader) ([]Item, error) {
	var items []Item
	seen := make(map[string]bool)

	scanner := newLineScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if seen[line] {
			continue
		}
		seen[line] = true
		items = append(items, Item{Index: len(items), Input: pipeline.ParseInput(line)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}
	return items, nil
}

// jsonlRecord is one JSONL batch record. Exactly one of text, url and file
// is expected; text keeps its decoded type so non-strings can be rejected.
type jsonlRecord struct {
	ID   string `json:"id"`
	Text any    `json:"text"`
	URL  string `json:"url"`
	File string `json:"file"`
}

// ReadJSONL reads one JSON record per line. Malformed lines and records
// whose text is not a string become failed items rather than aborting the
// batch.
func ReadJSONL(r io.Reader) ([]Item, error) {
	var items []Item

	scanner := newLineScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		item := Item{Index: len(items)}
		var rec jsonlRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			item.Input = pipeline.Input{ID: fmt.Sprintf("line %d", lineNo)}
			item.Err = fmt.Errorf("line %d: invalid JSON: %w", lineNo, err)
			items = append(items, item)
			continue
		}

		id := rec.ID
		if id == "" {
			id = fmt.Sprintf("line %d", lineNo)
		}
		switch {
		case rec.URL != "":
			item.Input = pipeline.URLInput(rec.URL)
		case rec.File != "":
			item.Input = pipeline.FileInput(rec.File)
		default:
			text, err := detect.AsText(rec.Text)
			if err != nil {
				item.Err = fmt.Errorf("%s: %w", id, err)
			}
			item.Input = pipeline.TextInput(text)
		}
		item.Input.ID = id
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}
	return items, nil
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return scanner
}
