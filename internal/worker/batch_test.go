package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/slant/internal/detect"
	"github.com/ppiankov/slant/internal/model"
	"github.com/ppiankov/slant/internal/pipeline"
)

// MockScanner implements Scanner
type MockScanner struct {
	ShouldError bool

	mu      sync.Mutex
	scanned []pipeline.Input
}

func (m *MockScanner) Scan(ctx context.Context, in pipeline.Input) (*model.Report, error) {
	time.Sleep(5 * time.Millisecond)
	m.mu.Lock()
	m.scanned = append(m.scanned, in)
	m.mu.Unlock()
	if m.ShouldError {
		return nil, errors.New("scan error")
	}
	return &model.Report{Subject: in.Label(), Source: model.Source{Kind: in.Kind, Location: in.Location}}, nil
}

func (m *MockScanner) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.scanned)
}

func items(inputs ...pipeline.Input) []Item {
	out := make([]Item, len(inputs))
	for i, in := range inputs {
		out[i] = Item{Index: i, Input: in}
	}
	return out
}

func TestBatchProcessor_Process(t *testing.T) {
	scanner := &MockScanner{}
	processor := NewBatchProcessor(scanner, 2, 0, 0)

	batch := items(
		pipeline.URLInput("http://example.com"),
		pipeline.TextInput("Women are emotional."),
		pipeline.FileInput("memo.txt"),
		pipeline.URLInput("http://example.org"),
	)

	var callbacks int
	processor.OnResult(func(*ScanResult) { callbacks++ })

	results := processor.Process(context.Background(), batch)
	if len(results) != len(batch) {
		t.Fatalf("expected %d results, got %d", len(batch), len(results))
	}
	for i, res := range results {
		if res.Index != i {
			t.Errorf("result %d out of order: index %d", i, res.Index)
		}
		if res.Error != nil || res.Report == nil {
			t.Errorf("unexpected failure for %s: %v", res.Input.Label(), res.Error)
		}
	}
	if callbacks != len(batch) {
		t.Errorf("expected %d callbacks, got %d", len(batch), callbacks)
	}
}

func TestBatchProcessor_Process_Error(t *testing.T) {
	processor := NewBatchProcessor(&MockScanner{ShouldError: true}, 2, 0, 0)

	results := processor.Process(context.Background(), items(pipeline.TextInput("x")))
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Error == nil {
		t.Error("expected error, got nil")
	}
	if results[0].Report != nil {
		t.Error("expected nil report on error")
	}
}

func TestBatchProcessor_Process_Empty(t *testing.T) {
	results := NewBatchProcessor(&MockScanner{}, 2, 0, 0).Process(context.Background(), nil)
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty results, got %v", results)
	}
}

func TestBatchProcessor_RejectedItemsNotScanned(t *testing.T) {
	scanner := &MockScanner{}
	processor := NewBatchProcessor(scanner, 2, 0, 0)

	rejected := errors.New("bad record")
	batch := []Item{
		{Index: 0, Input: pipeline.TextInput("fine")},
		{Index: 1, Input: pipeline.Input{ID: "line 2"}, Err: rejected},
	}
	results := processor.Process(context.Background(), batch)
	if !errors.Is(results[1].Error, rejected) {
		t.Errorf("expected rejected record error, got %v", results[1].Error)
	}
	if scanner.count() != 1 {
		t.Errorf("expected only valid items scanned, got %d", scanner.count())
	}
}

func TestBatchProcessor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewBatchProcessor(&MockScanner{}, 1, 0, 0).Process(ctx, items(
		pipeline.TextInput("a"), pipeline.TextInput("b"), pipeline.TextInput("c"),
	))
	if len(results) != 3 {
		t.Fatalf("expected a result per item, got %d", len(results))
	}
	for _, res := range results {
		if res.Error == nil && res.Report == nil {
			t.Errorf("result %d has neither report nor error", res.Index)
		}
	}
}

func TestBatchProcessor_RateLimitsURLs(t *testing.T) {
	processor := NewBatchProcessor(&MockScanner{}, 4, 1000, 1)
	if processor.limiter == nil {
		t.Fatal("expected limiter for a positive rate")
	}
	results := processor.Process(context.Background(), items(
		pipeline.URLInput("http://a.example/1"),
		pipeline.URLInput("http://a.example/2"),
		pipeline.TextInput("text skips the limiter"),
	))
	for _, res := range results {
		if res.Error != nil {
			t.Errorf("unexpected error: %v", res.Error)
		}
	}

	if NewBatchProcessor(&MockScanner{}, 1, 0, 0).limiter != nil {
		t.Error("expected no limiter for a zero rate")
	}
}

func TestReadInputs(t *testing.T) {
	content := `http://example.com
# comment
@notes.txt

The nurse helped the doctor.
http://example.com
   http://bing.com   `

	got, err := ReadInputs(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ReadInputs failed: %v", err)
	}

	want := []struct {
		kind     model.SourceKind
		location string
		text     string
	}{
		{model.SourceURL, "http://example.com", ""},
		{model.SourceFile, "notes.txt", ""},
		{model.SourceText, "", "The nurse helped the doctor."},
		{model.SourceURL, "http://bing.com", ""},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d inputs, got %d: %+v", len(want), len(got), got)
	}
	for i, w := range want {
		in := got[i].Input
		if got[i].Index != i || in.Kind != w.kind || in.Location != w.location || in.Text != w.text {
			t.Errorf("input %d: got %+v, want %+v", i, got[i], w)
		}
	}
}

func TestReadJSONL(t *testing.T) {
	content := `{"id": "a", "text": "Women are emotional."}
{"text": 42}

{"id": "c", "url": "https://example.com/story"}
not json
{"id": "e", "file": "memo.txt"}
{"id": "f"}`

	got, err := ReadJSONL(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ReadJSONL failed: %v", err)
	}
	if len(got) != 6 {
		t.Fatalf("expected 6 records, got %d", len(got))
	}

	if got[0].Err != nil || got[0].Input.ID != "a" || got[0].Input.Text != "Women are emotional." {
		t.Errorf("unexpected first record %+v", got[0])
	}

	var invalid *detect.InvalidInputError
	if !errors.As(got[1].Err, &invalid) || invalid.Got != "number" {
		t.Errorf("expected invalid input error for numeric text, got %v", got[1].Err)
	}
	if got[1].Input.ID != "line 2" {
		t.Errorf("expected line-numbered ID, got %q", got[1].Input.ID)
	}

	if got[2].Input.Kind != model.SourceURL || got[2].Input.ID != "c" {
		t.Errorf("unexpected URL record %+v", got[2])
	}
	if got[3].Err == nil || !strings.Contains(got[3].Err.Error(), "line 5") {
		t.Errorf("expected malformed line error, got %v", got[3].Err)
	}
	if got[4].Input.Kind != model.SourceFile || got[4].Input.Location != "memo.txt" {
		t.Errorf("unexpected file record %+v", got[4])
	}
	if !errors.Is(got[5].Err, detect.ErrInvalidInput) {
		t.Errorf("expected missing text rejected, got %v", got[5].Err)
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inputs.txt")
	if err := os.WriteFile(path, []byte("http://example.com\nhttps://google.com\n# comment\n\nhttp://bing.com\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	processor := NewBatchProcessor(&MockScanner{}, 2, 0, 0)
	results, err := processor.ProcessFile(context.Background(), path, false)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}

	if _, err := processor.ProcessFile(context.Background(), filepath.Join(dir, "missing.txt"), false); err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestBatchProcessor_ProcessReaderJSONL(t *testing.T) {
	processor := NewBatchProcessor(&MockScanner{}, 2, 0, 0)
	results, err := processor.ProcessReader(context.Background(),
		strings.NewReader(`{"id":"ok","text":"hello"}`+"\n"+`{"id":"bad","text":["x"]}`), true)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].Error != nil || results[1].Error == nil {
		t.Fatalf("unexpected results %+v", results)
	}
	outcome := results[1].Outcome()
	if outcome.Label != "bad" || outcome.Err == nil || outcome.Report != nil {
		t.Errorf("unexpected outcome %+v", outcome)
	}
}

func TestScanResult_GetError(t *testing.T) {
	if err := (&ScanResult{}).GetError(); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}

	expected := errors.New("scan failed")
	if err := (&ScanResult{Error: expected}).GetError(); err != expected {
		t.Errorf("expected %v, got %v", expected, err)
	}
}
