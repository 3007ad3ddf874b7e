package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/kamusis/pcapcat/internal/extract"
	"github.com/rs/zerolog"
)

// fakeExtractor answers by file basename; out holds the dissector lines per file.
type fakeExtractor struct {
	mu    sync.Mutex
	out   map[string][]string
	fail  map[string]bool
	calls []string
}

func (f *fakeExtractor) Extract(_ context.Context, path string) ([]string, error) {
	name := filepath.Base(path)
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
	if f.fail[name] {
		return nil, &extract.ExtractionError{Path: path, ExitCode: 2, Stderr: "corrupt"}
	}
	return extract.ParseProtocols([]byte(strings.Join(f.out[name], "\n"))), nil
}

func (f *fakeExtractor) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.calls...)
	sort.Strings(out)
	return out
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestBuild_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.pcap": "abcd", "b.txt": "x"})
	fx := &fakeExtractor{out: map[string][]string{"a.pcap": {"eth:ip:tcp"}}}

	b := &Builder{Dir: dir, Extractor: fx, Log: zerolog.Nop()}
	res, err := b.Build(context.Background(), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Indexed != 1 || res.Index.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", res.Indexed)
	}
	rec := res.Index.Records[0]
	if rec.Filename != "a.pcap" || rec.Path != filepath.Join(dir, "a.pcap") || rec.SizeBytes != 4 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if !reflect.DeepEqual(rec.Protocols, []string{"eth", "ip", "tcp"}) {
		t.Fatalf("unexpected protocols: %v", rec.Protocols)
	}
	if got := Search(res.Index, "tcp"); len(got) != 1 {
		t.Fatalf("expected tcp hit, got %v", got)
	}
	if got := Search(res.Index, "udp"); got == nil || len(got) != 0 {
		t.Fatalf("expected empty udp result, got %#v", got)
	}
	if !reflect.DeepEqual(fx.called(), []string{"a.pcap"}) {
		t.Fatalf("extractor called for %v", fx.called())
	}
}

func TestBuild_EligibilityIsCaseSensitiveSuffix(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.pcap":    "",
		"b.cap":     "",
		"c.PCAP":    "",
		"d.pcapng":  "",
		"e.pcap.gz": "",
	})
	if err := os.Mkdir(filepath.Join(dir, "nested.pcap"), 0o755); err != nil {
		t.Fatal(err)
	}
	fx := &fakeExtractor{out: map[string][]string{"a.pcap": {""}, "b.cap": {""}}}

	res, err := (&Builder{Dir: dir, Extractor: fx, Log: zerolog.Nop()}).Build(context.Background(), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !reflect.DeepEqual(fx.called(), []string{"a.pcap", "b.cap"}) {
		t.Fatalf("unexpected eligible files: %v", fx.called())
	}
	if res.Indexed != 2 {
		t.Fatalf("expected 2 records, got %d", res.Indexed)
	}
}

func TestBuild_EmptyCaptureHasEmptyProtocols(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"empty.pcap": ""})
	fx := &fakeExtractor{out: map[string][]string{"empty.pcap": {""}}}

	res, err := (&Builder{Dir: dir, Extractor: fx, Log: zerolog.Nop()}).Build(context.Background(), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Indexed != 1 {
		t.Fatalf("expected record for empty capture")
	}
	if p := res.Index.Records[0].Protocols; p == nil || len(p) != 0 {
		t.Fatalf("expected empty non-nil protocols, got %#v", p)
	}
}

func TestBuild_ExcludeByExactName(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"keep.pcap": "", "skip.pcap": "", "skip.pcap.bak": ""})
	fx := &fakeExtractor{out: map[string][]string{"keep.pcap": {"eth"}, "skip.pcap": {"eth"}}}

	res, err := (&Builder{Dir: dir, Extractor: fx, Log: zerolog.Nop()}).Build(context.Background(), []string{"skip.pcap", "skip"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Indexed != 1 || res.Index.Records[0].Filename != "keep.pcap" {
		t.Fatalf("unexpected records: %+v", res.Index.Records)
	}
	if !reflect.DeepEqual(res.Excluded, []string{"skip.pcap"}) {
		t.Fatalf("unexpected excluded: %v", res.Excluded)
	}
	for _, c := range fx.called() {
		if c == "skip.pcap" {
			t.Fatalf("excluded file was extracted")
		}
	}
}

func TestBuild_ExtractionFailureDropsFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"good.pcap": "", "bad.pcap": ""})
	fx := &fakeExtractor{
		out:  map[string][]string{"good.pcap": {"eth:ip:udp:sip"}},
		fail: map[string]bool{"bad.pcap": true},
	}

	res, err := (&Builder{Dir: dir, Extractor: fx, Log: zerolog.Nop()}).Build(context.Background(), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Indexed != 1 || res.Index.Records[0].Filename != "good.pcap" {
		t.Fatalf("unexpected records: %+v", res.Index.Records)
	}
	if !reflect.DeepEqual(res.Failed, []string{"bad.pcap"}) {
		t.Fatalf("unexpected failed list: %v", res.Failed)
	}
}

func TestBuild_MissingDirectory(t *testing.T) {
	b := &Builder{Dir: filepath.Join(t.TempDir(), "nope"), Extractor: &fakeExtractor{}, Log: zerolog.Nop()}
	res, err := b.Build(context.Background(), nil)
	if !errors.Is(err, ErrDirectoryNotFound) {
		t.Fatalf("expected ErrDirectoryNotFound, got %v", err)
	}
	if res != nil {
		t.Fatalf("expected no result")
	}
}

func TestBuild_FileInsteadOfDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.pcap": ""})
	b := &Builder{Dir: filepath.Join(dir, "a.pcap"), Extractor: &fakeExtractor{}, Log: zerolog.Nop()}
	if _, err := b.Build(context.Background(), nil); !errors.Is(err, ErrDirectoryNotFound) {
		t.Fatalf("expected ErrDirectoryNotFound, got %v", err)
	}
}

func TestBuild_ParallelMatchesSequentialOrder(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{}
	out := map[string][]string{}
	for _, n := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		files[n+".pcap"] = n
		out[n+".pcap"] = []string{"eth:" + n}
	}
	writeFiles(t, dir, files)

	seq, err := (&Builder{Dir: dir, Extractor: &fakeExtractor{out: out}, Log: zerolog.Nop()}).Build(context.Background(), nil)
	if err != nil {
		t.Fatalf("sequential Build: %v", err)
	}
	par, err := (&Builder{Dir: dir, Extractor: &fakeExtractor{out: out}, Workers: 4, Log: zerolog.Nop()}).Build(context.Background(), nil)
	if err != nil {
		t.Fatalf("parallel Build: %v", err)
	}
	if !reflect.DeepEqual(seq.Index, par.Index) {
		t.Fatalf("parallel order differs:\nseq=%+v\npar=%+v", seq.Index.Records, par.Index.Records)
	}
}

func TestBuild_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.pcap": ""})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&Builder{Dir: dir, Extractor: &fakeExtractor{out: map[string][]string{"a.pcap": {""}}}, Log: zerolog.Nop()}).Build(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestIsCaptureFile(t *testing.T) {
	for name, want := range map[string]bool{
		"x.pcap": true, "x.cap": true, "x.PCAP": false, "pcap": false, "x.pcapng": false, ".cap": true,
	} {
		if got := IsCaptureFile(name); got != want {
			t.Fatalf("IsCaptureFile(%q) = %v, want %v", name, got, want)
		}
	}
}
