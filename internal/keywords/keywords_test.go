package keywords

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// fsStore reads bare paths and file:// URIs; Put is unused in these tests.
type fsStore struct{}

func (fsStore) Get(_ context.Context, uri string) (io.ReadCloser, int64, error) {
	p := strings.TrimPrefix(uri, "file://")
	f, err := os.Open(p)
	if err != nil {
		return nil, 0, err
	}
	return f, 0, nil
}

func (fsStore) Put(_ context.Context, uri string, _ io.Reader) (string, error) {
	return "", errors.New("not implemented")
}

func writeList(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadPreservesOrderAndSkipsBlanks(t *testing.T) {
	p := writeList(t, "keywords.txt", "n8n slack\n\n  n8n sheets  \nn8n slack\nn8n webhook\n")
	got := NewProvider(fsStore{}, p, nil).Load(context.Background())
	want := []string{"n8n slack", "n8n sheets", "n8n webhook"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Load()=%v; want %v", got, want)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "does-not-exist.txt")
	got := NewProvider(fsStore{}, p, nil).Load(context.Background())
	if !reflect.DeepEqual(got, Defaults) {
		t.Fatalf("Load() on missing file=%v; want defaults", got)
	}
}

func TestLoadEmptyURIUsesDefaults(t *testing.T) {
	got := NewProvider(fsStore{}, "", nil).Load(context.Background())
	if !reflect.DeepEqual(got, Defaults) {
		t.Fatalf("Load() with empty uri=%v; want defaults", got)
	}
}

func TestParseCSVSkipsHeader(t *testing.T) {
	got, err := Parse("terms.csv", strings.NewReader("keyword,weight\nn8n slack,3\nn8n sheets,2\n"))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"n8n slack", "n8n sheets"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Parse csv=%v; want %v", got, want)
	}
}

func TestLoadDeterministic(t *testing.T) {
	p := writeList(t, "keywords.txt", "a\nb\nc\n")
	prov := NewProvider(fsStore{}, p, nil)
	first := prov.Load(context.Background())
	second := prov.Load(context.Background())
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Load not deterministic: %v vs %v", first, second)
	}
}
