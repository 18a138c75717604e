package templates

import (
	"strings"
	"testing"
	"testing/fstest"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"templates/page.html":            {Data: []byte(`{{define "page"}}<h1>{{.Title}}</h1>{{template "coord" dict "Lat" .Lat}}{{end}}`)},
		"templates/fragments/coord.html": {Data: []byte(`{{define "coord"}}<span>{{fixed 4 .Lat}}</span>{{end}}`)},
	}
}

func TestRender(t *testing.T) {
	r, err := New(testFS())
	if err != nil {
		t.Fatal(err)
	}

	got, err := r.Render("page", map[string]any{"Title": "<x>", "Lat": 24.363612})
	if err != nil {
		t.Fatal(err)
	}
	if got != "<h1>&lt;x&gt;</h1><span>24.3636</span>" {
		t.Fatalf("got %q", got)
	}

	if _, err := r.Render("missing", nil); err == nil {
		t.Fatal("expected error for unknown template")
	}
}

func TestFuncs(t *testing.T) {
	dmy := funcMap["dmy"].(func(string) string)
	tests := map[string]string{
		"2026-03-01": "01-03-2026",
		"bad":        "bad",
	}
	for in, want := range tests {
		if got := dmy(in); got != want {
			t.Errorf("dmy(%q) = %q, want %q", in, got, want)
		}
	}

	fixed := funcMap["fixed"].(func(int, float64) string)
	if got := fixed(5, 88.6); got != "88.60000" {
		t.Errorf("fixed = %q", got)
	}

	dict := funcMap["dict"].(func(...any) map[string]any)
	if dict("odd") != nil {
		t.Error("odd dict args should yield nil")
	}
}

func TestReload(t *testing.T) {
	fsys := testFS()
	r, err := New(fsys)
	if err != nil {
		t.Fatal(err)
	}
	fsys["templates/fragments/coord.html"] = &fstest.MapFile{Data: []byte(`{{define "coord"}}[{{fixed 1 .Lat}}]{{end}}`)}
	if err := r.Reload(); err != nil {
		t.Fatal(err)
	}
	got := r.MustRender("coord", map[string]any{"Lat": 24.36})
	if !strings.Contains(got, "[24.4]") {
		t.Fatalf("reload not applied: %q", got)
	}
}
