package humastar

import (
	"net/url"
	"strings"
	"testing"
)

func TestParseSignals(t *testing.T) {
	s, err := ParseSignals([]byte(`{"name":"Mosque","lat":24.37,"ok":true,"form":{"area":"Kazla"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if s.String("name") != "Mosque" || s.Float("lat") != 24.37 || s.String("ok") != "" {
		t.Fatalf("signals = %v", s)
	}
	if s.Object("form").String("area") != "Kazla" {
		t.Fatalf("nested = %v", s.Object("form"))
	}
	if s.String("missing") != "" || s.Float("missing") != 0 || len(s.Object("missing")) != 0 {
		t.Fatal("missing key should be zero")
	}

	empty, err := ParseSignals(nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty body = %v, %v", empty, err)
	}

	in := &SignalsInput{RawBody: []byte("{")}
	if _, err := in.MustParse(); err == nil {
		t.Fatal("expected error for malformed body")
	}
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name          string
		offset, limit int
		want          []int
	}{
		{"first page", 0, 2, []int{1, 2}},
		{"last partial", 4, 2, []int{5}},
		{"past end", 9, 2, []int{}},
		{"no limit", 0, 0, []int{1, 2, 3, 4, 5}},
		{"negative offset", -3, 1, []int{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Page(items, tt.offset, tt.limit)
			if p.Total != 5 || len(p.Data) != len(tt.want) {
				t.Fatalf("page = %+v", p)
			}
			for i := range tt.want {
				if p.Data[i] != tt.want[i] {
					t.Fatalf("data = %v, want %v", p.Data, tt.want)
				}
			}
		})
	}
}

func TestPaginationLinks(t *testing.T) {
	u, _ := url.Parse("/api/v1/locations?date=2026-03-01&offset=2&limit=2")
	p := PageBody[int]{Total: 5, Offset: 2, Limit: 2}
	links := strings.Join(p.PaginationLinks(u), "\n")

	for _, want := range []string{
		`</api/v1/locations?date=2026-03-01&limit=2&offset=0>; rel="first"`,
		`</api/v1/locations?date=2026-03-01&limit=2&offset=0>; rel="prev"`,
		`</api/v1/locations?date=2026-03-01&limit=2&offset=4>; rel="next"`,
		`</api/v1/locations?date=2026-03-01&limit=2&offset=4>; rel="last"`,
	} {
		if !strings.Contains(links, want) {
			t.Errorf("missing %s in\n%s", want, links)
		}
	}

	if got := (PageBody[int]{}).PaginationLinks(u); got != nil {
		t.Fatalf("zero limit links = %v", got)
	}
}

func TestActionLinkHeader(t *testing.T) {
	acts := ActionsFor("abc", []ActionDef{
		{Rel: "edit", Pattern: "/api/v1/locations/%s", Method: "PUT", Title: "Update location"},
	})
	want := `</api/v1/locations/abc>; rel="edit"; method="PUT"; title="Update location"`
	if got := acts[0].LinkHeader(); got != want {
		t.Fatalf("got %s", got)
	}
}
