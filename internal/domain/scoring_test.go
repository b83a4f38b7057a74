package domain

import (
	"reflect"
	"testing"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{input: "React Router", want: []string{"react", "router"}},
		{input: "  next.js   auth ", want: []string{"nextjs", "auth"}},
		{input: "--- ", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseQuery(tt.input).Fragments
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseQuery(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		title   string
		wantMin float64
		wantMax float64
	}{
		{name: "exact title", query: "react router", title: "React Router", wantMin: 300, wantMax: 300},
		{name: "exact first word", query: "react", title: "React Query", wantMin: 110, wantMax: 110},
		{name: "prefix", query: "rea", title: "React", wantMin: 85, wantMax: 85},
		{name: "substring", query: "act", title: "React", wantMin: 50, wantMax: 60},
		{name: "fuzzy", query: "raect", title: "React", wantMin: 25, wantMax: 25},
		{name: "one fragment misses", query: "react kafka", title: "React Router", wantMin: 0, wantMax: 0},
		{name: "no title", query: "react", title: "", wantMin: 0, wantMax: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(ParseQuery(tt.query), &ResourceMetadata{Title: tt.title})
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("Score(%q, %q) = %v, want in [%v, %v]", tt.query, tt.title, got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestRankCandidates(t *testing.T) {
	resources := []*ResourceMetadata{
		{ID: "other", Title: "Vue"},
		{ID: "prefix", Title: "Reactive Streams"},
		{ID: "exact", Title: "React"},
		{ID: "popular", Title: "Reactive Forms", ViewCount: 999},
	}

	got := RankCandidates(ParseQuery("react"), resources)

	ids := make([]string, 0, len(got))
	for _, c := range got {
		ids = append(ids, c.Resource.ID)
	}
	want := []string{"exact", "popular", "prefix"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ranking = %v, want %v", ids, want)
	}
	if got[1].ViewScore <= 0 {
		t.Errorf("popular ViewScore = %v, want > 0", got[1].ViewScore)
	}
}
