package similarity

import "testing"

func TestNormalize(t *testing.T) {
	c := New(0.6, 3)
	tests := []struct {
		in, want string
	}{
		{"Cortes de AGUA en Bogotá", "cortes de agua en bogota"},
		{"  ¡Alerta!   Lluvias, en el norte...  ", "alerta lluvias en el norte"},
		{"Año 2024: niños", "ano 2024 ninos"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := c.normalize(tt.in); got != tt.want {
			t.Errorf("normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGrams(t *testing.T) {
	c := New(0.6, 3)
	if got := len(c.Grams("abcd")); got != 2 {
		t.Errorf("Grams(abcd) has %d grams, want 2", got)
	}
	if got := c.Grams("ab"); len(got) != 1 {
		t.Errorf("short text grams = %v, want one", got)
	}
	if got := c.Grams("¡!"); len(got) != 0 {
		t.Errorf("punctuation-only grams = %v, want none", got)
	}
}

func TestJaccard(t *testing.T) {
	set := func(keys ...string) map[string]struct{} {
		m := make(map[string]struct{})
		for _, k := range keys {
			m[k] = struct{}{}
		}
		return m
	}
	tests := []struct {
		name string
		a, b map[string]struct{}
		want float64
	}{
		{"both empty", set(), set(), 1},
		{"disjoint", set("a"), set("b"), 0},
		{"identical", set("a", "b"), set("a", "b"), 1},
		{"half", set("a", "b"), set("b", "c"), 1.0 / 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Jaccard(tt.a, tt.b); got != tt.want {
				t.Errorf("Jaccard() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSimilar(t *testing.T) {
	c := New(0.6, 3)
	if !c.Similar("Corte de agua en el norte de Bogotá", "Corte de agua en el norte de Bogota") {
		t.Error("accent-only difference should be similar")
	}
	if c.Similar("Corte de agua en el norte", "Elecciones regionales en Antioquia") {
		t.Error("unrelated headlines reported similar")
	}
}

func TestSet(t *testing.T) {
	c := New(0.6, 3)
	s := c.NewSet()
	s.Seed("https://a.example/1", "Corte de agua en el norte de la ciudad")

	if !s.Add("https://a.example/1", "Corte de agua en el norte de la ciudad") {
		t.Error("same key should be accepted again")
	}
	if s.Add("https://b.example/9", "Corte de agua en el norte de la ciudad!") {
		t.Error("near-duplicate from another source was accepted")
	}
	if !s.Add("https://c.example/2", "Paro nacional de transportadores") {
		t.Error("distinct headline was rejected")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestNewDefaults(t *testing.T) {
	c := New(0, 0)
	if c.threshold != 0.6 || c.ngramSize != 3 {
		t.Errorf("defaults = %v/%d", c.threshold, c.ngramSize)
	}
}
