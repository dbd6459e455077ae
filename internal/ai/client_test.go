package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ondaradio/onda/internal/evidence"
	"github.com/ondaradio/onda/internal/models"
	"github.com/ondaradio/onda/internal/transmedia"
	"github.com/ondaradio/onda/internal/vault"
)

type fakeGatherer struct {
	grounding evidence.Grounding
	err       error
	gotCtx    string
}

func (f *fakeGatherer) Gather(_ context.Context, title, topicContext string) (evidence.Grounding, error) {
	f.gotCtx = topicContext
	return f.grounding, f.err
}

type fakeLocal struct {
	text     string
	prompts  []string
	models   []string
	timeouts []time.Duration
}

func (f *fakeLocal) Generate(_ context.Context, model, prompt string, timeout time.Duration) string {
	f.models = append(f.models, model)
	f.prompts = append(f.prompts, prompt)
	f.timeouts = append(f.timeouts, timeout)
	return f.text
}

type fakeRecorder struct {
	batches [][]models.Attempt
	err     error
}

func (f *fakeRecorder) LogAttempts(a []models.Attempt) error {
	f.batches = append(f.batches, a)
	return f.err
}

func waterGrounding() evidence.Grounding {
	items := []evidence.Item{
		{Title: "Cortes de agua de 72 horas", Content: "El acueducto anunció cortes en 12 barrios del norte.", URL: "https://news.example/1"},
		{Title: "Lista de barrios afectados", Content: "Desde el jueves a las 6 a.m.", URL: "https://news.example/2"},
	}
	return evidence.Grounding{
		Items:            items,
		Block:            evidence.BuildBlock(items, 12000),
		Images:           []evidence.Image{{URL: "https://img.example/agua.jpg"}},
		SourceImageURLs:  []string{"https://img.example/agua.jpg"},
		ProxiedImageURLs: []string{evidence.ProxyURL("https://images.weserv.nl/", "https://img.example/agua.jpg")},
	}
}

// failingCaller rejects every credential.
func failingCaller() *fakeCaller {
	return &fakeCaller{script: map[call]outcome{
		{"keyA", "m1"}: {err: apiErr(http.StatusForbidden)},
		{"keyB", "m1"}: {err: apiErr(http.StatusTooManyRequests)},
	}}
}

func TestWaterOutageScenario(t *testing.T) {
	const title = "Corte de agua en el norte"
	gatherer := &fakeGatherer{grounding: waterGrounding()}
	local := &fakeLocal{}
	rec := &fakeRecorder{}
	cascade := NewCascade(failingCaller(), staticCreds{"keyA", "keyB"}, threeModels)
	c := NewClient(cascade, local, gatherer, WithRecorder(rec))

	report, err := c.Research(context.Background(), title, "")
	if err != nil {
		t.Fatalf("Research() error: %v", err)
	}
	if report.Source != SourceRawIntel {
		t.Errorf("report source = %q, want %q", report.Source, SourceRawIntel)
	}
	if report.EvidenceCount != 2 || len(report.ImageURLs) != 1 || len(report.SourceImageURLs) != 1 {
		t.Errorf("report = %+v", report)
	}
	if !strings.Contains(report.Text, "RAW INTEL") || !strings.Contains(report.Text, "Lista de barrios afectados") {
		t.Errorf("raw intel report missing sources:\n%s", report.Text)
	}
	if gatherer.gotCtx != defaultContext {
		t.Errorf("context = %q, want default", gatherer.gotCtx)
	}

	pack, err := c.Transmedia(context.Background(), report.Text, title)
	if err != nil {
		t.Fatalf("Transmedia() error: %v", err)
	}
	if pack.Source != SourceTemplate {
		t.Errorf("pack source = %q, want %q", pack.Source, SourceTemplate)
	}
	if !strings.Contains(pack.Text, "### A. EL TITULAR MAESTRO (SEO & Copy)\n**H1:** "+title+"\n") {
		t.Errorf("pack missing headline section:\n%s", pack.Text)
	}
	if !strings.Contains(pack.Text, "### C. FACEBOOK") {
		t.Error("pack missing facebook section")
	}

	parsed := transmedia.Parse(pack.Text, title)
	if parsed.Failed {
		t.Fatal("template pack did not parse")
	}
	if !strings.HasPrefix(parsed.Web.FullContent, "## "+title) {
		t.Errorf("web headline = %q", parsed.Web.FullContent)
	}
	var fb *transmedia.Item
	for i := range parsed.Social {
		if parsed.Social[i].Tag == transmedia.TagFacebook {
			fb = &parsed.Social[i]
		}
	}
	if fb == nil || !strings.Contains(fb.FullContent, title) {
		t.Errorf("facebook item = %+v", fb)
	}

	if len(local.timeouts) != 2 || local.timeouts[0] != 90*time.Second || local.timeouts[1] != 120*time.Second {
		t.Errorf("local timeouts = %v", local.timeouts)
	}
	if len(rec.batches) != 2 {
		t.Errorf("recorded batches = %d, want 2", len(rec.batches))
	}
}

func TestTemplatePackGrammar(t *testing.T) {
	report := "### HECHOS\n**Cifra:** 72 horas | 12 barrios\n" + strings.Repeat("dato ", 200)
	out := TemplatePack(report, "Paro nacional de transportadores en Colombia")

	for _, h := range []string{"### A.", "### B.", "### C. FACEBOOK", "### D. INSTAGRAM", "### E. X / TWITTER", "### F. TIKTOK / REELS", "### G. FLYER", "### H. CENTRAL DE HASHTAGS"} {
		if !strings.Contains(out, h) {
			t.Errorf("template missing %q", h)
		}
	}
	if strings.Count(out, "###") != 8 {
		t.Errorf("template has %d section markers, want 8", strings.Count(out, "###"))
	}
	if !strings.Contains(out, "**TEXTO GIGANTE:** PARO NACIONAL DE TRA\n") {
		t.Error("flyer big text is not the upper-cased first 20 characters")
	}

	pkg := transmedia.Parse(out, "Paro")
	if pkg.Failed || len(pkg.Social) != 4 || len(pkg.Carousel) != 4 || len(pkg.Hashtags) != 3 {
		t.Errorf("parsed template: failed=%v social=%d slides=%d hashtags=%d", pkg.Failed, len(pkg.Social), len(pkg.Carousel), len(pkg.Hashtags))
	}
	for _, s := range pkg.Carousel {
		if s.GridPoints != nil {
			t.Errorf("template slide %q has grid points", s.Title)
		}
	}
}

func TestResearchUsesCloudThenLocal(t *testing.T) {
	t.Run("cloud", func(t *testing.T) {
		caller := &fakeCaller{script: map[call]outcome{{"keyA", "m1"}: {text: "informe nube"}}}
		c := NewClient(NewCascade(caller, staticCreds{"keyA"}, threeModels), &fakeLocal{text: "local"}, &fakeGatherer{grounding: waterGrounding()})
		r, err := c.Research(context.Background(), "t", "c")
		if err != nil || r.Text != "informe nube" || r.Source != SourceCloud || r.Model != "m1" {
			t.Errorf("Research() = %+v, %v", r, err)
		}
	})

	t.Run("local", func(t *testing.T) {
		local := &fakeLocal{text: "informe local"}
		c := NewClient(NewCascade(failingCaller(), staticCreds{"keyA"}, threeModels), local, &fakeGatherer{grounding: waterGrounding()},
			WithLocalModels("phi3", ""))
		r, err := c.Research(context.Background(), "t", "c")
		if err != nil || r.Text != "informe local" || r.Source != SourceLocal {
			t.Errorf("Research() = %+v, %v", r, err)
		}
		if local.models[0] != "phi3" {
			t.Errorf("local model = %q", local.models[0])
		}
		if !strings.Contains(local.prompts[0], "[FUENTE 1]: Cortes de agua de 72 horas") {
			t.Error("local prompt does not carry the evidence block")
		}
	})
}

func TestResearchErrors(t *testing.T) {
	cascade := NewCascade(&fakeCaller{}, staticCreds{"keyA"}, threeModels)

	t.Run("missing title", func(t *testing.T) {
		c := NewClient(cascade, nil, &fakeGatherer{})
		if _, err := c.Research(context.Background(), "  ", "c"); !errors.Is(err, ErrMissingInput) {
			t.Errorf("err = %v, want ErrMissingInput", err)
		}
	})

	t.Run("missing search key", func(t *testing.T) {
		c := NewClient(cascade, nil, &fakeGatherer{err: evidence.ErrMissingKey})
		r, err := c.Research(context.Background(), "t", "c")
		if err != nil {
			t.Fatalf("err = %v", err)
		}
		if r.Text != "# ERROR DE RED\n\nFalta la clave de investigación (Tavily)." {
			t.Errorf("report = %q", r.Text)
		}
	})

	t.Run("provider unreachable", func(t *testing.T) {
		c := NewClient(cascade, nil, &fakeGatherer{err: evidence.ErrProviderUnreachable})
		r, err := c.Research(context.Background(), "t", "c")
		if err != nil || r.Source != SourceError || !strings.HasPrefix(r.Text, "# ERROR DE RED") {
			t.Errorf("Research() = %+v, %v", r, err)
		}
	})

	t.Run("no credential", func(t *testing.T) {
		c := NewClient(NewCascade(&fakeCaller{}, staticCreds{}, threeModels), &fakeLocal{text: "x"}, &fakeGatherer{grounding: waterGrounding()})
		if _, err := c.Research(context.Background(), "t", "c"); !errors.Is(err, ErrNoCredentialConfigured) {
			t.Errorf("err = %v, want ErrNoCredentialConfigured", err)
		}
	})
}

func TestTransmediaMissingInput(t *testing.T) {
	c := NewClient(NewCascade(&fakeCaller{}, staticCreds{"k"}, threeModels), nil, &fakeGatherer{})
	for _, tc := range [][2]string{{"", "titulo"}, {"reporte", " "}} {
		if _, err := c.Transmedia(context.Background(), tc[0], tc[1]); !errors.Is(err, ErrMissingInput) {
			t.Errorf("Transmedia(%q, %q) err = %v", tc[0], tc[1], err)
		}
	}
}

func TestTransmediaReportsCooldownReason(t *testing.T) {
	cd := &fakeCooldown{active: map[string]bool{"keyA": true}}
	c := NewClient(NewCascade(&fakeCaller{}, staticCreds{"keyA"}, threeModels, WithCooldown(cd)), &fakeLocal{}, &fakeGatherer{})

	pack, err := c.Transmedia(context.Background(), "informe", "Paro")
	if err != nil {
		t.Fatalf("Transmedia() error: %v", err)
	}
	if pack.Source != SourceTemplate {
		t.Errorf("Source = %q, want %q", pack.Source, SourceTemplate)
	}
	if !strings.Contains(pack.LastError, "cooling down") {
		t.Errorf("LastError = %q, want the cooldown reason", pack.LastError)
	}
}

func TestTemplatePackHostileTitle(t *testing.T) {
	out := TemplatePack("Informe breve.", "Paro\n### Z. INYECTADO\nfin")

	if strings.Count(out, "###") != 8 {
		t.Errorf("template has %d section markers, want 8", strings.Count(out, "###"))
	}
	if !strings.Contains(out, "**H1:** Paro # Z. INYECTADO fin\n") {
		t.Errorf("title not flattened into the H1 line:\n%s", out)
	}
	pkg := transmedia.Parse(out, "Paro")
	if pkg.Failed || len(pkg.Social) != 4 {
		t.Errorf("parsed template: failed=%v social=%d", pkg.Failed, len(pkg.Social))
	}
}

func TestTransmediaPromptTruncatesReport(t *testing.T) {
	local := &fakeLocal{text: "### C. FACEBOOK\nlocal"}
	c := NewClient(NewCascade(failingCaller(), staticCreds{"keyA"}, threeModels), local, &fakeGatherer{},
		WithAssetBaseURL("https://onda.example"))

	report := strings.Repeat("a", MaxReportRunes) + "COLA-NO-INCLUIDA"
	pack, err := c.Transmedia(context.Background(), report, "Titulo & más")
	if err != nil {
		t.Fatalf("Transmedia() error: %v", err)
	}
	if pack.Source != SourceLocal || pack.LastError == "" {
		t.Errorf("pack = %+v", pack)
	}
	prompt := local.prompts[0]
	if strings.Contains(prompt, "COLA-NO-INCLUIDA") {
		t.Error("prompt carries the report beyond the limit")
	}
	if !strings.Contains(prompt, "![Cover Web](https://onda.example/api/og?") {
		t.Error("prompt image directive does not use the asset base")
	}
}

func TestAnalyzeTrends(t *testing.T) {
	t.Run("local", func(t *testing.T) {
		local := &fakeLocal{text: "Indignación por el alza del pasaje."}
		c := NewClient(NewCascade(&fakeCaller{}, staticCreds{"k"}, threeModels), local, &fakeGatherer{})
		got, err := c.AnalyzeTrends(context.Background(), []string{"Sube el pasaje", " "})
		if err != nil || got != local.text {
			t.Errorf("AnalyzeTrends() = %q, %v", got, err)
		}
		if local.models[0] != "mistral" {
			t.Errorf("model = %q, want mistral", local.models[0])
		}
	})

	t.Run("all fail", func(t *testing.T) {
		c := NewClient(NewCascade(failingCaller(), staticCreds{"keyA"}, threeModels), &fakeLocal{}, &fakeGatherer{})
		got, err := c.AnalyzeTrends(context.Background(), []string{"titular"})
		if err != nil || got != trendFallbackMessage {
			t.Errorf("AnalyzeTrends() = %q, %v", got, err)
		}
	})

	t.Run("no titles", func(t *testing.T) {
		c := NewClient(NewCascade(&fakeCaller{}, staticCreds{"k"}, threeModels), nil, &fakeGatherer{})
		if _, err := c.AnalyzeTrends(context.Background(), nil); !errors.Is(err, ErrMissingInput) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestSocialPost(t *testing.T) {
	caller := &fakeCaller{script: map[call]outcome{{"keyA", "m1"}: {text: "post nube"}}}
	c := NewClient(NewCascade(caller, staticCreds{"keyA"}, threeModels), &fakeLocal{}, &fakeGatherer{})

	got, err := c.SocialPost(context.Background(), "Corte de agua", "Instagram")
	if err != nil || got != "post nube" {
		t.Errorf("SocialPost() = %q, %v", got, err)
	}

	c = NewClient(NewCascade(failingCaller(), staticCreds{"keyA"}, threeModels), &fakeLocal{}, &fakeGatherer{})
	if _, err := c.SocialPost(context.Background(), "t", "X"); !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("err = %v, want ErrGenerationFailed", err)
	}
}

type fakeLister struct {
	entries []vault.Entry
}

func (f fakeLister) Load(context.Context) ([]string, error) { return nil, nil }
func (f fakeLister) Labeled(context.Context) ([]vault.Entry, error) {
	return f.entries, nil
}

type fakeProber map[string]error

func (f fakeProber) Probe(_ context.Context, cred, model string) error { return f[cred] }

func TestDiagnoseCredentials(t *testing.T) {
	lister := fakeLister{entries: []vault.Entry{
		{Slot: vault.DefaultSlot, Credential: "AIzaDefault0001"},
		{Slot: "key1", Credential: "AIzaKeyOne00002"},
		{Slot: "key2", Credential: "AIzaKeyTwo00003"},
		{Slot: "key3", Credential: "AIzaKeyThree004"},
		{Slot: "key4", Credential: "AIzaKeyFour0005"},
	}}
	prober := fakeProber{
		"AIzaKeyOne00002": apiErr(429),
		"AIzaKeyTwo00003": apiErr(404),
		"AIzaKeyThree004": apiErr(400),
		"AIzaKeyFour0005": errors.New("dial tcp: no route"),
	}
	c := NewClient(NewCascade(&fakeCaller{}, lister, nil), nil, &fakeGatherer{}, WithDiagnostics(lister, prober, "gemini-2.5-flash"))

	got, err := c.DiagnoseCredentials(context.Background())
	if err != nil {
		t.Fatalf("DiagnoseCredentials() error: %v", err)
	}
	want := []string{"ok", "rate_limited", "not_found", "invalid", "error"}
	if len(got) != len(want) {
		t.Fatalf("results = %d, want %d", len(got), len(want))
	}
	for i, status := range want {
		if got[i].Status != status {
			t.Errorf("%s status = %q, want %q", got[i].Slot, got[i].Status, status)
		}
		if strings.Contains(got[i].Credential, "Key") {
			t.Errorf("%s credential not masked: %q", got[i].Slot, got[i].Credential)
		}
	}

	empty := NewClient(NewCascade(&fakeCaller{}, fakeLister{}, nil), nil, &fakeGatherer{}, WithDiagnostics(fakeLister{}, prober, "m"))
	if _, err := empty.DiagnoseCredentials(context.Background()); !errors.Is(err, ErrNoCredentialConfigured) {
		t.Errorf("err = %v, want ErrNoCredentialConfigured", err)
	}
}
