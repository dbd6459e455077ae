// Package transmedia turns a generated content package into typed items for
// display: one web article, the social copies, the carousel slides, the flyer
// descriptor and the hashtag sets.
package transmedia

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Tags carried by parsed items.
const (
	TagWeb       = "NOTA WEB"
	TagFacebook  = "FACEBOOK"
	TagInstagram = "INSTAGRAM"
	TagX         = "X / TWITTER"
	TagTikTok    = "TIKTOK / REELS"
	TagError     = "ERROR"
)

const (
	errorMarker     = "ERROR DE GENERACIÓN"
	defaultSubtitle = "Cobertura Especial Onda Radio"
	pendingBody     = "Contenido en desarrollo..."
	emptyResponse   = "No se recibió respuesta del servidor (Empty Response)."
)

// Item is one renderable unit.
type Item struct {
	Tag         string `json:"tag"`
	Title       string `json:"title"`
	Description string `json:"description"`
	FullContent string `json:"full_content"`
	ImageURL    string `json:"image_url,omitempty"`
	IsWeb       bool   `json:"is_web"`
}

// Slide is one act of the Instagram carousel. GridPoints is nil unless the
// slide carried at least two |-separated fragments.
type Slide struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	GridPoints []string `json:"grid_points,omitempty"`
}

type Flyer struct {
	BigText           string `json:"big_text"`
	Subtitle          string `json:"subtitle"`
	VisualInstruction string `json:"visual_instruction"`
}

type HashtagSet struct {
	Platform string `json:"platform"`
	Tags     string `json:"tags"`
}

// Package is the parsed form of a content package. Items holds the web item
// first, then the social items in section order.
type Package struct {
	Items    []Item       `json:"items"`
	Web      Item         `json:"web"`
	Social   []Item       `json:"social"`
	Flyer    Flyer        `json:"flyer"`
	Carousel []Slide      `json:"carousel"`
	Hashtags []HashtagSet `json:"hashtags"`
	Failed   bool         `json:"failed"`
}

var (
	upperES = cases.Upper(language.Spanish)

	imageRe    = regexp.MustCompile(`!\[.*?\]\((.*?)\)`)
	h1Re       = regexp.MustCompile(`(?i)\*\*H1:\*\*`)
	bigTextRe  = regexp.MustCompile(`\*\*TEXTO GIGANTE:\*\*\s*(.*)`)
	subtitleRe = regexp.MustCompile(`\*\*SUBTÍTULO:\*\*\s*(.*)`)
	visualRe   = regexp.MustCompile(`\*Instrucción Visual:\*\s*(.*)`)

	hashtagRes = []struct {
		platform string
		re       *regexp.Regexp
	}{
		{"Instagram / TikTok", regexp.MustCompile(`(?i)INSTAGRAM.*?Hashtags:\*\*\s*(.*)`)},
		{"X (Twitter)", regexp.MustCompile(`(?i)X /.*?Hashtags:\*\*\s*(.*)`)},
		{"Facebook", regexp.MustCompile(`(?i)FACEBOOK.*?Hashtags:\*\*\s*(.*)`)},
	}

	slideRes = []struct {
		title string
		re    *regexp.Regexp
	}{
		{"ACTO 1: EL GANCHO", regexp.MustCompile(`(?i)SLIDE\s*1.*?\):\*?\*?\s*(.*)`)},
		{"ACTO 2: EL HECHO", regexp.MustCompile(`(?i)SLIDE\s*2.*?\):\*?\*?\s*(.*)`)},
		{"ACTO 3: EMPATÍA", regexp.MustCompile(`(?i)SLIDE\s*3.*?\):\*?\*?\s*(.*)`)},
		{"ACTO 4: ACCIÓN", regexp.MustCompile(`(?i)SLIDE\s*4.*?\):\*?\*?\s*(.*)`)},
	}

	pointIndexRe = regexp.MustCompile(`^\[\d+\]\s*`)
	pointParenRe = regexp.MustCompile(`^\(|\)$`)
)

// Parse splits content on ### markers and classifies each section by its
// header line. Unknown sections are ignored. Content that carries the
// generation error marker, or where no section is recognized, yields a
// single ERROR item holding the raw text.
func Parse(content, mainTitle string) Package {
	var sections []string
	for _, s := range strings.Split(content, "###") {
		if strings.TrimSpace(s) != "" {
			sections = append(sections, s)
		}
	}
	if len(sections) == 0 || strings.Contains(content, errorMarker) {
		return failed(content)
	}

	pkg := Package{
		Flyer: Flyer{BigText: mainTitle, Subtitle: defaultSubtitle},
	}
	var webHeadline, webBody, webImage string
	classified := false

	for _, section := range sections {
		lines := strings.Split(strings.TrimSpace(section), "\n")
		header := upperES.String(strings.TrimSpace(lines[0]))
		rest := strings.TrimSpace(strings.Join(lines[1:], "\n"))

		var imageURL string
		if m := imageRe.FindStringSubmatch(rest); m != nil {
			imageURL = m[1]
		}
		body := strings.TrimSpace(imageRe.ReplaceAllString(rest, ""))

		switch {
		case strings.Contains(header, "HASHTAG") || strings.Contains(header, "CENTRAL DE"):
			classified = true
			for _, h := range hashtagRes {
				if m := h.re.FindStringSubmatch(section); m != nil {
					pkg.Hashtags = append(pkg.Hashtags, HashtagSet{Platform: h.platform, Tags: strings.TrimSpace(m[1])})
				}
			}
			continue

		case strings.Contains(header, "FLYER") || strings.Contains(header, "VISUAL"):
			classified = true
			if m := bigTextRe.FindStringSubmatch(section); m != nil {
				pkg.Flyer.BigText = stripBold(m[1])
			}
			if m := subtitleRe.FindStringSubmatch(section); m != nil {
				pkg.Flyer.Subtitle = stripBold(m[1])
			}
			if m := visualRe.FindStringSubmatch(section); m != nil {
				pkg.Flyer.VisualInstruction = stripBold(m[1])
			}
			continue

		case strings.Contains(header, "TITULAR") || strings.HasPrefix(header, "A."):
			classified = true
			webHeadline = strings.TrimSpace(h1Re.ReplaceAllString(body, ""))
			continue

		case strings.Contains(header, "WEB") || strings.Contains(header, "BLOG") || strings.HasPrefix(header, "B."):
			classified = true
			webBody = body
			if imageURL != "" {
				webImage = imageURL
			}
			continue
		}

		if strings.Contains(header, "INSTAGRAM") {
			pkg.Carousel = append(pkg.Carousel, parseSlides(section)...)
		}

		tag := platformTag(header)
		if tag == "" {
			continue
		}
		classified = true
		pkg.Social = append(pkg.Social, Item{
			Tag:         tag,
			Title:       tag + " - Copy",
			Description: body,
			FullContent: body,
			ImageURL:    imageURL,
		})
	}

	if !classified {
		return failed(content)
	}

	full := pendingBody
	if webBody != "" {
		full = webBody
	}
	if webHeadline != "" {
		full = "## " + webHeadline + "\n\n" + full
	}
	desc := webHeadline
	if desc == "" {
		desc = truncateRunes(webBody, 150) + "..."
	}
	pkg.Web = Item{
		Tag:         TagWeb,
		Title:       mainTitle,
		Description: desc,
		FullContent: full,
		ImageURL:    webImage,
		IsWeb:       true,
	}
	pkg.Items = append([]Item{pkg.Web}, pkg.Social...)
	return pkg
}

func parseSlides(section string) []Slide {
	var slides []Slide
	for _, s := range slideRes {
		m := s.re.FindStringSubmatch(section)
		if m == nil {
			continue
		}
		raw := strings.TrimSpace(m[1])
		slides = append(slides, Slide{Title: s.title, Content: raw, GridPoints: gridPoints(raw)})
	}
	return slides
}

// gridPoints splits a slide on | and returns the fragments when there are
// at least two, otherwise nil.
func gridPoints(raw string) []string {
	if !strings.Contains(raw, "|") {
		return nil
	}
	parts := strings.Split(raw, "|")
	points := make([]string, 0, len(parts))
	for _, p := range parts {
		p = pointIndexRe.ReplaceAllString(strings.TrimSpace(p), "")
		p = strings.TrimSpace(pointParenRe.ReplaceAllString(p, ""))
		points = append(points, p)
	}
	if len(points) < 2 {
		return nil
	}
	return points
}

func platformTag(header string) string {
	switch {
	case strings.Contains(header, "FACEBOOK"):
		return TagFacebook
	case strings.Contains(header, "INSTAGRAM"):
		return TagInstagram
	case strings.Contains(header, "TWITTER") || strings.Contains(header, "X /"):
		return TagX
	case strings.Contains(header, "TIKTOK") || strings.Contains(header, "REEL"):
		return TagTikTok
	default:
		return ""
	}
}

func failed(content string) Package {
	raw := content
	if strings.TrimSpace(raw) == "" {
		raw = emptyResponse
	}
	item := Item{
		Tag:         TagError,
		Title:       "Fallo de Sincronización Transmedia",
		Description: "No se pudo parsear la respuesta de la IA o el servicio falló.",
		FullContent: raw,
	}
	return Package{Items: []Item{item}, Failed: true}
}

func stripBold(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "**", ""))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
