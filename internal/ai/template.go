package ai

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ondaradio/onda/internal/evidence"
)

const (
	summaryRunes  = 500
	bigTextRunes  = 20
	titleRunes    = 300
	reportNoAIMsg = "**NOTA DEL SISTEMA:** El motor de redacción neuronal no está disponible, pero la investigación OSINT fue exitosa. A continuación se presentan los datos crudos recuperados."
)

var (
	upperES = cases.Upper(language.Spanish)

	// Embedded report headings must not open new package sections.
	sectionMarker = regexp.MustCompile(`#{3,}`)
)

// TemplatePack builds a complete content package from the title and report
// alone. It performs no I/O and cannot fail.
func TemplatePack(report, title string) string {
	title = templateTitle(title)
	summary := strings.TrimSpace(strings.NewReplacer("*", "", "#", "").Replace(truncateRunes(report, summaryRunes)))
	if summary == "" {
		summary = title
	}
	bigText := upperES.String(truncateRunes(title, bigTextRunes))

	var sb strings.Builder
	sb.WriteString("### A. EL TITULAR MAESTRO (SEO & Copy)\n")
	fmt.Fprintf(&sb, "**H1:** %s\n", title)
	fmt.Fprintf(&sb, "**Meta-Descripción:** Reporte especial de Onda Radio sobre %s.\n\n", title)

	sb.WriteString("### B. BLOG / WEB (La Noticia Completa)\n")
	sb.WriteString(strings.TrimSpace(sectionMarker.ReplaceAllString(report, "##")))
	sb.WriteString("\n\n")

	sb.WriteString("### C. FACEBOOK (Generando Conversación)\n")
	fmt.Fprintf(&sb, "Acabamos de publicar un análisis profundo sobre: %s. ¿Qué opinas al respecto? Los leemos.\n\n", title)

	sb.WriteString("### D. INSTAGRAM (Carrusel de 4 Actos \"Onda\" - Formato 1080x1920)\n")
	sb.WriteString("- **SLIDE 1 (EL GANCHO):** Esta noticia te va a doler (y es necesario que la sepas ahora).\n")
	fmt.Fprintf(&sb, "- **SLIDE 2 (EL HECHO):** %s\n", oneLine(summary, 240))
	sb.WriteString("- **SLIDE 3 (EMPATÍA):** \"Esto no es solo una cifra, es nuestra realidad cada día\", dice la red.\n")
	sb.WriteString("- **SLIDE 4 (ACCIÓN):** El debate está abierto. ¿Tú de qué lado de la Onda estás? Comenta abajo.\n\n")

	sb.WriteString("### E. X / TWITTER (Inmediatez)\n")
	fmt.Fprintf(&sb, "URGENTE: %s #OndaRadio #Noticias\n\n", title)

	sb.WriteString("### F. TIKTOK / REELS (Guion Vertical)\n")
	fmt.Fprintf(&sb, "**Gancho:** ¡Atención! Se confirma noticia sobre %s.\n", title)
	sb.WriteString("**Cuerpo:** 1. El hecho. 2. El por qué. 3. Qué sigue.\n")
	sb.WriteString("**CTA:** Síguenos para más.\n\n")

	sb.WriteString("### G. FLYER UNIFICADO (Concepto Visual)\n")
	sb.WriteString("*Instrucción Visual:* Diseño sobrio con el logo de Onda Radio.\n")
	fmt.Fprintf(&sb, "**TEXTO GIGANTE:** %s\n", bigText)
	sb.WriteString("**SUBTÍTULO:** Cobertura Especial.\n\n")

	sb.WriteString("### H. CENTRAL DE HASHTAGS (Estrategia de Alcance)\n")
	sb.WriteString("**INSTAGRAM & TIKTOK Hashtags:** #Noticias #Colombia #Actualidad #Tendencia #OndaRadio\n")
	sb.WriteString("**X / TWITTER Hashtags:** #Urgente #Noticias #OndaRadio\n")
	sb.WriteString("**FACEBOOK Hashtags:** #Comunidad #Noticias #OndaRadio\n")
	return sb.String()
}

// RawIntelReport lists every evidence item verbatim. It is the research
// backstop when no model produced a report.
func RawIntelReport(items []evidence.Item) string {
	var sb strings.Builder
	sb.WriteString("# EXPEDIENTE DE ACCESO DIRECTO (RAW INTEL)\n\n")
	sb.WriteString(reportNoAIMsg)
	sb.WriteString("\n\n---\n\n")
	fmt.Fprintf(&sb, "## HALLAZGOS CONFIRMADOS (%d Fuentes)\n", len(items))
	for i, it := range items {
		fmt.Fprintf(&sb, "\n### %d. %s\n", i+1, it.Title)
		fmt.Fprintf(&sb, "> \"%s\"\n", it.Content)
		fmt.Fprintf(&sb, "*   **Fuente:** [Ver Enlace Original](%s)\n", it.URL)
	}
	sb.WriteString("\n---\n*Reporte generado automáticamente por Onda Radio Intelligence.*\n")
	return sb.String()
}

// NetworkErrorReport is the research artifact when evidence could not be gathered.
func NetworkErrorReport(err error) string {
	if err == nil || errors.Is(err, evidence.ErrMissingKey) {
		return "# ERROR DE RED\n\nFalta la clave de investigación (Tavily)."
	}
	return fmt.Sprintf("# ERROR DE RED\n\nNo se pudo completar la investigación.\nError: %v", err)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// templateTitle keeps a title on one line and free of section markers so it
// cannot open a section of its own.
func templateTitle(title string) string {
	return strings.TrimSpace(oneLine(sectionMarker.ReplaceAllString(title, "#"), titleRunes))
}

func oneLine(s string, n int) string {
	return strings.ReplaceAll(strings.Join(strings.Fields(truncateRunes(s, n)), " "), "|", "/")
}
