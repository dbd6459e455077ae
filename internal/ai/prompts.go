package ai

import (
	"fmt"
	"net/url"
	"strings"
)

// MaxReportRunes caps how much of a report is embedded in the transmedia prompt.
const MaxReportRunes = 20000

// ResearchPrompt asks for a report grounded only on the evidence block.
func ResearchPrompt(evidenceBlock string) string {
	var sb strings.Builder
	sb.WriteString("ACTÚA COMO UN ANALISTA DE INTELIGENCIA DE ONDA RADIO.\n\n")
	sb.WriteString("OBJETIVO: REDACTAR UN INFORME BASADO **EXCLUSIVAMENTE** EN LOS DATOS RECOLECTADOS A CONTINUACIÓN.\n")
	sb.WriteString("NO INVENTES NADA. SI EL DATO NO ESTÁ EN LAS FUENTES, DI \"NO VERIFICADO\".\n\n")
	sb.WriteString("DATOS RECUPERADOS:\n")
	sb.WriteString(evidenceBlock)
	sb.WriteString("\n\n--------------------------------------------------\n")
	sb.WriteString("INSTRUCCIONES DE FORMATO:\n")
	sb.WriteString("Crea un expediente estructurado con:\n")
	sb.WriteString("1. TÍTULO DE IMPACTO.\n")
	sb.WriteString("2. \"HECHOS DUROS\": Lista de bullet points con los datos más concretos (cifras, nombres, fechas) encontrados en las fuentes.\n")
	sb.WriteString("3. CRÓNICA: Un relato de 3 párrafos uniendo estos hechos.\n")
	sb.WriteString("4. FUENTES: Lista las URLs originales al final.\n")
	return sb.String()
}

// TransmediaPrompt asks for the full sectioned content package. Image
// directives point at the asset endpoint under assetBase.
func TransmediaPrompt(report, title, assetBase string) string {
	img := func(alt, tag, kind string) string {
		q := url.Values{}
		q.Set("title", title)
		q.Set("tag", tag)
		q.Set("type", kind)
		return fmt.Sprintf("![%s](%s/api/og?%s)", alt, strings.TrimRight(assetBase, "/"), q.Encode())
	}

	var sb strings.Builder
	sb.WriteString("ERES EL DIRECTOR EDITORIAL Y ESTRATEGA DIGITAL DEL MEDIO \"ONDA RADIO\".\n")
	sb.WriteString("Combinas la rigurosidad de un periodista de investigación, la astucia de un experto en SEO y la empatía de un usuario común.\n\n")

	sb.WriteString("[TU MISIÓN]\n")
	sb.WriteString("Procesar el INFORME DE REFERENCIA adjunto y generar un paquete completo de contenidos adaptados para redes sociales.\n\n")

	sb.WriteString("[FILOSOFÍA DE CONTENIDO: \"EL FACTOR HUMANO\"]\n")
	sb.WriteString("- PROHIBIDO: Usar frases genéricas o sonar corporativo.\n")
	sb.WriteString("- OBLIGATORIO: Empatía radical. Háblale a la persona. No digas \"suspensión del servicio hídrico\", di \"se va el agua, recoge en ollas\".\n")
	sb.WriteString("- OBLIGATORIO: Tono según el contexto. Farándula con salseo, política seria y crítica, servicio público útil.\n\n")

	sb.WriteString("[INFORME DE REFERENCIA PARA TRABAJAR]:\n---\n")
	sb.WriteString(truncateRunes(report, MaxReportRunes))
	sb.WriteString("\n---\n")
	fmt.Fprintf(&sb, "TITULO ORIGINAL: %q\n\n", title)

	sb.WriteString("[FORMATO DE ENTREGA OBLIGATORIO]\n")
	sb.WriteString("Responde EXACTAMENTE con esta estructura Markdown:\n\n")

	sb.WriteString("### A. EL TITULAR MAESTRO (SEO & Copy)\n")
	sb.WriteString("**H1:** (Un titular con gancho real, pregunta directa o advertencia).\n")
	sb.WriteString("**Meta-Descripción:** (Máximo 150 caracteres. Útil y curiosa).\n\n")

	sb.WriteString("### B. BLOG / WEB (La Noticia Completa)\n")
	sb.WriteString("(Reportaje de al menos 600 palabras: introducción humana, desarrollo con subtítulos H2, 2 o 3 citas en formato \"> Cita\", una sección DISECCIÓN DE DATOS y un análisis de impacto).\n\n")
	sb.WriteString(img("Cover Web", "ANÁLISIS", "story") + "\n\n")

	sb.WriteString("### C. FACEBOOK (Generando Conversación)\n")
	sb.WriteString("(Plantea el problema cotidiano y cierra con una pregunta para comentarios).\n\n")
	sb.WriteString(img("Facebook Post", "DEBATE", "post") + "\n\n")

	sb.WriteString("### D. INSTAGRAM (Carrusel de 4 Actos \"Onda\" - Formato 1080x1920)\n")
	sb.WriteString("- **SLIDE 1 (EL GANCHO):** (Detener el scroll. Máx. 10 palabras).\n")
	sb.WriteString("- **SLIDE 2 (EL HECHO):** (La noticia cruda narrada. Máx. 30 palabras. Si hay varios datos, sepáralos con |).\n")
	sb.WriteString("- **SLIDE 3 (EMPATÍA):** (Una cita o dato traducido a lenguaje humano).\n")
	sb.WriteString("- **SLIDE 4 (ACCIÓN):** (Cierre y pregunta de debate).\n\n")
	sb.WriteString(img("Instagram Carousel", "INSTAGRAM", "story") + "\n\n")

	sb.WriteString("### E. X / TWITTER (Inmediatez)\n")
	sb.WriteString("(Tweet 1: la bomba informativa. Tweet 2: dato duro. Tweet 3: recomendación o link).\n\n")
	sb.WriteString(img("Twitter Card", "HILO", "post") + "\n\n")

	sb.WriteString("### F. TIKTOK / REELS (Guion Vertical)\n")
	sb.WriteString("**Gancho (0-3s):** (Frase para detener el scroll).\n")
	sb.WriteString("**Cuerpo:** (Explicación rápida en 3 puntos).\n")
	sb.WriteString("**CTA:** (Acción específica).\n\n")

	sb.WriteString("### G. FLYER UNIFICADO (Concepto Visual)\n")
	sb.WriteString("*Instrucción Visual:* (Composición ideal: colores, emociones, elementos).\n")
	sb.WriteString("**TEXTO GIGANTE:** (Máximo 5 palabras).\n")
	sb.WriteString("**SUBTÍTULO:** (Frase corta de contexto).\n\n")
	sb.WriteString(img("Flyer Final", "VIRAL", "story") + "\n\n")

	sb.WriteString("### H. CENTRAL DE HASHTAGS (Estrategia de Alcance)\n")
	sb.WriteString("**INSTAGRAM & TIKTOK Hashtags:** (Exactamente 5: 1 tema + 2 tendencias + 1 ubicación + #OndaRadio)\n")
	sb.WriteString("**X / TWITTER Hashtags:** (Exactamente 3, cortos y de tendencia)\n")
	sb.WriteString("**FACEBOOK Hashtags:** (3 para grupos y descubrimiento)\n\n")

	sb.WriteString("[FIN DEL FORMATO]\nResponde únicamente con el contenido generado.")
	return sb.String()
}

// TrendPrompt asks which of the given headlines has the most viral potential.
func TrendPrompt(titles []string) string {
	var sb strings.Builder
	sb.WriteString("Analiza los siguientes titulares y detecta los temas con MAYOR POTENCIAL VIRAL y de conversación social en Colombia.\n\n")
	sb.WriteString("Tu objetivo es responder: \"¿De qué está hablando la gente hoy?\"\n\n")
	sb.WriteString("Titulares:\n")
	for _, t := range titles {
		sb.WriteString(strings.TrimSpace(t))
		sb.WriteByte('\n')
	}
	sb.WriteString("\nInstrucciones:\n")
	sb.WriteString("1. Identifica el tema #1 más polémico o emocional.\n")
	sb.WriteString("2. Resume brevemente por qué es viral.\n")
	sb.WriteString("3. Usa un tono dinámico, como de redes sociales. Máximo 50 palabras.\n\n")
	sb.WriteString("Resumen de Viralidad:")
	return sb.String()
}

// SocialPostPrompt asks for one ready-to-publish post for a platform.
func SocialPostPrompt(topic, platform string) string {
	var sb strings.Builder
	sb.WriteString("Actúa como un Social Media Manager profesional para un medio de noticias alternativo llamado \"Onda Radio\".\n")
	sb.WriteString("Adapta noticias para redes sociales con alto impacto, usando emojis, hashtags relevantes y un tono urgente pero veraz.\n\n")
	fmt.Fprintf(&sb, "Genera un post para %s sobre el siguiente tema: %q.\n\n", platform, topic)
	sb.WriteString("Reglas por plataforma:\n")
	sb.WriteString("- Twitter/X: Máximo 280 caracteres, hilo si es necesario, hashtags al final.\n")
	sb.WriteString("- Instagram: Pie de foto atractivo, emojis al inicio, hashtags en bloque.\n")
	sb.WriteString("- Facebook: Tono conversacional, preguntas a la audiencia.\n")
	sb.WriteString("- LinkedIn: Tono profesional, enfoque en impacto o industria.\n\n")
	sb.WriteString("Devuelve SOLO el texto del post, sin explicaciones extra.")
	return sb.String()
}
