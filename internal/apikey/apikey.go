package apikey

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

// SettingKey is where the API key lives in the settings table.
const SettingKey = "api_key"

// words are common Spanish words of 6+ letters without accents, so keys stay
// readable over the phone and safe in a query string.
var words = []string{
	"abierto", "abrazo", "acuerdo", "agenda", "alcalde", "aliento",
	"amarillo", "ambiente", "amistad", "antena", "aplauso", "archivo",
	"arroyo", "artista", "avenida", "balanza", "bandera", "barrio",
	"batalla", "bosque", "brillo", "buscador", "caballo", "cabina",
	"camino", "campana", "cancion", "capitan", "carrera", "cascada",
	"castillo", "celeste", "cerebro", "ciudad", "colegio", "columna",
	"cometa", "consejo", "corazon", "cordillera", "cosecha", "crecer",
	"cronica", "cuaderno", "cultura", "dorado", "debate", "desierto",
	"destino", "diamante", "diario", "emisora", "energia", "entrada",
	"escuela", "espacio", "espejo", "estrella", "estudio", "familia",
	"festival", "frontera", "fuente", "galaxia", "ganador", "girasol",
	"granja", "guitarra", "hermano", "historia", "horizonte", "idioma",
	"imagen", "jardin", "juventud", "ladrillo", "lectura", "libertad",
	"llanura", "locutor", "madera", "maestro", "manzana", "mercado",
	"mensaje", "microfono", "montana", "mundial", "naranja", "noticia",
	"nublado", "oficina", "olivar", "paisaje", "palabra", "paloma",
	"pantalla", "parque", "pescado", "pintura", "planeta", "plateado",
	"portada", "pregunta", "prensa", "pueblo", "puente", "radiante",
	"relato", "relojero", "reportaje", "respuesta", "revista", "rincon",
	"sabana", "semana", "senales", "sendero", "silencio", "sombrero",
	"sonido", "tambor", "teclado", "tejado", "templo", "ternura",
	"titular", "tormenta", "torneo", "trabajo", "tranvia", "trueno",
	"ventana", "verano", "verdad", "viajero", "volcan", "zapato",
}

// Generate creates a human-readable API key in the format:
// barRio-camiNo-ventana-48213
//
// 3-5 distinct words with 2-7 randomly capitalized letters spread across
// them, separated by dashes, ending with a random 5-digit number.
func Generate() (string, error) {
	wordCount, err := randInt(3)
	if err != nil {
		return "", fmt.Errorf("random word count: %w", err)
	}
	wordCount += 3

	chosen := make([][]rune, 0, wordCount)
	used := make(map[int]bool)
	for len(chosen) < wordCount {
		idx, err := randInt(len(words))
		if err != nil {
			return "", fmt.Errorf("random word index: %w", err)
		}
		if used[idx] {
			continue
		}
		used[idx] = true
		chosen = append(chosen, []rune(words[idx]))
	}

	type pos struct{ word, idx int }
	var positions []pos
	for w, runes := range chosen {
		for i := range runes {
			positions = append(positions, pos{w, i})
		}
	}

	capCount, err := randInt(6)
	if err != nil {
		return "", fmt.Errorf("random cap count: %w", err)
	}
	capCount = min(capCount+2, len(positions))

	// partial Fisher-Yates over the first capCount positions
	for i := 0; i < capCount; i++ {
		j, err := randInt(len(positions) - i)
		if err != nil {
			return "", fmt.Errorf("random shuffle: %w", err)
		}
		j += i
		positions[i], positions[j] = positions[j], positions[i]
	}
	for _, p := range positions[:capCount] {
		chosen[p.word][p.idx] = unicode.ToUpper(chosen[p.word][p.idx])
	}

	parts := make([]string, 0, wordCount+1)
	for _, runes := range chosen {
		parts = append(parts, string(runes))
	}

	num, err := randInt(90000)
	if err != nil {
		return "", fmt.Errorf("random number: %w", err)
	}
	parts = append(parts, fmt.Sprintf("%d", num+10000))

	return strings.Join(parts, "-"), nil
}

func randInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

// Store is the settings subset needed to persist the key.
type Store interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// Ensure returns the stored API key, generating and storing one on first run.
// The bool reports whether a new key was created.
func Ensure(store Store, notFound error) (string, bool, error) {
	key, err := store.GetSetting(SettingKey)
	if err == nil && key != "" {
		return key, false, nil
	}
	if err != nil && !errors.Is(err, notFound) {
		return "", false, fmt.Errorf("read api key: %w", err)
	}

	key, err = Generate()
	if err != nil {
		return "", false, err
	}
	if err := store.SetSetting(SettingKey, key); err != nil {
		return "", false, fmt.Errorf("store api key: %w", err)
	}
	return key, true, nil
}
