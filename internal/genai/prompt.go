package genai

import (
	"fmt"
	"sort"
	"strings"

	"tourism-workers/internal/models"
)

const SystemPrompt = `You are an expert accessible tourism assistant for Spanish-speaking users.
Your goal is to help users plan accessible tourism experiences using specialized tools.
Always provide responses in Spanish, be helpful, and focus on accessibility features.
Include practical details like timing, costs, and accessibility features.`

var stageHeadings = map[string]string{
	"NLU":           "ANÁLISIS DE INTENCIÓN",
	"LocationNER":   "UBICACIONES DETECTADAS",
	"Accessibility": "ANÁLISIS DE ACCESIBILIDAD",
	"Routes":        "PLANIFICACIÓN DE RUTAS",
	"Venue Info":    "INFORMACIÓN TURÍSTICA",
}

const structuredBlockInstruction = "Al final de tu respuesta añade un único bloque ```json con los datos " +
	"estructurados de la recomendación principal, con esta forma:\n" +
	`{"venue": {"name": "", "type": "", "accessibility_score": 0, "certification": "", "facilities": [], ` +
	`"opening_hours": {}, "pricing": {}}, "routes": [{"transport": "", "line": "", "duration": "", ` +
	`"accessibility": "", "cost": "", "steps": []}], "accessibility": {"level": "", "score": 0, ` +
	`"certification": "", "facilities": [], "services": {}}}`

// BuildPrompt renders the response prompt: one section per stage in the
// order given, then the profile directives, then the answer instructions.
func BuildPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("Eres un asistente experto en turismo accesible en España.\n\n")
	fmt.Fprintf(&b, "El usuario preguntó: %q\n\n", req.UserInput)
	b.WriteString("He analizado su consulta usando varias herramientas especializadas:\n")

	for _, stage := range req.Stages {
		heading, ok := stageHeadings[stage.Name]
		if !ok {
			heading = strings.ToUpper(stage.Name)
		}
		raw := strings.TrimSpace(stage.Raw)
		if raw == "" {
			raw = "{}"
		}
		fmt.Fprintf(&b, "\n%s:\n%s\n", heading, raw)
	}

	if p := req.Profile; p != nil {
		fmt.Fprintf(&b, "\nPERFIL DEL USUARIO: %s\n", p.Label)
		for _, d := range p.PromptDirectives {
			fmt.Fprintf(&b, "- %s\n", strings.TrimSpace(d))
		}
		if len(p.RankingBias) > 0 {
			b.WriteString("Prioriza según estos pesos:\n")
			for _, k := range sortedKeys(p.RankingBias) {
				fmt.Fprintf(&b, "- %s: %.1f\n", k, p.RankingBias[k])
			}
		}
	}

	b.WriteString(`
Genera una respuesta completa y útil en español que incluya:
1. Recomendaciones específicas de lugares accesibles
2. Información práctica sobre rutas y transporte
3. Horarios, precios y servicios de accesibilidad
4. Consejos específicos para las necesidades del usuario

Sé conversacional, útil y enfócate en los aspectos de accesibilidad.
`)
	b.WriteString(structuredBlockInstruction)
	return b.String()
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Request is the structured context handed to a generator.
type Request struct {
	UserInput string
	Language  string
	Stages    []models.StageOutput
	Profile   *models.ProfileContext
}
