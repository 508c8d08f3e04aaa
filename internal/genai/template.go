package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// TemplateGenerator renders a deterministic Spanish answer from the stage
// payloads. It needs no network and is used for local runs and demos.
type TemplateGenerator struct{}

func NewTemplateGenerator() *TemplateGenerator { return &TemplateGenerator{} }

func (g *TemplateGenerator) Name() string { return "template" }

func (g *TemplateGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ErrGenerationTimeout
	}

	stages := make(map[string]map[string]interface{}, len(req.Stages))
	for _, s := range req.Stages {
		var m map[string]interface{}
		if json.Unmarshal([]byte(s.Raw), &m) == nil {
			stages[s.Name] = m
		}
	}

	var b strings.Builder
	if p := req.Profile; p != nil {
		fmt.Fprintf(&b, "Perfil activo: %s\n", p.Label)
		for _, d := range p.PromptDirectives {
			fmt.Fprintf(&b, "- %s\n", d)
		}
		b.WriteString("\n")
	}

	venue := str(stages["Venue Info"], "venue")
	if venue == "" {
		venue = "Madrid"
	}
	fmt.Fprintf(&b, "Te ayudo a planificar tu visita a %s.\n", venue)

	if acc := stages["Accessibility"]; acc != nil {
		b.WriteString("\nInformación de accesibilidad:\n")
		if level := str(acc, "accessibility_level"); level != "" {
			fmt.Fprintf(&b, "- Nivel: %s\n", level)
		}
		if score, ok := acc["accessibility_score"].(float64); ok {
			fmt.Fprintf(&b, "- Puntuación de accesibilidad: %.1f/10\n", score)
		}
		if cert := str(acc, "certification"); cert != "" {
			fmt.Fprintf(&b, "- Certificación: %s\n", cert)
		}
		if fac := strs(acc["facilities"]); len(fac) > 0 {
			fmt.Fprintf(&b, "- Servicios: %s\n", strings.Join(fac, ", "))
		}
		for _, w := range strs(acc["warnings"]) {
			fmt.Fprintf(&b, "- Aviso: %s\n", w)
		}
	}

	if routes := stages["Routes"]; routes != nil {
		if list, ok := routes["routes"].([]interface{}); ok && len(list) > 0 {
			b.WriteString("\nRutas de transporte:\n")
			for _, item := range list {
				r, _ := item.(map[string]interface{})
				fmt.Fprintf(&b, "- %s %s (%s), %s\n", str(r, "transport"), str(r, "line"), str(r, "duration"), str(r, "accessibility"))
			}
		}
		if cost := str(routes, "estimated_cost"); cost != "" {
			fmt.Fprintf(&b, "- Coste estimado: %s\n", cost)
		}
	}

	if v := stages["Venue Info"]; v != nil {
		if pricing, ok := v["pricing"].(map[string]interface{}); ok && len(pricing) > 0 {
			b.WriteString("\nPrecios:\n")
			for _, k := range sortedAnyKeys(pricing) {
				fmt.Fprintf(&b, "- %s: %v\n", k, pricing[k])
			}
		}
	}

	b.WriteString("\nRecomendamos confirmar la accesibilidad con el establecimiento antes de la visita.")
	return b.String(), nil
}

func str(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func strs(v interface{}) []string {
	list, _ := v.([]interface{})
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func sortedAnyKeys(m map[string]interface{}) []string {
	f := make(map[string]float64, len(m))
	for k := range m {
		f[k] = 0
	}
	return sortedKeys(f)
}
