package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// ErrEmptyNarrative is returned when a generator produced no text.
var ErrEmptyNarrative = errors.New("empty narrative")

// Generator writes commentary for a set of facts.
type Generator interface {
	Generate(ctx context.Context, f Facts) (string, error)
}

// =============================================================================
// TEMPLATE GENERATOR - Deterministic, always available
// =============================================================================

type TemplateGenerator struct{}

func (TemplateGenerator) Generate(_ context.Context, f Facts) (string, error) {
	var b strings.Builder

	if f.Eligible {
		b.WriteString("Se recomienda autorizar la 2ª cuota. ")
	} else {
		b.WriteString("No se recomienda autorizar la 2ª cuota. ")
	}

	fmt.Fprintf(&b, "El monto rendido ($%s) representa un %s%% del monto de la primera cuota", f.RenditionTotal, f.ExecutionPercentage)
	if f.RenditionConditionMet {
		fmt.Fprintf(&b, " y alcanza el umbral de $%s. ", f.ExecutionThreshold)
	} else {
		fmt.Fprintf(&b, "; falta por rendir $%s para alcanzar el umbral del 60%%. ", f.ThresholdGap)
	}

	switch {
	case !f.ProjectTotalKnown:
		b.WriteString("No se ingresó el monto total del proyecto, por lo que la garantía no se evaluó. ")
	case f.GuaranteeSufficient:
		fmt.Fprintf(&b, "La garantía ($%s) cubre el monto total del proyecto. ", f.GuaranteeValue)
	default:
		fmt.Fprintf(&b, "La garantía ($%s) no cubre el monto total del proyecto; faltan $%s. ", f.GuaranteeValue, f.GuaranteeGap)
	}

	if f.ProjectTotalKnown {
		fmt.Fprintf(&b, "Monto sugerido para la 2ª cuota: $%s (%s).", f.SuggestedAmount, f.SuggestedRationale)
	} else {
		fmt.Fprintf(&b, "Monto sugerido para la 2ª cuota: $%s. %s", f.SuggestedAmount, f.SuggestedRationale)
	}
	return b.String(), nil
}

// =============================================================================
// GENAI GENERATOR - Gemini
// =============================================================================

type GenAIGenerator struct {
	client *genai.Client
	model  string
}

// NewGenAIGenerator creates a Gemini-backed generator.
func NewGenAIGenerator(ctx context.Context, apiKey, model string) (*GenAIGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAIGenerator{client: client, model: model}, nil
}

func (g *GenAIGenerator) Generate(ctx context.Context, f Facts) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(Prompt(f)), nil)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyNarrative
	}
	return text, nil
}

// Name returns the generator name.
func (g *GenAIGenerator) Name() string {
	return fmt.Sprintf("genai:%s", g.model)
}

// Prompt renders the instruction sent to the model. The figures are final;
// the model is asked to explain them, not to recompute them.
func Prompt(f Facts) string {
	decision := "NO AUTORIZAR"
	if f.Eligible {
		decision = "AUTORIZAR"
	}
	guarantee := "no evaluada (sin monto total de proyecto)"
	if f.ProjectTotalKnown {
		if f.GuaranteeSufficient {
			guarantee = fmt.Sprintf("suficiente ($%s)", f.GuaranteeValue)
		} else {
			guarantee = fmt.Sprintf("insuficiente ($%s, faltan $%s)", f.GuaranteeValue, f.GuaranteeGap)
		}
	}

	return fmt.Sprintf(`Redacta un comentario breve para un informe de verificación de gastos previo al desembolso de la 2ª cuota de un proyecto.

RESULTADO (ya calculado, no lo modifiques):
- Decisión: %s
- Rendiciones consideradas: %d
- Suma rendida: $%s (%s%% de la 1ª cuota)
- Umbral 60%%: $%s
- Brecha para el umbral: $%s
- Garantía: %s
- Monto sugerido 2ª cuota: $%s (%s)

INSTRUCCIONES:
1. Explica la decisión en 2-3 oraciones en español formal.
2. Usa exactamente los montos entregados.
3. No agregues recomendaciones que contradigan la decisión.`,
		decision, f.RenditionCount, f.RenditionTotal, f.ExecutionPercentage,
		f.ExecutionThreshold, f.ThresholdGap, guarantee, f.SuggestedAmount, f.SuggestedRationale)
}
