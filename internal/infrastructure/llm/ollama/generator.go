package ollama

import (
	"context"
	"fmt"
	"strings"

	"github.com/mkravets/docqa/internal/core/domain"
	"github.com/mkravets/docqa/internal/core/ports"
	"github.com/mkravets/docqa/internal/infrastructure/resilience"
)

// GeneratorPolicies separates the fast conversational path from the
// grounded answer path: greetings get a short budget and fewer retries.
type GeneratorPolicies struct {
	GreetingTimeout resilience.TimeoutPolicy
	GreetingRetry   resilience.RetryPolicy
	AnswerTimeout   resilience.TimeoutPolicy
	AnswerRetry     resilience.RetryPolicy
}

// Generator produces grounded answers, greetings and web summaries from
// the generation model. It shares its breaker with the embedder when
// both talk to the same Ollama server.
type Generator struct {
	client   *Client
	exec     *resilience.Executor
	breaker  *resilience.Breaker
	policies GeneratorPolicies
}

var _ ports.AnswerGenerator = (*Generator)(nil)

func NewGenerator(client *Client, exec *resilience.Executor, breaker *resilience.Breaker, policies GeneratorPolicies) *Generator {
	return &Generator{client: client, exec: exec, breaker: breaker, policies: policies}
}

func (g *Generator) GenerateAnswer(ctx context.Context, question string, passages []domain.FusedResult) (string, error) {
	var sb strings.Builder
	sb.WriteString("Responde la pregunta usando solamente el contexto siguiente. ")
	sb.WriteString("Si el contexto no contiene la respuesta, dilo claramente.\n\nContexto:\n")
	for n, p := range passages {
		fmt.Fprintf(&sb, "[%d] (%s) %s\n", n+1, p.Filename, p.Text)
	}
	fmt.Fprintf(&sb, "\nPregunta: %s\nRespuesta:", question)
	return g.generate(ctx, "ollama.generate_answer", g.policies.AnswerTimeout, g.policies.AnswerRetry, sb.String())
}

func (g *Generator) GenerateGreeting(ctx context.Context, message string) (string, error) {
	prompt := fmt.Sprintf(
		"Eres un asistente de documentos amable. El usuario te saluda: %q. Responde con un saludo breve en el idioma del usuario e invítale a preguntar sobre sus documentos.",
		message,
	)
	return g.generate(ctx, "ollama.generate_greeting", g.policies.GreetingTimeout, g.policies.GreetingRetry, prompt)
}

func (g *Generator) GenerateSummary(ctx context.Context, question string, snippets []domain.Snippet) (string, error) {
	var sb strings.Builder
	sb.WriteString("Resume los siguientes extractos de la web para responder la pregunta. Cita los títulos que uses.\n\nExtractos:\n")
	for n, s := range snippets {
		fmt.Fprintf(&sb, "[%d] %s: %s\n", n+1, s.Title, s.Text)
	}
	fmt.Fprintf(&sb, "\nPregunta: %s\nResumen:", question)
	return g.generate(ctx, "ollama.generate_summary", g.policies.AnswerTimeout, g.policies.AnswerRetry, sb.String())
}

func (g *Generator) Healthy(ctx context.Context) error {
	return g.client.Healthy(ctx)
}

func (g *Generator) generate(ctx context.Context, operation string, timeout resilience.TimeoutPolicy, retry resilience.RetryPolicy, prompt string) (string, error) {
	var text string
	err := g.exec.Execute(ctx, operation, timeout, retry, g.breaker, classifyError, func(ctx context.Context) error {
		out, err := g.client.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		text = out
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}
