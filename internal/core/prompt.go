package core

import (
	"fmt"
	"strings"
)

// FallbackAnswer is the fixed sentence the model is instructed to emit when
// neither the FAQ block nor the context contains enough information.
const FallbackAnswer = "Je ne dispose pas d'informations suffisantes pour répondre à cette question. N'hésitez pas à contacter directement l'accueil de votre église."

const (
	noFAQPlaceholder     = "Aucune FAQ disponible."
	noContextPlaceholder = "Aucun contexte disponible."
)

// BuildSystemPrompt fixes the assistant's persona: branded for the church,
// warm and concise, refusing medical and legal advice, answering in the
// configured language.
func BuildSystemPrompt(churchName, language string) string {
	name := strings.TrimSpace(churchName)
	if name == "" {
		name = "l'église"
	}
	return fmt.Sprintf(
		"Tu es l'assistant virtuel de %s. "+
			"Tu réponds avec chaleur et bienveillance, de manière concise. "+
			"Tu ne donnes jamais de conseil médical ou juridique ; dans ce cas, invite la personne à consulter un professionnel. "+
			"Tu réponds toujours en %s.",
		name, language,
	)
}

// BuildUserPrompt assembles the grounding prompt: prioritized FAQ block,
// general context block, the verbatim question, then numbered instructions.
// Empty sections are replaced by an explicit placeholder instead of being
// omitted, so the model never treats a missing section as an oversight.
func BuildUserPrompt(faqBlock, contextBlock, question string) string {
	if strings.TrimSpace(faqBlock) == "" {
		faqBlock = noFAQPlaceholder
	}
	if strings.TrimSpace(contextBlock) == "" {
		contextBlock = noContextPlaceholder
	}

	var b strings.Builder
	b.WriteString("### FAQ prioritaires\n")
	b.WriteString(faqBlock)
	b.WriteString("\n\n### Contexte général\n")
	b.WriteString(contextBlock)
	b.WriteString("\n\n### Question\n")
	b.WriteString(question)
	b.WriteString("\n\n### Instructions\n")
	b.WriteString("1. Si une FAQ répond à la question, privilégie sa réponse.\n")
	b.WriteString("2. Sinon, appuie-toi uniquement sur le contexte général fourni.\n")
	b.WriteString(fmt.Sprintf("3. Si les informations sont insuffisantes, réponds exactement : « %s »\n", FallbackAnswer))
	b.WriteString("4. Termine ta réponse par une suggestion d'action concrète.")
	return b.String()
}
