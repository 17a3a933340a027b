package domain

import (
	"fmt"
	"strings"
)

// ChatPersona is the fixed system instruction both providers chat with.
const ChatPersona = `You are EXPERT, a friendly assistant for AI image creation.
You help users shape ideas into strong image prompts, explain styles, lighting,
camera angles and composition, and suggest edits for existing pictures.
Answer concisely and use the language the user writes in.`

// EnhanceFallback is returned when a model answers without the expected field.
const EnhanceFallback = "Could not enhance the prompt: the model returned no text."

// ChatFallback is returned by non-streamed chat when the reply is empty.
const ChatFallback = "The model returned no reply."

// EnhancePrompt renders the meta-prompt that turns structured form fields
// into a single comma-separated descriptor list.
func EnhancePrompt(s PromptSettings) string {
	var b strings.Builder
	b.WriteString("You are an expert prompt engineer for AI image generation.\n")
	b.WriteString("Create a single, highly-detailed, professional, and artistically rich prompt in English.\n")
	b.WriteString("The final output must be a comma-separated list of keywords, concepts, and stylistic descriptors.\n")
	b.WriteString("Do not add any conversational text or explanations.\n")
	b.WriteString("Honor the negative prompt by steering toward its opposites; never write it as an exclusion list.\n\n")
	b.WriteString("---\nUSER'S REQUEST DETAILS:\n")
	fmt.Fprintf(&b, "- Core Idea: %s\n", s.Idea)
	fmt.Fprintf(&b, "- Style: %s\n", s.Style)
	fmt.Fprintf(&b, "- Lighting: %s\n", s.Lighting)
	fmt.Fprintf(&b, "- Camera Angle: %s\n", s.Angle)
	fmt.Fprintf(&b, "- Mood: %s\n", s.Mood)
	fmt.Fprintf(&b, "- Negative Prompt (avoid these): %s\n", s.NegativePrompt)
	b.WriteString("---\nGenerate the prompt.\n")
	return b.String()
}

// DescribeImagePrompt asks a multimodal model to reverse an image into a prompt.
const DescribeImagePrompt = `You are an expert prompt engineer for AI image generation. Analyze this image and create a single, highly-detailed, professional, and artistically rich prompt in English that describes it. The final output must be a comma-separated list of keywords, concepts, and stylistic descriptors. Do not add any conversational text or explanations. Focus on visual details: objects, composition, colors, lighting, style, and mood.`

// RefineEditPrompt turns a free-form (possibly non-English) edit request
// into one direct English instruction for the image editing model.
func RefineEditPrompt(userText string) string {
	return fmt.Sprintf(`You are an expert prompt engineer for an AI image editing model.
Take the user's request below, which may be written in any language, and rewrite it as one direct, detailed instruction in English describing exactly how the image must be changed.
Expand on the idea with concrete stylistic details where useful, but keep it a single cohesive instruction.
Output only the instruction. No preamble, no quotes, no explanations.

---
USER'S REQUEST: %q
---`, userText)
}
