package generator

import (
	"fmt"
	"strings"

	"blogflow/ledger"
)

const systemPrompt = "You are a professional blog author. Output exactly what is asked for, with no preamble or commentary."

// DefaultBasePrompt is used when no prompt file is configured. Real runs are
// expected to supply their own base instructions via llm.prompt_path.
const DefaultBasePrompt = `Write an educational, high-trust blog post for a professional audience.
Pick a specific, niche topic that is clearly distinct from every previous post summary provided below.
Reference a previous post with a Markdown link only when it genuinely adds value for the reader.`

const bodyOutputFormat = `Generate the full blog post content based on the instructions and context provided above%s.

Output format: only the blog post body, formatted directly as GitHub Flavored Markdown.
Do not include preamble, or any text other than the Markdown content itself.`

const metadataPromptTemplate = `Analyze the following blog post content:

%s

(Content truncated if necessary.)

Based only on the provided content, generate a JSON object with exactly these fields:
- "title": a compelling and relevant title for the blog post (string).
- "excerpt_page": a concise summary suitable for a blog listing page, packed with the post's key facts so future posts can avoid repeating them. Max 160 characters (string).
- "excerpt_featured": a shorter, punchier excerpt suitable for a featured section. Max 120 characters (string).
- "reading_time": estimated reading time in minutes (integer).
- "image_description": a 1-2 sentence description of an ideal featured image for this post, suitable for prompting an image generation model, with absolutely no text or letters visible (string).

Your response must be only the valid JSON object, with no other text or explanation.`

const socialPromptTemplate = `Analyze the following blog post content snippet:
--- START BLOG CONTENT SNIPPET ---
%s
--- END BLOG CONTENT SNIPPET ---

Based only on this content, write a condensed promotional version roughly 100 words shorter, with slightly different wording.
Introduce it by mentioning that a new article is available, and include a clear call to action pointing readers to the full article at this exact URL: %s
The original post referenced these related articles:
%s
If relevant and space permits, you may briefly mention one of them and include its full raw URL.
Output only the plain text of the promotional post. All URLs must be full raw URLs; do not use Markdown link formatting.`

// formatPriorPosts renders the ledger as prompt steering context. An empty
// ledger renders an explicit marker rather than nothing.
func formatPriorPosts(prior []ledger.Entry) string {
	if len(prior) == 0 {
		return "No previous posts to reference."
	}
	var sb strings.Builder
	sb.WriteString("Previous posts (the main topic of this new post must be distinct from these; link only where genuinely relevant):\n")
	for _, p := range prior {
		fmt.Fprintf(&sb, "  - Summary: %s (URL: %s)\n", p.Summary, p.URL)
	}
	return sb.String()
}

func bodyPrompt(basePrompt string, prior []ledger.Entry, hasFiles bool) string {
	filesNote := ""
	if hasFiles {
		filesNote = " AND in the attached files"
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s",
		strings.TrimSpace(basePrompt),
		formatPriorPosts(prior),
		fmt.Sprintf(bodyOutputFormat, filesNote))
}

func metadataPrompt(snippet string) string {
	return fmt.Sprintf(metadataPromptTemplate, snippet)
}

func socialPrompt(snippet, publishedURL string, interlinks []string) string {
	formatted := "None provided."
	if len(interlinks) > 0 {
		var sb strings.Builder
		for i, link := range interlinks {
			if i > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString("- ")
			sb.WriteString(link)
		}
		formatted = sb.String()
	}
	return fmt.Sprintf(socialPromptTemplate, snippet, publishedURL, formatted)
}
