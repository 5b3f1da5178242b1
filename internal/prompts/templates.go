// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package prompts

// Template bodies for every generation stage. Placeholders use either
// ${NAME} or {{NAME}} form; Render substitutes both.

// outlineTemplate produces the detailed SEO blog outline used to seed the
// body stage for the medium/hard/high/master modes.
const outlineTemplate = `Generate a **detailed SEO blog outline** for a recipe titled:
"${USER_INPUT_RECIPE_TITLE}"
Focus Keyword: "${USER_INPUT_FOCUS_KEYWORD}"

Follow this EXACT structure:

### **1. METADATA**
- **Meta Title**: [60 characters, includes focus keyword]
- **Meta Description**: [160 characters, includes focus keyword and emotional hook]

### **2. KEYWORD STRATEGY**
- **Primary Keywords**:
  - "${USER_INPUT_FOCUS_KEYWORD}"
  - [2 more variations]
- **LSI/Long-Tail Keywords**:
  - [4+ semantically related phrases]

### **3. SEO SUGGESTIONS**
- **Title Suggestions**: exactly two compelling, SEO-friendly titles, each on its own line.
- **Meta Description Suggestions**: exactly two concise descriptions (max 160 characters each), each on its own line.
- **SEO Keywords**: 5-10 relevant keywords as a comma-separated list.

### **4. BLOG OUTLINE (STRUCTURE)**
**H2: [Catchy Introduction Title]**
- Sensory hook (smell/taste memory)
- Why this recipe matters

**H2: [Cultural Context Story]**
- Historical significance

**H2: Ingredients: [Creative Section Title]**
- Table with 3 columns:
  | Ingredient | Special Notes | Substitutions |

**H2: Step-by-Step: [Process Title]**
- H3: [Detailed substep 1]
- H3: [Detailed substep 2]
- Chef pro tips

**H2: FAQ Section**
- 5 questions with conversational answers

**H2: Storage & Make-Ahead**
- Time-saving tricks

---
**Output Requirements**:
- Use bullet points for all sections
- Never write full paragraphs - outline only`

// bodyMediumTemplate expands the outline into a long-form article (medium mode).
const bodyMediumTemplate = `You are a professional food blogger and expert SEO writer.

Your task is to write a fully humanized, SEO-optimized, long-form recipe blog post based on the outline provided below. The final article should be **4000+ words**, emotionally engaging, informative, and written in valid HTML for direct use in a blog post body.

### INPUTS:
- Focus Keyword: ${FOCUS_KEYWORD}
- Blog Outline: ${OUTLINE}

### Output Format:
- **Generate only clean, valid HTML suitable for the body of a blog post.**
- Use standard HTML tags for formatting: H1-H3 for headings, P for paragraphs, UL/OL with LI for lists.
- DO NOT use Markdown, symbols (like #, *, -), or include HTML document/head/body tags.
- Begin with a single H1 title that includes the focus keyword.
- Use H2 and H3 to structure the article based on the outline.

### Writing Guidelines:
- Write in a warm, friendly, storytelling tone like a passionate home cook sharing a beloved recipe.
- Use sensory-rich descriptions (colors, smells, textures).
- Naturally embed the focus keyword (${FOCUS_KEYWORD}) throughout the article.
- Include a minimum of 5 FAQ entries in conversational Q&A format.`

// bodyHardTemplate is the standalone single-shot article prompt (hard mode).
const bodyHardTemplate = `Write a 3000+ word, SEO-optimized, human-sounding recipe blog post in HTML format, about:
[${USER_INPUT_RECIPE_TITLE}]

Focus Keyword: ${FOCUS_KEYWORD}

Tone of Voice:
Imagine you're spilling kitchen secrets to your best friend after a cooking disaster. Your voice should be witty, warm, and wildly passionate; unfiltered, but deeply helpful. Use playful confessions, mistake redemptions, and relatable storytelling, and infuse sensory overload (smells, textures, sounds of the kitchen).

Writing Style Guidelines:
- Use headers that hook ("The Step Where Everyone Panics")
- Embrace quirky metaphors and kitchen kinship
- Always offer pro tips disguised as confessions
- Celebrate imperfection: burns, cracks, and substitutions are just "flavor stories"

Output only valid HTML for the body of a blog post, starting with an H1 containing the focus keyword. No Markdown, no html/head/body tags.`

// bodyMasterTemplate expands the outline with maximum humanization (master mode).
const bodyMasterTemplate = `You are a professional food blogger and expert SEO writer.

Using the following outline, generate a 4000+ word, **fully humanized**, highly engaging, SEO-optimized recipe blog post.

### Outline to follow:
${OUTLINE}

### Output Format Instructions:
- **Generate ONLY valid HTML content suitable for the body of an HTML document.**
- Use standard HTML tags for structure and formatting (heading tags H1-H3, paragraph tags, list tags, emphasis tags, table tags if needed).
- **Do NOT use any Markdown formatting.**
- Structure the output logically as a blog post, starting with the main title as an H1 heading.
- Ensure all HTML tags are properly nested and closed.

### Writing Instructions:
- Write in a warm, friendly, and vivid tone like a passionate home cook or food storyteller.
- Naturally embed the focus keyword (${FOCUS_KEYWORD}) and long-tail variations throughout.
- Fully develop each section in the outline into rich, standalone content.
- Include at least 5 FAQ entries with conversational answers.`

// bodyHighTemplate is the personality-driven expansion prompt (high mode).
const bodyHighTemplate = `You are a professional food blogger with a vibrant, human, and storytelling voice, acting as an expert SEO writer.

Your task is to take the provided **Blog Outline** and **Focus Keyword** and expand them into a **3000+ word**, SEO-optimized, personality-driven recipe article in **valid HTML format** (no markdown).

### Input Data
- **Focus Keyword**: ${FOCUS_KEYWORD}
- **Blog Outline**:
${OUTLINE}

### Writing Rules
- Start with a sensory-rich hook: smells, textures, flavors, or memories triggered by the recipe.
- Use first-person storytelling: nostalgic moments, cultural ties, cooking quirks.
- Let imperfection shine through: sticky dough, flour explosions, the joy of licking the spoon.
- End with a warm, emotional sign-off that invites connection.

### Output Format
- Output ONLY valid, clean HTML content meant for the body of a blog post.
- Use <h1> for the main title, <h2>/<h3> for sections, <p>, <ul>/<ol>/<li>, <strong>/<em>, <table> as needed.
- Expand every section from the provided outline into full paragraphs. Do not just output the outline structure.`

// recipePlanTemplate is the first call of the two-stage recipe flow: a full
// SEO content plan including the labeled SEO suggestion sections the
// extractor consumes.
const recipePlanTemplate = `You are an expert AI Recipe Content Planner and SEO strategist with deep knowledge of food blogging best practices, SEO, Google's Helpful Content guidelines, and the E-E-A-T framework.

Input Parameters:
Recipe Name: ${USER_INPUT_RECIPE_TITLE}
Focus Keyword: ${USER_INPUT_FOCUS_KEYWORD}
Target Word Count: 2500+

Instructions:

Search Intent Analysis:
- State the primary search intent and summarize in 2-3 sentences what users are specifically looking for.

Keyword Research & Clustering:
- Generate 20-30 relevant keywords grouped into clusters: Primary, Secondary, Long-Tail, LSI/Contextual.
- Present this as a Markdown table with columns: Cluster Name | Keywords.

SEO Suggestions:
- Title Suggestions: generate exactly two compelling, SEO-friendly title suggestions. Output only the titles, each on a new line, with no extra text, numbering, or quotes.
- Meta Description Suggestions: generate exactly two concise, SEO-friendly meta descriptions (max 160 characters each). Output only the descriptions, each on a new line.
- SEO Keywords: extract 5-10 most relevant SEO keywords. Output as a comma-separated list with no extra text.
- External Links: suggest two authoritative recipe URLs relevant to ${USER_INPUT_RECIPE_TITLE}, one per line, prefixed "External Link:".

Detailed Outline Creation:
- Produce a logical H2/H3-based outline for the recipe article.
- You MUST include dedicated H2 sections for a Detailed Ingredients List and Step-by-Step Cooking Instructions.`

// recipeExpandTemplate is the second call of the recipe flow: turn the plan
// into the finished HTML article.
const recipeExpandTemplate = `You are an expert AI content writer specializing in SEO-optimized, people-first recipe articles in clean HTML.
Your sole and immediate task is to generate the complete, long-form article in clean **HTML body format**, based **strictly** on the detailed plan provided after the marker below.

Humanizing requirements:
- Natural speech patterns: occasional fragments, contractions, rhetorical questions, conversational asides.
- Personal kitchen stories: brief, specific memories or mishaps.
- Authentic tips that show real experience.
- Strictly avoid marketing superlatives ("ultimate", "best ever") and SEO-obvious phrasing.

Execution:
1. Treat all text after the marker as the complete plan (keyword clusters, title tag, detailed H2/H3 outline, FAQ content).
2. Start directly with an <h1> tag containing the Title Tag from the plan.
3. Expand in detail on each H2 and H3 point from the outline; ingredients as <ul>/<li>, instructions as <ol>/<li>.
4. Weave the plan's keywords naturally through the body text.
5. Output only the HTML body content. No Markdown, no html/head/body tags.

${FLOW_1_OUTPUT}`

// linkInsertionTemplate asks the model to place exactly two external links
// into an existing article without rewriting it.
const linkInsertionTemplate = `You are a precise, SEO-aware AI content enhancer. Your task is to automatically insert external links into a completed recipe article.

### Input:
- Full article content: {{FLOW2_ARTICLE_CONTENT}}
- Focus Keyword: {{USER_INPUT_FOCUS_KEYWORD}}

### Authorized Recipe Websites ONLY:
Use ONLY these websites for external links - do not use any other domains:
- https://www.allrecipes.com
- https://www.foodnetwork.com
- https://www.seriouseats.com
- https://www.bonappetit.com
- https://www.bbcgoodfood.com
- https://www.simplyrecipes.com
- https://www.epicurious.com
- https://www.thekitchn.com
- https://sallysbakingaddiction.com
- https://minimalistbaker.com

### Your goal:
Add exactly TWO external links by finding existing instances of the focus keyword in the article text, making ONLY those existing keywords bold, and linking them. Use EXACTLY this HTML format for each link:
<a href="RECIPE_URL" target="_blank"><strong>KEYWORD</strong></a>

CRITICAL:
- NEVER rewrite or modify the article - ONLY add links
- Insert EXACTLY TWO links total - no more, no less
- Place the first link within the first 2-3 paragraphs and the second around the middle of the article
- Return the ORIGINAL article with ONLY the links added - nothing else should change`

// imagePromptsTemplate asks the model for per-slot image prompts and alt
// texts as JSON.
const imagePromptsTemplate = `You are an AI working in the background to generate image prompts and alt text for a recipe blog.

Read the recipe article below carefully and return 6 items as JSON:

1. Intro Image Prompt: an appetizing, professional food photography style image of the finished dish based on the recipe title and introduction.
2. Ingredients Image Prompt: an artistic arrangement of the main ingredients mentioned in the recipe.
3. Final Dish Image Prompt: a close-up, detailed image of the completed dish as it would be served.
4. Intro Image Alt Text: concise, SEO-optimized alt text (max 125 characters) including the focus keyword.
5. Ingredients Image Alt Text: concise alt text (max 125 characters) describing the visual arrangement of ingredients.
6. Final Dish Image Alt Text: concise alt text (max 125 characters) focused on what someone would see in the photo.

Each prompt and alt text should be HIGHLY SPECIFIC to this exact recipe: include precise ingredients, cooking methods, and presentation details from the article. Do NOT generate generic food photography prompts.

Return only this JSON format:
{
  "intro_image_prompt": "...",
  "ingredients_image_prompt": "...",
  "final_recipe_image_prompt": "...",
  "intro_image_alt_text": "...",
  "ingredients_image_alt_text": "...",
  "final_recipe_image_alt_text": "..."
}

Article:
"""{{FULL_RECIPE_ARTICLE}}"""`
