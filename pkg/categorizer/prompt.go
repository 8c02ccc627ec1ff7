package categorizer

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// DefaultPromptTemplate is the instruction prompt. It is rendered with a
// CategorizationRequest; .Labels lists the allowed category labels.
const DefaultPromptTemplate = `You are an expert programmer tasked with categorizing software projects based on their name, description, technologies used, URL, and README content.

Assign **one or more** relevant categories from the list: {{.Labels}}.

**Category Definitions & Prioritization:**
*   **Robotics:** **Highest priority.** Projects involving physical robots, controlling hardware (like Raspberry Pi, Arduino), sensor integration, IoT devices with a significant physical component or direct hardware interaction. Computer vision specifically for robotic control, navigation or interaction. If electronics/hardware control is the primary goal, categorize as Robotics. It may also fit into AI or Machine Learning if the algorithms are complex. Keywords: robotics, ros, raspberry pi, arduino, iot (hardware focus), embedded systems, sensors, actuators, motor control, opencv (for robotics), yolo (for robotics), edge ai (for hardware), electronics.
*   **AI:** Projects focused on broader artificial intelligence concepts, Large Language Models (LLMs), Retrieval-Augmented Generation (RAG), generative models, intelligent agents, reasoning systems, or AI API usage, not primarily focused on hardware control. Includes complex chatbots, virtual educators, fine-tuning LLMs, applied reinforcement learning. Keywords: llm, rag, gpt, openai, generative ai, langchain, langgraph, chatbot (complex), ai assistant (if not primarily hardware), fine-tuning, reinforcement learning (applied), agentic systems, reasoning.
*   **Machine Learning:** Projects focused on predictive modeling, supervised/unsupervised learning, classical ML algorithms, deep learning model training (CNNs, RNNs) unless the main application is Robotics or a broad AI system. Keywords: tensorflow, pytorch, scikit-learn, regression, classification, clustering, cnn, rnn, lstm, random forest, gradient boosting, support vector machine, model training, evaluation metrics.
*   **Data Analysis:** Projects focused on data exploration, cleaning, transformation, statistical analysis, visualization, and reporting. Keywords: pandas, numpy, matplotlib, seaborn, statistics, data visualization, etl, data cleaning, analytics, reporting.
*   **Web/Cloud:** Projects involving web development (frontend/backend), APIs, cloud infrastructure (AWS, GCP, Azure), deployment pipelines, containerization, serverless functions, databases used in web contexts, web scraping. Keywords: react, nextjs, node, express, django, flask, aws, gcp, azure, docker, kubernetes, jenkins, firebase, mongodb, sql, api, http, cloud, web scraping.
*   **Other:** Projects that don't clearly fit into the above categories, or general utilities/libraries.

**Project Details:**
Name: {{.Name}}
Description: {{if .Description}}{{deref .Description}}{{else}}N/A{{end}}
Technologies: {{if .Technologies}}{{join .Technologies ", "}}{{else}}N/A{{end}}
URL: {{if .Link}}{{deref .Link}}{{else}}N/A{{end}}
{{if .DocumentationExcerpt}}
**README Content (excerpt):**
` + "```" + `
{{deref .DocumentationExcerpt}}
` + "```" + `
{{else}}
README Content: N/A
{{end}}
Analyze ALL the details provided, especially the README content and description.
The project MUST have at least one category.
Prioritize **Robotics** if significant hardware interaction or control is involved. A project that uses AI/ML for robotics is **Robotics** and possibly also **AI** or **Machine Learning**.
If a project involves fine-tuning, reinforcement learning, or AI APIs, categorize it as **AI**.
If a project uses standard ML models for prediction/classification, categorize it as **Machine Learning**.
If data processing/visualization is the main goal, categorize it as **Data Analysis**.

**Important:** Do NOT categorize as "Featured".

Respond with JSON only, in the form {"categories": ["Robotics", "AI"]}.`

var promptFuncs = template.FuncMap{
	"join": strings.Join,
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}

// Prompt renders categorization requests into model prompts.
type Prompt struct {
	tmpl *template.Template
}

// NewPrompt parses a prompt template. An empty text selects DefaultPromptTemplate.
func NewPrompt(text string) (*Prompt, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultPromptTemplate
	}
	tmpl, err := template.New("categorize").Funcs(promptFuncs).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse categorization prompt: %w", err)
	}
	return &Prompt{tmpl: tmpl}, nil
}

// MustDefaultPrompt returns the built-in prompt.
func MustDefaultPrompt() *Prompt {
	p, err := NewPrompt("")
	if err != nil {
		panic(err)
	}
	return p
}

type promptData struct {
	CategorizationRequest
	Labels string
}

// Render produces the prompt text for req.
func (p *Prompt) Render(req CategorizationRequest) (string, error) {
	var buf bytes.Buffer
	data := promptData{CategorizationRequest: req, Labels: allowedLabels()}
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render categorization prompt: %w", err)
	}
	return buf.String(), nil
}
