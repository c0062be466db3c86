package search

import (
	"sort"
	"strings"
)

// Engine sets per category. Independent indexes (mojeek, crowdview) are
// mixed in for diversity.
const (
	EnginesGeneral   = "google,duckduckgo,brave,mojeek"
	EnginesAcademic  = "google,arxiv,google scholar,wikipedia,wikidata"
	EnginesTech      = "google,github,stackoverflow,duckduckgo,lobste.rs,mdn"
	EnginesProduct   = "google,duckduckgo,brave,mojeek,crowdview,google play apps,apple app store"
	EnginesReference = "google,wikipedia,wikidata,duckduckgo"
	EnginesNews      = "google,google news,duckduckgo,brave,hackernews,lobste.rs"
	EnginesAI        = "google,github,huggingface,arxiv,duckduckgo"
)

// Category pairs a keyword list (EN + RU) with the engine set to use
// when the query matches it. Order matters: the first category with the
// top score wins ties.
type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Engines  string   `yaml:"engines"`
}

func DefaultCategories() []Category {
	return []Category{
		{
			Name: "academic",
			Keywords: []string{
				"research", "paper", "study", "arxiv", "journal", "thesis", "citation",
				"научн", "исследован", "статья", "диссертац",
				"algorithm", "neural network", "transformer", "llm architecture",
				"machine learning theory", "deep learning",
			},
			Engines: EnginesAcademic,
		},
		{
			Name: "tech",
			Keywords: []string{
				"github", "stackoverflow", "programming", "code", "library", "framework",
				"npm", "pip", "package", "api", "sdk", "cli", "docker",
				"python", "javascript", "typescript", "swift", "kotlin", "rust", "go",
				"swiftui", "react", "nextjs", "fastapi", "django",
				"программиров", "код", "библиотек", "фреймворк",
			},
			Engines: EnginesTech,
		},
		{
			Name: "product",
			Keywords: []string{
				"app", "alternative", "competitor", "pricing", "review", "vs",
				"saas", "startup", "product", "market", "landing",
				"приложени", "аналог", "конкурент", "цена", "отзыв",
				"best", "top", "comparison", "tools for",
				"app store", "play store", "ios", "android",
				"solopreneur", "indiehacker", "bootstrapped", "mvp",
			},
			Engines: EnginesProduct,
		},
		{
			Name: "reference",
			Keywords: []string{
				"what is", "definition", "meaning", "wikipedia", "history of",
				"biography", "facts", "population", "statistics",
				"что такое", "определени", "значени", "биография", "история",
				"факт", "данные", "население", "статистик",
			},
			Engines: EnginesReference,
		},
		{
			Name: "news",
			Keywords: []string{
				"news", "latest", "update", "announced", "launched", "released",
				"trend", "2025", "2026",
				"новост", "последн", "обновлен", "запуст", "тренд",
			},
			Engines: EnginesNews,
		},
		{
			Name: "ai",
			Keywords: []string{
				"huggingface", "model", "llm", "gpt", "claude", "gemini", "ollama",
				"fine-tune", "finetune", "embedding", "rag", "vector",
				"ai agent", "ai tool", "langchain", "llamaindex",
				"нейросет", "модел", "ии агент",
			},
			Engines: EnginesAI,
		},
	}
}

// Selector routes queries to engine sets by scoring category keywords.
type Selector struct {
	categories []Category
}

func NewSelector(categories []Category) *Selector {
	if len(categories) == 0 {
		categories = DefaultCategories()
	}
	return &Selector{categories: categories}
}

// SmartEngines counts how many of each category's keywords appear in the
// lowercased query and returns the top category's engine set. A tie
// keeps the earlier category; no hits at all falls back to the general
// set.
func (s *Selector) SmartEngines(query string) string {
	q := strings.ToLower(query)

	bestScore := 0
	bestEngines := ""
	for _, category := range s.categories {
		score := 0
		for _, keyword := range category.Keywords {
			if strings.Contains(q, keyword) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestEngines = category.Engines
		}
	}

	if bestScore == 0 {
		return EnginesGeneral
	}
	return bestEngines
}

// Aggregator categories per engine. An engine only returns results when
// the probe carries a category it is registered under.
var engineCategories = map[string]string{
	"google":           "general",
	"duckduckgo":       "general",
	"brave":            "general",
	"mojeek":           "general",
	"stract":           "general",
	"marginalia":       "general",
	"crowdview":        "general",
	"wikipedia":        "general",
	"wikidata":         "general",
	"google news":      "news",
	"reddit":           "social media",
	"reddit api":       "social media",
	"hackernews":       "social media",
	"lobste.rs":        "it",
	"github":           "it",
	"stackoverflow":    "it",
	"huggingface":      "it",
	"huggingface datasets": "it",
	"mdn":              "it",
	"arxiv":            "science",
	"google scholar":   "science",
	"youtube":          "videos",
	"google play apps": "general",
	"apple app store":  "general",
	"npm":              "it",
	"pypi":             "it",
	"crates.io":        "it",
	"bitbucket":        "it",
	"codeberg":         "it",
	"gitlab":           "it",
}

// CategoriesFor returns the sorted, comma-joined categories covering the
// given engine list. Unknown engines contribute nothing; when no engine
// is known the result is "general".
func CategoriesFor(engineList string) string {
	set := map[string]bool{}
	for _, engine := range strings.Split(engineList, ",") {
		if category, ok := engineCategories[strings.TrimSpace(engine)]; ok {
			set[category] = true
		}
	}
	if len(set) == 0 {
		return "general"
	}

	categories := make([]string, 0, len(set))
	for category := range set {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return strings.Join(categories, ",")
}
