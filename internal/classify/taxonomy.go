// Package classify assigns books to a two-level topic taxonomy.
package classify

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Subcategory is a leaf of the taxonomy with its keyword phrases.
type Subcategory struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Category is a top-level taxonomy entry.
type Category struct {
	Name          string        `yaml:"name"`
	Subcategories []Subcategory `yaml:"subcategories"`
}

// Taxonomy is an ordered category list. Order matters: rule-tier ties are
// broken by first occurrence, so iteration must be deterministic.
type Taxonomy []Category

// Labels flattens the taxonomy into "Category / Subcategory" label strings
// in taxonomy order.
func (t Taxonomy) Labels() []string {
	var labels []string
	for _, cat := range t {
		for _, sub := range cat.Subcategories {
			labels = append(labels, cat.Name+" / "+sub.Name)
		}
	}
	return labels
}

// LoadTaxonomy reads a taxonomy override from a YAML file.
func LoadTaxonomy(path string) (Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}
	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}
	if len(t) == 0 {
		return nil, fmt.Errorf("taxonomy is empty")
	}
	return t, nil
}

// DefaultTaxonomy returns the built-in category rules.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		{Name: "Programming", Subcategories: []Subcategory{
			{Name: "Python", Keywords: []string{"python", "django", "flask", "pandas", "numpy", "pytorch"}},
			{Name: "JavaScript", Keywords: []string{"javascript", "typescript", "react", "vue", "angular", "node.js", "nodejs"}},
			{Name: "Java", Keywords: []string{"java ", " java", "spring", "maven", "gradle", "jvm"}},
			{Name: "C/C++", Keywords: []string{"c programming", "c++", "cpp", "stl ", "cmake", "embedded c"}},
			{Name: "Rust", Keywords: []string{"rust programming", "rustlang", "cargo ", "tokio"}},
			{Name: "Go", Keywords: []string{"golang", "go programming"}},
			{Name: "Web Development", Keywords: []string{"html", "css", "web development", "frontend", "backend", "fullstack"}},
			{Name: "Mobile", Keywords: []string{"android", "ios development", "swift", "kotlin", "flutter", "react native"}},
			{Name: "DevOps", Keywords: []string{"docker", "kubernetes", "ci/cd", "devops", "terraform", "ansible"}},
			{Name: "General", Keywords: []string{"programming", "software engineering", "algorithms", "data structures", "design patterns", "clean code"}},
		}},
		{Name: "Data Science", Subcategories: []Subcategory{
			{Name: "Machine Learning", Keywords: []string{"machine learning", "deep learning", "neural network", "tensorflow", "keras"}},
			{Name: "Data Analysis", Keywords: []string{"data analysis", "data visualization", "matplotlib", "tableau"}},
			{Name: "Statistics", Keywords: []string{"statistics", "probability", "bayesian", "regression"}},
			{Name: "NLP", Keywords: []string{"natural language processing", "nlp", "text mining", "sentiment analysis"}},
			{Name: "Computer Vision", Keywords: []string{"computer vision", "image processing", "opencv"}},
		}},
		{Name: "Artificial Intelligence", Subcategories: []Subcategory{
			{Name: "General AI", Keywords: []string{"artificial intelligence", " ai ", "intelligent systems"}},
			{Name: "Deep Learning", Keywords: []string{"deep learning", "convolutional", "recurrent", "transformer", "attention mechanism"}},
			{Name: "Reinforcement Learning", Keywords: []string{"reinforcement learning", "q-learning", "policy gradient"}},
			{Name: "LLM", Keywords: []string{"large language model", "llm", "gpt", "chatgpt", "prompt engineering"}},
		}},
		{Name: "Database", Subcategories: []Subcategory{
			{Name: "SQL", Keywords: []string{"sql", "mysql", "postgresql", "sqlite", "oracle database"}},
			{Name: "NoSQL", Keywords: []string{"nosql", "mongodb", "redis", "cassandra", "elasticsearch"}},
			{Name: "Data Engineering", Keywords: []string{"data warehouse", "etl", "data pipeline", "spark", "hadoop"}},
		}},
		{Name: "System & Network", Subcategories: []Subcategory{
			{Name: "Operating Systems", Keywords: []string{"operating system", "linux", "unix", "windows server"}},
			{Name: "Networking", Keywords: []string{"networking", "tcp/ip", "http", "dns", "network protocol"}},
			{Name: "Security", Keywords: []string{"cybersecurity", "security", "encryption", "penetration testing", "ethical hacking"}},
			{Name: "Cloud", Keywords: []string{"cloud computing", "aws", "azure", "gcp", "google cloud"}},
		}},
		{Name: "Mathematics", Subcategories: []Subcategory{
			{Name: "Linear Algebra", Keywords: []string{"linear algebra", "matrix", "vector space", "eigenvalue"}},
			{Name: "Calculus", Keywords: []string{"calculus", "differential", "integral"}},
			{Name: "Discrete Mathematics", Keywords: []string{"discrete math", "graph theory", "combinatorics"}},
			{Name: "Optimization", Keywords: []string{"optimization", "linear programming", "convex"}},
		}},
		{Name: "Science", Subcategories: []Subcategory{
			{Name: "Physics", Keywords: []string{"physics", "quantum", "thermodynamics", "mechanics"}},
			{Name: "Chemistry", Keywords: []string{"chemistry", "organic chemistry", "biochemistry"}},
			{Name: "Biology", Keywords: []string{"biology", "genetics", "molecular biology", "neuroscience"}},
		}},
		{Name: "Business", Subcategories: []Subcategory{
			{Name: "Management", Keywords: []string{"management", "leadership", "organizational"}},
			{Name: "Finance", Keywords: []string{"finance", "investment", "accounting", "trading"}},
			{Name: "Marketing", Keywords: []string{"marketing", "branding", "advertising", "seo"}},
			{Name: "Entrepreneurship", Keywords: []string{"startup", "entrepreneurship", "business plan"}},
		}},
		{Name: "Literature", Subcategories: []Subcategory{
			{Name: "Fiction", Keywords: []string{"novel", "fiction", "short stories"}},
			{Name: "Non-Fiction", Keywords: []string{"biography", "memoir", "essay"}},
			{Name: "Philosophy", Keywords: []string{"philosophy", "ethics", "logic", "metaphysics"}},
			{Name: "History", Keywords: []string{"history", "civilization", "ancient", "medieval"}},
		}},
	}
}
