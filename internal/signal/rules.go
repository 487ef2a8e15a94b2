package signal

// topicRule maps a conjunction of required keywords to a topic label.
// Rules are evaluated in order; the first rule whose keywords all appear
// in the text wins. Most specific rules come first.
type topicRule struct {
	Keywords []string
	Topic    string
}

var topicRules = []topicRule{
	// Specific multi-keyword conjunctions.
	{Keywords: []string{"animal", "vision"}, Topic: "Animal Biology & Vision"},
	{Keywords: []string{"cat", "vision"}, Topic: "Animal Biology & Vision"},
	{Keywords: []string{"machine", "learning"}, Topic: "Machine Learning"},
	{Keywords: []string{"neural", "network"}, Topic: "Machine Learning"},
	{Keywords: []string{"react", "native"}, Topic: "Mobile Development"},
	{Keywords: []string{"unit", "test"}, Topic: "Software Testing"},
	{Keywords: []string{"data", "pipeline"}, Topic: "Data Engineering"},
	{Keywords: []string{"business", "plan"}, Topic: "Business Planning"},
	{Keywords: []string{"marketing", "strategy"}, Topic: "Marketing Strategy"},

	// Broad domain categories.
	{Keywords: []string{"react"}, Topic: "React Development"},
	{Keywords: []string{"swift"}, Topic: "Swift Development"},
	{Keywords: []string{"python"}, Topic: "Python Development"},
	{Keywords: []string{"javascript"}, Topic: "JavaScript Development"},
	{Keywords: []string{"typescript"}, Topic: "TypeScript Development"},
	{Keywords: []string{"database"}, Topic: "Database Design"},
	{Keywords: []string{"api"}, Topic: "API Development"},
	{Keywords: []string{"design"}, Topic: "Design"},
	{Keywords: []string{"recipe"}, Topic: "Cooking & Recipes"},
	{Keywords: []string{"travel"}, Topic: "Travel Planning"},
	{Keywords: []string{"budget"}, Topic: "Personal Finance"},
	{Keywords: []string{"workout"}, Topic: "Health & Fitness"},
	{Keywords: []string{"essay"}, Topic: "Writing"},
	{Keywords: []string{"research"}, Topic: "Research"},
}

// Fallback topic labels when no rule matches.
const (
	TopicDetailed = "Detailed Discussion"
	TopicGeneral  = "General Chat"
	// TopicGeneralAlt is the fallback used for standalone documents rather
	// than conversations.
	TopicGeneralAlt = "General Discussion"
)

// domainKeywords is the fixed vocabulary that keyword extraction intersects
// tokens against.
var domainKeywords = map[string]struct{}{
	"react": {}, "swift": {}, "python": {}, "javascript": {}, "typescript": {},
	"golang": {}, "rust": {}, "kotlin": {}, "database": {}, "sqlite": {},
	"postgres": {}, "schema": {}, "query": {}, "component": {}, "function": {},
	"module": {}, "package": {}, "algorithm": {}, "design": {}, "layout": {},
	"interface": {}, "architecture": {}, "deploy": {}, "deployment": {},
	"docker": {}, "server": {}, "client": {}, "frontend": {}, "backend": {},
	"testing": {}, "debug": {}, "debugging": {}, "refactor": {}, "pipeline": {},
	"machine": {}, "learning": {}, "model": {}, "neural": {}, "network": {},
	"training": {}, "dataset": {}, "vision": {}, "animal": {}, "biology": {},
	"research": {}, "analysis": {}, "report": {}, "summary": {}, "draft": {},
	"essay": {}, "article": {}, "chapter": {}, "novel": {}, "recipe": {},
	"ingredients": {}, "travel": {}, "itinerary": {}, "budget": {},
	"finance": {}, "invoice": {}, "marketing": {}, "strategy": {},
	"business": {}, "project": {}, "planning": {}, "workout": {},
	"fitness": {}, "nutrition": {},
}

// technicalTerms is the fixed list whose substring occurrences are summed to
// produce the technical-term count. Occurrences are counted, not distinct
// terms.
var technicalTerms = []string{
	"function", "variable", "component", "algorithm", "database", "query",
	"api", "endpoint", "refactor", "compile", "runtime", "exception",
	"async", "thread", "schema", "framework", "dependency", "repository",
	"deploy", "container",
}
