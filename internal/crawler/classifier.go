package crawler

// DefaultTargetCategory is the catalog type harvested when none is configured.
const DefaultTargetCategory = "boardgame"

// CategoryClassifier matches entities whose category equals Target exactly.
type CategoryClassifier struct {
	Target string
}

// NewCategoryClassifier returns a classifier for target, falling back to
// DefaultTargetCategory when target is empty.
func NewCategoryClassifier(target string) CategoryClassifier {
	if target == "" {
		target = DefaultTargetCategory
	}
	return CategoryClassifier{Target: target}
}

// Matches reports whether entity belongs to the target category.
func (c CategoryClassifier) Matches(entity Entity) bool {
	return entity.Category != "" && entity.Category == c.Target
}
