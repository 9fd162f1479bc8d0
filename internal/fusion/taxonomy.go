package fusion

import (
	"strings"

	"golang.org/x/text/cases"
)

// Categories is the closed set a classification's category is drawn from.
var Categories = []string{
	"Destruction of Property",
	"Displacement",
	"IDF",
	"Jewish Dissent",
	"Inhumane Acts",
	"Imprisonment",
	"Resilience",
	"Starvation of Civilian",
	"Testimonials",
	"Willful Killing",
}

// Tags is the closed core tag set. Model-suggested labels outside this set
// go to the proposed-tag log, never into results.
var Tags = []string{
	"Birth Prevention",
	"Ceasefire Violation",
	"Children",
	"Food",
	"Journalists",
	"Healthcare workers",
	"Hospitals",
	"Hostages",
	"Mosques",
	"Prisoners",
	"Schools",
	"Water",
	"Repression",
	"Torture",
	"Testimonials",
	"Women",
	"IDF",
	"Settlers",
	"Other",
}

// Relation is the static rule set for one tag: tags it implies, tags it
// conflicts with, and the lexicon terms (English and Arabic) that count as
// evidence for it in extracted text.
type Relation struct {
	Implies   []string
	Conflicts []string
	Keywords  []string
}

// tagRelations is read-only at runtime.
var tagRelations = map[string]Relation{
	"Birth Prevention": {
		Implies:  []string{"Women"},
		Keywords: []string{"maternity", "pregnant", "newborn", "حامل", "ولادة", "رضيع"},
	},
	"Ceasefire Violation": {
		Keywords: []string{"ceasefire", "truce", "هدنة", "وقف اطلاق النار"},
	},
	"Children": {
		Keywords: []string{"children", "child", "kids", "طفل", "أطفال", "اطفال"},
	},
	"Food": {
		Keywords: []string{"food", "flour", "bread", "hunger", "طعام", "طحين", "خبز", "جوع"},
	},
	"Journalists": {
		Keywords: []string{"journalist", "reporter", "press", "صحفي", "صحافة", "مراسل"},
	},
	"Healthcare workers": {
		Keywords: []string{"doctor", "nurse", "paramedic", "medic", "طبيب", "ممرض", "مسعف"},
	},
	"Hospitals": {
		Implies:  []string{"Healthcare workers"},
		Keywords: []string{"hospital", "clinic", "مستشفى", "عيادة"},
	},
	"Hostages": {
		Conflicts: []string{"Prisoners"},
		Keywords:  []string{"hostage", "رهينة", "رهائن"},
	},
	"Mosques": {
		Keywords: []string{"mosque", "مسجد"},
	},
	"Prisoners": {
		Conflicts: []string{"Hostages"},
		Keywords:  []string{"prisoner", "detainee", "أسير", "سجين", "معتقل"},
	},
	"Schools": {
		Implies:  []string{"Children"},
		Keywords: []string{"school", "مدرسة", "مدارس"},
	},
	"Water": {
		Keywords: []string{"water", "thirst", "مياه", "ماء", "عطش"},
	},
	"Repression": {
		Keywords: []string{"repression", "crackdown", "قمع"},
	},
	"Torture": {
		Implies:  []string{"Repression"},
		Keywords: []string{"torture", "تعذيب"},
	},
	"Testimonials": {
		Keywords: []string{"testimony", "witness", "survivor", "شهادة", "شاهد"},
	},
	"Women": {
		Keywords: []string{"women", "woman", "امرأة", "نساء"},
	},
	"IDF": {
		Keywords: []string{"idf", "israeli army", "soldiers", "جيش", "جنود"},
	},
	"Settlers": {
		Keywords: []string{"settler", "settlers", "مستوطن", "مستوطنين"},
	},
	"Other": {},
}

// categoryKeywords drives category evidence from raw text.
var categoryKeywords = map[string][]string{
	"Destruction of Property": {"destroyed", "rubble", "demolition", "airstrike", "دمار", "قصف", "ركام", "هدم"},
	"Displacement":            {"displaced", "displacement", "evacuate", "fled", "refugee", "tents", "نزوح", "نازح", "خيام", "تهجير"},
	"IDF":                     {"idf", "israeli army", "جيش الاحتلال"},
	"Jewish Dissent":          {"jewish voice", "rabbi", "anti-zionist", "not in our name"},
	"Inhumane Acts":           {"inhumane", "atrocity", "فظائع"},
	"Imprisonment":            {"arrest", "detention", "اعتقال", "سجن"},
	"Resilience":              {"resilience", "rebuild", "hope", "صمود", "أمل"},
	"Starvation of Civilian":  {"starvation", "famine", "starving", "مجاعة", "تجويع"},
	"Testimonials":            {"testimony", "witness", "شهادة"},
	"Willful Killing":         {"killed", "massacre", "shot dead", "قتل", "مجزرة", "استشهد"},
}

var (
	tagSet      = make(map[string]string, len(Tags))
	categorySet = make(map[string]string, len(Categories))
	folder      = cases.Fold()
)

func init() {
	for _, tag := range Tags {
		tagSet[fold(tag)] = tag
	}
	for _, category := range Categories {
		categorySet[fold(category)] = category
	}
}

func fold(s string) string {
	return folder.String(strings.TrimSpace(s))
}

// CanonicalTag resolves a label to its canonical tag name.
func CanonicalTag(label string) (string, bool) {
	tag, ok := tagSet[fold(label)]
	return tag, ok
}

// CanonicalCategory resolves a label to its canonical category name.
func CanonicalCategory(label string) (string, bool) {
	category, ok := categorySet[fold(label)]
	return category, ok
}

// RelationFor returns the static rules for a tag.
func RelationFor(tag string) Relation {
	return tagRelations[tag]
}

// AllLabels returns every tag and category label, the allowed vocabulary for
// the vision extractor.
func AllLabels() []string {
	labels := make([]string, 0, len(Tags)+len(Categories))
	labels = append(labels, Tags...)
	for _, category := range Categories {
		if _, ok := tagSet[fold(category)]; !ok {
			labels = append(labels, category)
		}
	}
	return labels
}

// matchKeywords returns the keywords from the list found in the folded text.
func matchKeywords(foldedText string, keywords []string) []string {
	var hits []string
	for _, keyword := range keywords {
		if strings.Contains(foldedText, fold(keyword)) {
			hits = append(hits, keyword)
		}
	}
	return hits
}
