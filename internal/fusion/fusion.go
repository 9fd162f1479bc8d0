// Package fusion merges evidence fragments into one classification. Fusion
// is pure computation: it never fails, and the same fragments always produce
// the same result.
package fusion

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/extract"
)

const (
	// tagThreshold is the minimum combined confidence for a tag to be kept.
	tagThreshold = 0.35
	// impliesDiscount scales the confidence inherited through an implies rule.
	impliesDiscount = 0.75
	// reviewThreshold flags low-confidence results for human review.
	reviewThreshold = 0.50
	// minConfidence is the floor reported when no evidence was extracted.
	minConfidence = 0.05

	// fallbackCategory is used when no fragment carries category evidence:
	// footage with no recognizable category signal is treated as raw witness
	// material.
	fallbackCategory = "Testimonials"

	evidenceExcerptLimit = 120
)

// Tag is one confidence-scored label in the fused result.
type Tag struct {
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Sources    []string  `json:"sources"`
	Evidence   string    `json:"evidence,omitempty"`
	FrameRefs  []float64 `json:"frame_refs,omitempty"`
}

// Classification is the fused output for one job.
type Classification struct {
	Category          string  `json:"category"`
	Tags              []Tag   `json:"tags"`
	OverallConfidence float64 `json:"overall_confidence"`
	RequiresReview    bool    `json:"requires_review"`
	ReviewReason      string  `json:"review_reason,omitempty"`
}

// evidence accumulates support for one label across fragments.
type evidence struct {
	perSource    map[extract.Source]float64
	bestFragment float64
	excerpt      string
	frameRefs    []float64
}

func (e *evidence) add(fragment extract.Fragment, excerpt string) {
	if fragment.Confidence > e.perSource[fragment.Source] {
		e.perSource[fragment.Source] = fragment.Confidence
	}
	if fragment.Confidence > e.bestFragment {
		e.bestFragment = fragment.Confidence
		if excerpt != "" {
			e.excerpt = excerpt
		}
	}
	e.frameRefs = append(e.frameRefs, fragment.FrameRefs...)
}

// combined merges per-source confidences by weighted union: independent
// sources each remove a share of the remaining doubt, so agreement across
// sources always scores higher than either source alone.
func (e *evidence) combined() float64 {
	doubt := 1.0
	for _, confidence := range e.perSource {
		doubt *= 1 - clamp01(confidence)
	}
	return clamp01(1 - doubt)
}

func (e *evidence) sources() []string {
	names := make([]string, 0, len(e.perSource))
	for source := range e.perSource {
		names = append(names, string(source))
	}
	sort.Strings(names)
	return names
}

// Fuse merges all fragments for a job into a classification.
func Fuse(fragments []extract.Fragment) Classification {
	if len(fragments) == 0 {
		return Classification{
			Category:          fallbackCategory,
			OverallConfidence: minConfidence,
			RequiresReview:    true,
			ReviewReason:      "no evidence extracted",
		}
	}

	tagEvidence := make(map[string]*evidence)
	categoryEvidence := make(map[string]*evidence)
	distinctSources := make(map[extract.Source]struct{})

	record := func(table map[string]*evidence, label string, fragment extract.Fragment, excerpt string) {
		entry, ok := table[label]
		if !ok {
			entry = &evidence{perSource: make(map[extract.Source]float64)}
			table[label] = entry
		}
		entry.add(fragment, excerpt)
	}

	for _, fragment := range fragments {
		if strings.TrimSpace(fragment.Text) == "" {
			continue
		}
		distinctSources[fragment.Source] = struct{}{}

		if fragment.Label {
			excerpt := truncate(fragment.Evidence)
			if tag, ok := CanonicalTag(fragment.Text); ok {
				record(tagEvidence, tag, fragment, excerpt)
			}
			if category, ok := CanonicalCategory(fragment.Text); ok {
				record(categoryEvidence, category, fragment, excerpt)
			}
			continue
		}

		folded := fold(fragment.Text)
		excerpt := truncate(fragment.Text)
		for _, tag := range Tags {
			if hits := matchKeywords(folded, RelationFor(tag).Keywords); len(hits) > 0 {
				record(tagEvidence, tag, fragment, excerpt)
			}
		}
		for _, category := range Categories {
			if hits := matchKeywords(folded, categoryKeywords[category]); len(hits) > 0 {
				record(categoryEvidence, category, fragment, excerpt)
			}
		}
	}

	accepted := make(map[string]Tag)
	for label, entry := range tagEvidence {
		confidence := entry.combined()
		if confidence < tagThreshold {
			continue
		}
		accepted[label] = Tag{
			Label:      label,
			Confidence: confidence,
			Sources:    entry.sources(),
			Evidence:   entry.excerpt,
			FrameRefs:  dedupeRefs(entry.frameRefs),
		}
	}

	applyImplications(accepted)
	droppedNote := resolveConflicts(accepted, tagEvidence)

	category, categoryConfidence := selectCategory(categoryEvidence)

	overall := clamp01(categoryConfidence * coverageFactor(len(distinctSources)))
	if overall < minConfidence {
		overall = minConfidence
	}

	classification := Classification{
		Category:          category,
		Tags:              sortedTags(accepted),
		OverallConfidence: overall,
	}
	switch {
	case overall < reviewThreshold:
		classification.RequiresReview = true
		classification.ReviewReason = "low confidence"
	case droppedNote != "":
		classification.RequiresReview = true
		classification.ReviewReason = droppedNote
	}
	if droppedNote != "" && classification.ReviewReason == "low confidence" {
		classification.ReviewReason = "low confidence; " + droppedNote
	}
	return classification
}

// applyImplications adds implied tags at a discount unless already present
// with higher confidence. Implied tags inherit the implying tag's sources.
func applyImplications(accepted map[string]Tag) {
	labels := make([]string, 0, len(accepted))
	for label := range accepted {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		tag := accepted[label]
		for _, implied := range RelationFor(label).Implies {
			derived := clamp01(tag.Confidence * impliesDiscount)
			if existing, ok := accepted[implied]; ok && existing.Confidence >= derived {
				continue
			}
			accepted[implied] = Tag{
				Label:      implied,
				Confidence: derived,
				Sources:    tag.Sources,
				Evidence:   tag.Evidence,
				FrameRefs:  tag.FrameRefs,
			}
		}
	}
}

// resolveConflicts drops the weaker of any mutually conflicting pair and
// reports what was dropped for review metadata.
func resolveConflicts(accepted map[string]Tag, tagEvidence map[string]*evidence) string {
	labels := make([]string, 0, len(accepted))
	for label := range accepted {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var notes []string
	for _, label := range labels {
		tag, ok := accepted[label]
		if !ok {
			continue
		}
		for _, rival := range RelationFor(label).Conflicts {
			other, present := accepted[rival]
			if !present {
				continue
			}
			keep, drop := tag, other
			if other.Confidence > tag.Confidence {
				keep, drop = other, tag
			} else if other.Confidence == tag.Confidence {
				// Equal confidence: keep the stronger single fragment.
				if entry, ok := tagEvidence[rival]; ok {
					if mine, mok := tagEvidence[label]; mok && entry.bestFragment > mine.bestFragment {
						keep, drop = other, tag
					}
				}
			}
			delete(accepted, drop.Label)
			notes = append(notes, fmt.Sprintf("conflict: dropped %q in favor of %q", drop.Label, keep.Label))
		}
	}
	return strings.Join(notes, "; ")
}

// selectCategory picks the category with the strongest combined evidence,
// breaking ties by the highest-confidence individual fragment.
func selectCategory(categoryEvidence map[string]*evidence) (string, float64) {
	if len(categoryEvidence) == 0 {
		return fallbackCategory, minConfidence
	}

	var (
		best           string
		bestCombined   = -1.0
		bestSingleBest = -1.0
	)
	labels := make([]string, 0, len(categoryEvidence))
	for label := range categoryEvidence {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		entry := categoryEvidence[label]
		combined := entry.combined()
		switch {
		case combined > bestCombined:
			best, bestCombined, bestSingleBest = label, combined, entry.bestFragment
		case combined == bestCombined && entry.bestFragment > bestSingleBest:
			best, bestSingleBest = label, entry.bestFragment
		}
	}
	return best, bestCombined
}

// coverageFactor scales confidence by how many distinct sources contributed.
// One source alone never clears the review threshold on its own.
func coverageFactor(sources int) float64 {
	if sources > 3 {
		sources = 3
	}
	if sources < 0 {
		sources = 0
	}
	return 0.5 + 0.5*float64(sources)/3
}

func sortedTags(accepted map[string]Tag) []Tag {
	tags := make([]Tag, 0, len(accepted))
	for _, tag := range accepted {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Confidence != tags[j].Confidence {
			return tags[i].Confidence > tags[j].Confidence
		}
		return tags[i].Label < tags[j].Label
	})
	return tags
}

func dedupeRefs(refs []float64) []float64 {
	if len(refs) == 0 {
		return nil
	}
	sort.Float64s(refs)
	out := refs[:1]
	for _, ref := range refs[1:] {
		if math.Abs(ref-out[len(out)-1]) > 1e-9 {
			out = append(out, ref)
		}
	}
	return out
}

func truncate(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= evidenceExcerptLimit {
		return text
	}
	return string(runes[:evidenceExcerptLimit]) + "..."
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
