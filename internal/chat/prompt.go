package chat

import (
	"fmt"
	"strings"
)

// Section headers of the serialized prompt. The learning profile is
// always present (default-filled when real preferences are missing);
// the other sections are omitted entirely when their data is absent,
// so the model never sees fabricated academic, history, or material
// content.
const (
	sectionLearningProfile = "## Learning Profile"
	sectionAcademicProfile = "## Academic Profile"
	sectionConversation    = "## Previous Conversation"
	sectionMaterials       = "## Relevant Materials"
	sectionQuestion        = "## Student Question"
)

// FormatPrompt deterministically serializes the user context and the
// current question into one structured prompt.
func FormatPrompt(uc *UserContext, userMessage string) string {
	var b strings.Builder

	p := uc.Preferences
	b.WriteString(sectionLearningProfile + "\n")
	fmt.Fprintf(&b, "detail_level: %.2f\n", p.DetailLevel)
	fmt.Fprintf(&b, "example_preference: %.2f\n", p.ExamplePreference)
	fmt.Fprintf(&b, "analogy_preference: %.2f\n", p.AnalogyPreference)
	fmt.Fprintf(&b, "technical_language: %.2f\n", p.TechnicalLanguage)
	fmt.Fprintf(&b, "structure_preference: %.2f\n", p.StructurePreference)
	fmt.Fprintf(&b, "visual_preference: %.2f\n", p.VisualPreference)
	fmt.Fprintf(&b, "learning_pace: %s\n", p.LearningPace)
	fmt.Fprintf(&b, "prior_experience: %s\n", p.PriorExperience)

	if a := uc.Academic; a != nil {
		grades := a.GradeLevelList()
		subjects := a.SubjectList()
		if len(grades) > 0 || a.Semester != "" || len(subjects) > 0 {
			b.WriteString("\n" + sectionAcademicProfile + "\n")
			if len(grades) > 0 {
				fmt.Fprintf(&b, "grade_levels: %s\n", strings.Join(grades, ", "))
			}
			if a.Semester != "" {
				fmt.Fprintf(&b, "semester: %s\n", a.Semester)
			}
			if len(subjects) > 0 {
				fmt.Fprintf(&b, "subjects: %s\n", strings.Join(subjects, ", "))
			}
		}
	}

	if len(uc.History) > 0 {
		b.WriteString("\n" + sectionConversation + "\n")
		for _, m := range uc.History {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
	}

	if len(uc.Materials) > 0 {
		b.WriteString("\n" + sectionMaterials + "\n")
		for _, r := range uc.Materials {
			fmt.Fprintf(&b, "[%s] (relevance %.2f)\n%s\n", r.Name, r.Similarity, r.Excerpt)
		}
	}

	b.WriteString("\n" + sectionQuestion + "\n")
	b.WriteString(userMessage)
	return b.String()
}
