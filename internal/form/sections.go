package form

import "github.com/studypipe/studypipe/internal/models"

// Question is one Likert item answered on a 1..5 scale.
type Question struct {
	ID   string
	Text string
}

// Section is a named, ordered group of questions presented together.
type Section struct {
	ID          string
	Title       string
	Description string
	Questions   []Question
}

// QuestionIDs returns the section's question ids in presentation order.
func (s Section) QuestionIDs() []string {
	ids := make([]string, len(s.Questions))
	for i, q := range s.Questions {
		ids[i] = q.ID
	}
	return ids
}

// Snapshot converts the section into the structural form stored with each
// submission.
func (s Section) Snapshot() models.SectionRef {
	return models.SectionRef{ID: s.ID, Title: s.Title, QuestionIDs: s.QuestionIDs()}
}

// DefaultSections returns the study's standard questionnaire: three
// sections of five questions each.
func DefaultSections() []Section {
	return []Section{
		{
			ID:          "usability",
			Title:       "Section 1: Usability and User Experience",
			Description: "These questions assess how intuitive the platform feels, aligning with front-end choices like React UI for responsive dashboards.",
			Questions: []Question{
				{ID: "u1", Text: "On a scale of 1 to 5, how strongly do you agree that the platform's dashboard is easy to navigate during a high-stress situation like a flood response?"},
				{ID: "u2", Text: "On a scale of 1 to 5, how strongly do you agree that the maps and alerts in the platform help you quickly understand aid needs without needing extra training?"},
				{ID: "u3", Text: "On a scale of 1 to 5, how strongly do you agree that the platform works well in low-connectivity areas, such as rural zones with intermittent internet?"},
				{ID: "u4", Text: "On a scale of 1 to 5, how strongly do you agree that the multi-language features make the platform accessible for diverse team members?"},
				{ID: "u5", Text: "On a scale of 1 to 5, how strongly do you agree that the platform's interface reduces the time needed to coordinate logistics compared to your current tools?"},
			},
		},
		{
			ID:          "scalability",
			Title:       "Section 2: Scalability and Reliability",
			Description: "These questions evaluate the platform's ability to handle growth and maintain performance, based on features like automated deployments and backups.",
			Questions: []Question{
				{ID: "s1", Text: "On a scale of 1 to 5, how strongly do you agree that the platform handles sudden increases in users (e.g., during a major disaster) without slowing down?"},
				{ID: "s2", Text: "On a scale of 1 to 5, how strongly do you agree that the platform's quick setup features (like automated deployments) make it practical for small teams with limited IT resources?"},
				{ID: "s3", Text: "On a scale of 1 to 5, how strongly do you agree that the platform remains reliable across different regions or time zones?"},
				{ID: "s4", Text: "On a scale of 1 to 5, how strongly do you agree that the platform minimizes downtime during updates, allowing continuous aid coordination?"},
				{ID: "s5", Text: "On a scale of 1 to 5, how strongly do you agree that the platform's resilience features (e.g., backups) give you confidence in using it for critical tasks?"},
			},
		},
		{
			ID:          "ai",
			Title:       "Section 3: AI Integration and Effectiveness",
			Description: "These questions focus on the perceived value of AI features, such as alerts and resource prioritization, in humanitarian contexts.",
			Questions: []Question{
				{ID: "a1", Text: "On a scale of 1 to 5, how strongly do you agree that the platform's AI alerts help prioritize medical resources effectively in emergencies?"},
				{ID: "a2", Text: "On a scale of 1 to 5, how strongly do you agree that the AI features make resource allocation faster and more accurate than manual methods?"},
				{ID: "a3", Text: "On a scale of 1 to 5, how strongly do you agree that the platform's AI reduces errors in logistics planning, based on your experience?"},
				{ID: "a4", Text: "On a scale of 1 to 5, how strongly do you agree that the AI updates (e.g., during crises) improve the platform's usefulness without complicating your workflow?"},
				{ID: "a5", Text: "On a scale of 1 to 5, how strongly do you agree that the AI helps in coordinating with other organizations seamlessly?"},
			},
		},
	}
}
