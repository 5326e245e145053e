package services

// MessageTemplate is a canned opener users can send instead of typing.
type MessageTemplate struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Text     string `json:"text"`
}

var messageTemplates = []MessageTemplate{
	{ID: "icebreaker-1", Category: "icebreaker", Text: "Hey! Your profile made me smile. How's your day going?"},
	{ID: "icebreaker-2", Category: "icebreaker", Text: "Two truths and a lie — you start!"},
	{ID: "icebreaker-3", Category: "icebreaker", Text: "If you could travel anywhere tomorrow, where would you go?"},
	{ID: "compliment-1", Category: "compliment", Text: "You have a great taste in music!"},
	{ID: "compliment-2", Category: "compliment", Text: "Your photos from that hike look amazing."},
	{ID: "question-1", Category: "question", Text: "Coffee or tea person?"},
	{ID: "question-2", Category: "question", Text: "What's the best meal you've ever had?"},
	{ID: "question-3", Category: "question", Text: "Early bird or night owl?"},
	{ID: "followup-1", Category: "followup", Text: "Still thinking about our last conversation :)"},
	{ID: "followup-2", Category: "followup", Text: "How did that thing you mentioned go?"},
}

// ListTemplates returns the template catalog, optionally filtered by
// category. An unknown category yields an empty slice, not an error.
func ListTemplates(category string) []MessageTemplate {
	if category == "" {
		out := make([]MessageTemplate, len(messageTemplates))
		copy(out, messageTemplates)
		return out
	}
	out := make([]MessageTemplate, 0, 4)
	for _, t := range messageTemplates {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out
}

// TemplateByID looks up a single template.
func TemplateByID(id string) (MessageTemplate, bool) {
	for _, t := range messageTemplates {
		if t.ID == id {
			return t, true
		}
	}
	return MessageTemplate{}, false
}
