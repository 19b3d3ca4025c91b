package service

import (
	"fmt"

	"github.com/digkill/BizPlanGen/internal/models"
)

const (
	systemPrompt    = "You are a professional business strategist."
	planTemperature = float32(0.7)
	planMaxTokens   = 3000
)

// PlanSections are the headings the generated plan must contain, in order.
var PlanSections = []string{
	"Executive Summary",
	"Company Description",
	"Market Analysis",
	"Product/Service Overview",
	"Marketing & Sales Strategy",
	"Operational Plan",
	"Financial Projections",
	"Competitor Analysis",
	"Funding Requirements & Usage",
	"Conclusion & Future Vision",
}

const promptTemplate = `You are an expert business consultant and startup strategist. Using the details below, generate a comprehensive and structured business plan that is suitable for presentation to investors, banks, or stakeholders.

Inputs:
- Business Idea: %s
- Industry: %s
- Target Audience: %s
- Funding Needs: %s
- Business Goals: %s

The business plan should be well-organized and include the following sections:

%s
Make sure the tone is professional, insightful, and tailored for a serious business proposal. Add bullet points or tables wherever needed.
`

// BuildPrompt interpolates the fields verbatim; nothing is escaped.
func BuildPrompt(req models.PlanRequest) string {
	var sections string
	for i, title := range PlanSections {
		sections += fmt.Sprintf("%d. %s\n", i+1, title)
	}
	return fmt.Sprintf(promptTemplate, req.Idea, req.Industry, req.Audience, req.Funding, req.Goals, sections)
}
