package service

import (
	"fmt"
	"strings"

	"github.com/digkill/BizPlanGen/internal/models"
)

const (
	FieldIdea     = "idea"
	FieldIndustry = "industry"
	FieldAudience = "audience"
	FieldFunding  = "funding"
	FieldGoals    = "goals"
)

// FieldNames lists the form fields in display order.
var FieldNames = []string{FieldIdea, FieldIndustry, FieldAudience, FieldFunding, FieldGoals}

func DefaultPlanRequest() models.PlanRequest {
	return models.PlanRequest{
		Idea:     "An AI-powered app that generates investor-ready business plans for startups.",
		Industry: "SaaS / Artificial Intelligence",
		Audience: "Startup founders, freelancers, small business owners",
		Funding:  "$50,000",
		Goals:    "To simplify and speed up the business planning process using AI",
	}
}

// WithDefaults fills every empty field with its default value.
func WithDefaults(req models.PlanRequest) models.PlanRequest {
	def := DefaultPlanRequest()
	for _, name := range FieldNames {
		if strings.TrimSpace(fieldValue(req, name)) == "" {
			setField(&req, name, fieldValue(def, name))
		}
	}
	return req
}

// FormService is the input collector: it edits one session's fields and nothing else.
type FormService struct {
	sessions *SessionStore
}

func NewFormService(sessions *SessionStore) *FormService {
	return &FormService{sessions: sessions}
}

func (s *FormService) Fields(sessionID string) (models.PlanRequest, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return models.PlanRequest{}, ErrSessionNotFound
	}
	return session.Fields, nil
}

func (s *FormService) UpdateField(sessionID, name, value string) (models.PlanRequest, error) {
	return s.UpdateFields(sessionID, map[string]string{name: value})
}

// UpdateFields sets only the named fields. Unknown names reject the whole update.
func (s *FormService) UpdateFields(sessionID string, values map[string]string) (models.PlanRequest, error) {
	for name := range values {
		if !isField(name) {
			return models.PlanRequest{}, fmt.Errorf("%w: %s", ErrUnknownField, name)
		}
	}
	session, err := s.sessions.Update(sessionID, func(sess *models.Session) {
		for name, value := range values {
			setField(&sess.Fields, name, value)
		}
	})
	if err != nil {
		return models.PlanRequest{}, err
	}
	return session.Fields, nil
}

func isField(name string) bool {
	for _, n := range FieldNames {
		if n == name {
			return true
		}
	}
	return false
}

func fieldValue(req models.PlanRequest, name string) string {
	switch name {
	case FieldIdea:
		return req.Idea
	case FieldIndustry:
		return req.Industry
	case FieldAudience:
		return req.Audience
	case FieldFunding:
		return req.Funding
	case FieldGoals:
		return req.Goals
	}
	return ""
}

func setField(req *models.PlanRequest, name, value string) {
	switch name {
	case FieldIdea:
		req.Idea = value
	case FieldIndustry:
		req.Industry = value
	case FieldAudience:
		req.Audience = value
	case FieldFunding:
		req.Funding = value
	case FieldGoals:
		req.Goals = value
	}
}
