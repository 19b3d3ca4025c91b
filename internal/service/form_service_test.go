package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/BizPlanGen/internal/models"
)

func TestUpdateFieldLeavesOtherFieldsAlone(t *testing.T) {
	for _, name := range FieldNames {
		t.Run(name, func(t *testing.T) {
			sessions := NewSessionStore()
			form := NewFormService(sessions)
			s := sessions.Create()

			initial := models.PlanRequest{Idea: "I", Industry: "Ind", Audience: "Aud", Funding: "F", Goals: "G"}
			_, err := form.UpdateFields(s.ID, map[string]string{
				FieldIdea: initial.Idea, FieldIndustry: initial.Industry, FieldAudience: initial.Audience,
				FieldFunding: initial.Funding, FieldGoals: initial.Goals,
			})
			require.NoError(t, err)

			got, err := form.UpdateField(s.ID, name, "edited")
			require.NoError(t, err)

			for _, other := range FieldNames {
				if other == name {
					assert.Equal(t, "edited", fieldValue(got, other))
					continue
				}
				assert.Equal(t, fieldValue(initial, other), fieldValue(got, other), other)
			}
		})
	}
}

func TestUpdateFieldsRejectsUnknownNamesAtomically(t *testing.T) {
	sessions := NewSessionStore()
	form := NewFormService(sessions)
	s := sessions.Create()

	_, err := form.UpdateFields(s.ID, map[string]string{FieldIdea: "changed", "budget": "1"})
	assert.ErrorIs(t, err, ErrUnknownField)

	fields, err := form.Fields(s.ID)
	require.NoError(t, err)
	assert.Equal(t, DefaultPlanRequest().Idea, fields.Idea)

	_, err = form.UpdateField("missing", FieldIdea, "x")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestWithDefaultsFillsEmptyFieldsOnly(t *testing.T) {
	got := WithDefaults(models.PlanRequest{Idea: "Mine", Funding: "  "})
	def := DefaultPlanRequest()

	assert.Equal(t, "Mine", got.Idea)
	assert.Equal(t, def.Industry, got.Industry)
	assert.Equal(t, def.Funding, got.Funding)
	assert.Equal(t, def.Goals, got.Goals)
}
