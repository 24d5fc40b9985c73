package dto

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicInputAcceptsBothShapes(t *testing.T) {
	var req CreateStudyScheduleRequest
	payload := `{"startDate":"2024-01-01","endDate":"2024-01-07","studyHoursPerDay":1.5,
		"topics":["Algebra",{"topic":"Optics","priority":"high"},{"name":"Poetry","priority":"low"}]}`
	require.NoError(t, json.Unmarshal([]byte(payload), &req))

	require.Len(t, req.Topics, 3)
	assert.Equal(t, TopicInput{Topic: "Algebra"}, req.Topics[0])
	assert.Equal(t, TopicInput{Topic: "Optics", Priority: "high"}, req.Topics[1])
	assert.Equal(t, TopicInput{Topic: "Poetry", Priority: "low"}, req.Topics[2])
}

func TestTopicInputRejectsOtherShapes(t *testing.T) {
	var req CreateStudyScheduleRequest
	err := json.Unmarshal([]byte(`{"topics":[42]}`), &req)
	assert.Error(t, err)
}

func TestCreateStudyScheduleRequestValidation(t *testing.T) {
	v := validator.New()
	valid := CreateStudyScheduleRequest{
		StartDate:        "2024-01-01",
		EndDate:          "2024-01-07",
		Topics:           []TopicInput{{Topic: "Algebra"}},
		StudyHoursPerDay: 2,
		RestDays:         []int{0, 6},
	}
	require.NoError(t, v.Struct(valid))

	bad := valid
	bad.StartDate = "01/01/2024"
	assert.Error(t, v.Struct(bad))

	bad = valid
	bad.RestDays = []int{7}
	assert.Error(t, v.Struct(bad))

	bad = valid
	bad.Topics = nil
	assert.Error(t, v.Struct(bad))

	bad = valid
	bad.Topics = []TopicInput{{Topic: ""}}
	assert.Error(t, v.Struct(bad))

	bad = valid
	bad.StudyHoursPerDay = 0
	assert.Error(t, v.Struct(bad))
}
