package ask

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClassification(t *testing.T) {
	tests := []struct {
		input string
		want  Classification
		ok    bool
	}{
		{"ALLOWED", ClassAllowed, true},
		{"  salary\n", ClassSalary, true},
		{`"OUT_OF_SCOPE"`, ClassOutOfScope, true},
		{"job_fit.", ClassJobFit, true},
		{"Personal", ClassPersonal, true},
		{"The category is ALLOWED", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseClassification(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifier_UsesModelLabel(t *testing.T) {
	llm := &stubLLM{content: "salary\n"}
	c := NewClassifier(llm, WithClassifierModel("classifier-x"), WithClassifierLogger(discardLogger()))

	got := c.Classify(context.Background(), "What is her expected CTC?")

	assert.Equal(t, ClassSalary, got)
	require.Len(t, llm.requests, 1)
	assert.Equal(t, "classifier-x", llm.requests[0].Model)
	assert.Contains(t, llm.requests[0].Prompt, "Question: What is her expected CTC?")
	assert.Contains(t, llm.requests[0].Prompt, "Respond with ONLY the category name.")
}

func TestClassifier_UnknownLabelIsOutOfScope(t *testing.T) {
	c := NewClassifier(&stubLLM{content: "MAYBE"}, WithClassifierLogger(discardLogger()))

	assert.Equal(t, ClassOutOfScope, c.Classify(context.Background(), "Tell me a joke"))
}

func TestClassifier_HeuristicOnModelError(t *testing.T) {
	c := NewClassifier(&stubLLM{err: errors.New("503 unavailable")}, WithClassifierLogger(discardLogger()))

	assert.Equal(t, ClassJobFit, c.Classify(context.Background(), "Here is the Job Description for a PM role"))
	assert.Equal(t, ClassJobFit, c.Classify(context.Background(), "Is she a good job fit?"))
	assert.Equal(t, ClassAllowed, c.Classify(context.Background(), "What is her salary?"))
	assert.Equal(t, ClassAllowed, c.Classify(context.Background(), "What did she build?"))
}

func TestClassification_Restricted(t *testing.T) {
	assert.True(t, ClassPersonal.Restricted())
	assert.True(t, ClassSalary.Restricted())
	assert.True(t, ClassOutOfScope.Restricted())
	assert.False(t, ClassAllowed.Restricted())
	assert.False(t, ClassJobFit.Restricted())
}
