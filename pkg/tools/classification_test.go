package tools_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sentinelstay/triage/pkg/incident"
	"github.com/sentinelstay/triage/pkg/tools"
	"github.com/sentinelstay/triage/pkg/tools/llm"
)

func TestClassifier_FallbackUsesKeywordScoring(t *testing.T) {
	c := tools.NewClassifier(llm.StubClient{}, 0, nil)

	out, err := c.Classify(context.Background(), tools.ClassificationInput{
		Metadata: incident.Metadata{
			Title:       "Unauthorized credit card charge",
			Description: "Guest reports a fraudulent payment transaction and billing dispute",
		},
	})
	require.NoError(t, err)
	require.Equal(t, incident.CategoryPaymentFraud, out.Category)
	require.LessOrEqual(t, out.Confidence, 0.8)
	require.Contains(t, out.SeverityIndicators, "fallback_classification")
}

func TestClassifier_FallbackDefaultsWhenNoKeywordsMatch(t *testing.T) {
	c := tools.NewClassifier(nil, 0, nil)

	out, err := c.Classify(context.Background(), tools.ClassificationInput{
		Metadata: incident.Metadata{Title: "Something odd happened", Description: "No idea what"},
	})
	require.NoError(t, err)
	require.Equal(t, incident.CategoryOpsSecurity, out.Category)
	require.InDelta(t, 0.3, out.Confidence, 0.001)
}

type recordingRecorder struct {
	samples []tools.PerformanceSample
}

func (r *recordingRecorder) RecordToolInvocation(sample tools.PerformanceSample) {
	r.samples = append(r.samples, sample)
}

func TestClassifier_RecordsPerformanceSample(t *testing.T) {
	rec := &recordingRecorder{}
	c := tools.NewClassifier(nil, 0, rec)

	_, err := c.Classify(context.Background(), tools.ClassificationInput{
		Metadata: incident.Metadata{Title: "guest key door access", Description: "unauthorized entry"},
	})
	require.NoError(t, err)
	require.Len(t, rec.samples, 1)
	require.Equal(t, "classification", rec.samples[0].Tool)
	require.True(t, rec.samples[0].Success)
}
