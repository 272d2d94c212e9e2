package vision

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutriscan/arnutri-go/internal/conf"
	"github.com/nutriscan/arnutri-go/internal/nutrition"
	"github.com/nutriscan/arnutri-go/internal/panel"
)

type fakeClassifier struct {
	predictions []Prediction
	err         error
	calls       int
}

func (f *fakeClassifier) Classify(ctx context.Context, frame []byte) ([]Prediction, error) {
	f.calls++
	return f.predictions, f.err
}

type fakeSearcher struct {
	terms []string
}

func (f *fakeSearcher) Search(ctx context.Context, term string) (*panel.Panel, error) {
	f.terms = append(f.terms, term)
	return &panel.Panel{ID: 1, Record: &nutrition.Record{SourceID: term, Title: term}}, nil
}

type statusRecorder struct {
	statuses []string
}

func (s *statusRecorder) ScanStatus(message string) { s.statuses = append(s.statuses, message) }

func testCoordinator(classifier Classifier, searcher Searcher, notifier StatusNotifier) *Coordinator {
	return NewCoordinator(&conf.VisionSettings{
		Enabled:      true,
		CaptureEvery: 10 * time.Millisecond,
		MinInterval:  50 * time.Millisecond,
	}, classifier, searcher, notifier, nil)
}

func TestIsFoodItem(t *testing.T) {
	t.Parallel()

	assert.True(t, IsFoodItem("water bottle"))
	assert.True(t, IsFoodItem("Chocolate bar"))
	assert.True(t, IsFoodItem("pizza, pizza pie"))
	assert.False(t, IsFoodItem("laptop"))
	assert.False(t, IsFoodItem("golden retriever"))
}

func TestFirstFoodPreservesRanking(t *testing.T) {
	t.Parallel()

	food, ok := FirstFood([]Prediction{
		{ClassName: "desk", Probability: 0.8},
		{ClassName: "potato chips", Probability: 0.6},
		{ClassName: "chocolate", Probability: 0.5},
	})
	require.True(t, ok)
	assert.Equal(t, "potato chips", food.ClassName)

	_, ok = FirstFood([]Prediction{{ClassName: "desk"}})
	assert.False(t, ok)
}

func TestManualFrameSearchesTopFood(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{predictions: []Prediction{
		{ClassName: "screen", Probability: 0.9},
		{ClassName: "soda bottle", Probability: 0.7},
	}}
	searcher := &fakeSearcher{}
	notifier := &statusRecorder{}
	c := testCoordinator(classifier, searcher, notifier)

	placed, err := c.HandleFrame(context.Background(), []byte("frame"), true)
	require.NoError(t, err)
	require.NotNil(t, placed)
	assert.Equal(t, []string{"soda bottle"}, searcher.terms)
	require.NotEmpty(t, notifier.statuses)
	assert.Contains(t, notifier.statuses[len(notifier.statuses)-1], "Detected: soda bottle")
}

func TestManualFrameNoFood(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{predictions: []Prediction{{ClassName: "keyboard", Probability: 0.9}}}
	searcher := &fakeSearcher{}
	notifier := &statusRecorder{}
	c := testCoordinator(classifier, searcher, notifier)

	placed, err := c.HandleFrame(context.Background(), []byte("frame"), true)
	require.NoError(t, err)
	assert.Nil(t, placed)
	assert.Empty(t, searcher.terms)
	assert.Contains(t, notifier.statuses[len(notifier.statuses)-1], "No food item detected")
}

func TestManualFrameThrottled(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{predictions: []Prediction{{ClassName: "chocolate", Probability: 0.9}}}
	searcher := &fakeSearcher{}
	c := testCoordinator(classifier, searcher, nil)

	_, err := c.HandleFrame(context.Background(), []byte("a"), true)
	require.NoError(t, err)
	require.Len(t, searcher.terms, 1)

	// Within the minimum interval the frame is dropped before
	// classification.
	callsBefore := classifier.calls
	placed, err := c.HandleFrame(context.Background(), []byte("b"), true)
	require.NoError(t, err)
	assert.Nil(t, placed)
	assert.Equal(t, callsBefore, classifier.calls)
	assert.Len(t, searcher.terms, 1)
}

func TestBackgroundFrameOnlyWarmsPredictions(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{predictions: []Prediction{{ClassName: "pizza", Probability: 0.8}}}
	searcher := &fakeSearcher{}
	notifier := &statusRecorder{}
	c := testCoordinator(classifier, searcher, notifier)

	placed, err := c.HandleFrame(context.Background(), []byte("frame"), false)
	require.NoError(t, err)
	assert.Nil(t, placed)
	assert.Empty(t, searcher.terms)
	assert.Empty(t, notifier.statuses)

	preds := c.LastPredictions()
	require.Len(t, preds, 1)
	assert.Equal(t, "pizza", preds[0].ClassName)
}

func TestClassifierErrorSurfacesStatus(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{err: context.DeadlineExceeded}
	notifier := &statusRecorder{}
	c := testCoordinator(classifier, &fakeSearcher{}, notifier)

	_, err := c.HandleFrame(context.Background(), []byte("frame"), true)
	require.Error(t, err)
	assert.Contains(t, notifier.statuses[len(notifier.statuses)-1], "Recognition error")
}
