package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/supportops/ticket-triage/internal/core"
)

func newTestClassifier(t *testing.T, handler http.HandlerFunc) *Classifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClassifier(srv.URL, "llama3.1", 256, 0.1, 0.9, 5*time.Second, zap.NewNop())
}

func chatReply(content string) string {
	reply := chatResponse{
		Model:   "llama3.1",
		Message: chatMessage{Role: "assistant", Content: content},
		Done:    true,
	}
	data, _ := json.Marshal(reply)
	return string(data)
}

func sampleRequest() *core.ClassificationRequest {
	return &core.ClassificationRequest{
		TicketID:    7,
		Subject:     "You won a prize",
		Description: "Click here to claim your reward",
		SenderEmail: "winner@lottery.example",
	}
}

func TestClassifier_Classify(t *testing.T) {
	var sent chatRequest
	classifier := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))

		fmt.Fprint(w, chatReply(`{"is_spam": true, "confidence": 0.93, "reasoning": "prize bait", "spam_indicators": ["prize", "link"]}`))
	})

	result, err := classifier.Classify(context.Background(), sampleRequest())

	require.NoError(t, err)
	assert.True(t, result.IsSpam)
	assert.Equal(t, 0.93, result.Confidence)
	assert.Equal(t, "prize bait", result.Reasoning)
	assert.Equal(t, []string{"prize", "link"}, result.Indicators)
	assert.Equal(t, "ollama", result.Provider)
	assert.Equal(t, "llama3.1", result.Model)
	assert.False(t, result.ClassifiedAt.IsZero())

	assert.Equal(t, "llama3.1", sent.Model)
	assert.False(t, sent.Stream)
	assert.Equal(t, "json", sent.Format)
	assert.Equal(t, 256, sent.Options.NumPredict)
	require.Len(t, sent.Messages, 2)
	assert.Equal(t, "system", sent.Messages[0].Role)
	assert.Contains(t, sent.Messages[1].Content, "From: winner@lottery.example")
	assert.Contains(t, sent.Messages[1].Content, "Subject: You won a prize")
	assert.Contains(t, sent.Messages[1].Content, "Click here to claim your reward")
}

func TestClassifier_Classify_UnknownSender(t *testing.T) {
	var sent chatRequest
	classifier := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		fmt.Fprint(w, chatReply(`{"is_spam": false, "confidence": 0.1, "reasoning": "ok"}`))
	})

	req := sampleRequest()
	req.SenderEmail = ""
	_, err := classifier.Classify(context.Background(), req)

	require.NoError(t, err)
	assert.Contains(t, sent.Messages[1].Content, "From: unknown")
}

func TestClassifier_Classify_ValidatedRequester(t *testing.T) {
	var sent chatRequest
	classifier := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		fmt.Fprint(w, chatReply(`{"is_spam": false, "confidence": 0.05, "reasoning": "validated"}`))
	})

	req := sampleRequest()
	req.SystemValidated = true
	_, err := classifier.Classify(context.Background(), req)

	require.NoError(t, err)
	assert.Contains(t, sent.Messages[1].Content, "validated by our system")
}

func TestClassifier_Classify_DirtyJSON(t *testing.T) {
	classifier := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatReply("Sure, here is my verdict:\n```json\n{\"is_spam\": true, \"confidence\": 0.8, \"reasoning\": \"spammy\"}\n```\nHope that helps!"))
	})

	result, err := classifier.Classify(context.Background(), sampleRequest())

	require.NoError(t, err, "prose around the JSON object is tolerated")
	assert.True(t, result.IsSpam)
	assert.Equal(t, 0.8, result.Confidence)
}

func TestClassifier_Classify_NoJSONAtAll(t *testing.T) {
	classifier := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatReply("I think this is probably spam."))
	})

	result, err := classifier.Classify(context.Background(), sampleRequest())

	require.Error(t, err)
	assert.Nil(t, result)
}

func TestClassifier_Classify_ConfidenceOutOfRange(t *testing.T) {
	classifier := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatReply(`{"is_spam": true, "confidence": 1.4, "reasoning": "overeager"}`))
	})

	result, err := classifier.Classify(context.Background(), sampleRequest())

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "outside [0,1]")
}

func TestClassifier_Classify_EmptyReasoning(t *testing.T) {
	classifier := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatReply(`{"is_spam": true, "confidence": 0.9}`))
	})

	result, err := classifier.Classify(context.Background(), sampleRequest())

	require.NoError(t, err)
	assert.Equal(t, "no reasoning provided", result.Reasoning)
}

func TestClassifier_Classify_ServerError(t *testing.T) {
	classifier := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "model not loaded")
	})

	result, err := classifier.Classify(context.Background(), sampleRequest())

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "status 500")
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestClassifier_Classify_EmptyResponse(t *testing.T) {
	classifier := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatReply(""))
	})

	result, err := classifier.Classify(context.Background(), sampleRequest())

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "empty response")
}
