package gradingtool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrWong99/lingograde/internal/config"
	"github.com/MrWong99/lingograde/internal/grading"
)

func newTools(t *testing.T) *Tools {
	t.Helper()
	return New(grading.New(config.Defaults().Grading))
}

func TestGradeKorean(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	req := &mcp.CallToolRequest{}
	tools := newTools(t)

	tests := []struct {
		name           string
		input          InputGradeKorean
		wantErr        bool
		errContains    string
		validateOutput func(t *testing.T, output OutputGrade)
	}{
		{
			name:        "empty reference returns error",
			input:       InputGradeKorean{Answer: "안녕"},
			wantErr:     true,
			errContains: "reference is required",
		},
		{
			name:  "digits are spelled before grading",
			input: InputGradeKorean{Reference: "커피 두 잔 주세요", Answer: "커피 2잔 주세요"},
			validateOutput: func(t *testing.T, output OutputGrade) {
				assert.True(t, output.IsCorrect)
				assert.Equal(t, 100, output.Score)
				assert.Equal(t, "커피 두잔 주세요", output.Answer)
				assert.Len(t, output.Corrections, 2)
			},
		},
		{
			name:  "vowel error fails",
			input: InputGradeKorean{Reference: "김치찌개 먹어요", Answer: "김치찌게 먹어요"},
			validateOutput: func(t *testing.T, output OutputGrade) {
				assert.False(t, output.IsCorrect)
				assert.NotEmpty(t, output.Note)
				assert.NotNil(t, output.Corrections)
			},
		},
		{
			name:  "mixed register carries advice",
			input: InputGradeKorean{Reference: "저는 학생이에요", Answer: "저는 학생이야"},
			validateOutput: func(t *testing.T, output OutputGrade) {
				assert.NotEmpty(t, output.RegisterAdvice)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result, output, err := tools.GradeKorean(ctx, req, tt.input)
			assert.Nil(t, result)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			if tt.validateOutput != nil {
				tt.validateOutput(t, output)
			}
		})
	}
}

func TestGradeFrench(t *testing.T) {
	t.Parallel()

	tools := newTools(t)
	_, output, err := tools.GradeFrench(context.Background(), &mcp.CallToolRequest{}, InputGradeFrench{
		Reference: "bonjour madame",
		Answer:    "bonjour madam",
	})
	require.NoError(t, err)
	assert.True(t, output.IsCorrect)
	assert.Equal(t, 93, output.Score)
	assert.Empty(t, output.RegisterAdvice)

	_, output, err = tools.GradeFrench(context.Background(), &mcp.CallToolRequest{}, InputGradeFrench{
		Reference: "le chien",
		Answer:    "le chat",
	})
	require.NoError(t, err)
	assert.False(t, output.IsCorrect)
}

func TestScorePronunciation(t *testing.T) {
	t.Parallel()

	tools := newTools(t)
	accuracy := 50.0
	_, output, err := tools.ScorePronunciation(context.Background(), &mcp.CallToolRequest{}, InputScorePronunciation{
		Reference:  "주세요",
		Hypothesis: "주세오",
		Accuracy:   &accuracy,
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.08, output.Penalty, 1e-9)
	assert.Equal(t, 1, output.VowelErrors)
	assert.Equal(t, 2, output.Exact)
	require.NotNil(t, output.AdjustedAccuracy)
	assert.InDelta(t, 46.0, *output.AdjustedAccuracy, 1e-9)
	assert.NotEmpty(t, output.Tips)

	require.NotEmpty(t, output.Spans)
	var text string
	for _, s := range output.Spans {
		assert.Contains(t, []string{"correct", "wrong", "none"}, s.Mark)
		text += s.Text
	}
	assert.Equal(t, "주세요", text)
}

func TestScorePronunciation_InvalidAccuracy(t *testing.T) {
	t.Parallel()

	tools := newTools(t)
	accuracy := 120.0
	_, _, err := tools.ScorePronunciation(context.Background(), &mcp.CallToolRequest{}, InputScorePronunciation{
		Reference:  "주세요",
		Hypothesis: "주세요",
		Accuracy:   &accuracy,
	})
	require.ErrorIs(t, err, grading.ErrInvalidInput)
}

func TestNormalizeNumerals(t *testing.T) {
	t.Parallel()

	tools := newTools(t)
	_, output, err := tools.NormalizeNumerals(context.Background(), &mcp.CallToolRequest{}, InputNormalizeNumerals{Text: "202개"})
	require.NoError(t, err)
	assert.Equal(t, "이백두개", output.Text)
	assert.NotEmpty(t, output.Changes)

	_, output, err = tools.NormalizeNumerals(context.Background(), &mcp.CallToolRequest{}, InputNormalizeNumerals{Text: "안녕하세요"})
	require.NoError(t, err)
	assert.Equal(t, "안녕하세요", output.Text)
	assert.NotNil(t, output.Changes)
	assert.Empty(t, output.Changes)
}

func connect(t *testing.T) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	server := NewServer(grading.New(config.Defaults().Grading), "test")
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func TestServer_ListTools(t *testing.T) {
	t.Parallel()

	cs := connect(t)
	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
		assert.NotNil(t, tool.InputSchema, "tool %s has no input schema", tool.Name)
	}
	assert.ElementsMatch(t, []string{"grade_korean", "grade_french", "score_pronunciation", "normalize_numerals"}, names)
}

func TestServer_CallTool(t *testing.T) {
	t.Parallel()

	cs := connect(t)
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "grade_korean",
		Arguments: map[string]any{"reference": "커피 두 잔 주세요", "answer": "커피 2잔 주세요"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError, "unexpected tool error: %+v", res.Content)
	require.NotEmpty(t, res.Content)

	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	var output OutputGrade
	require.NoError(t, json.Unmarshal([]byte(text.Text), &output))
	assert.True(t, output.IsCorrect)
	assert.Equal(t, 100, output.Score)
}

func TestServer_CallToolError(t *testing.T) {
	t.Parallel()

	cs := connect(t)
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "grade_french",
		Arguments: map[string]any{"reference": "", "answer": "bonjour"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
