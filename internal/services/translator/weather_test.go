package translator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/ternarybob/arbor"
	"golang.org/x/text/unicode/norm"
)

func TestTranslateConditionDictionary(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Mây thay đổi, trời nắng", "구름 낌, 맑음"},
		{"Trời mưa", "비"},
		{"Nhiều mây", "흐림"},
		{"Nhiều mây, không mưa", "흐림, 비 없음"},
		{"Có mưa rào", "có 소나기"},
		{"Mây tản", "흐린 뒤 맑음"},
		{"Nắng nóng", "무더위"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := TranslateConditionDictionary(tt.input)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslateConditionDictionary_DecomposedInput(t *testing.T) {
	got, ok := TranslateConditionDictionary(norm.NFD.String("Nhiều mây"))
	assert.True(t, ok)
	assert.Equal(t, "흐림", got)
}

func TestWeatherTranslator_DictionaryHitNeverCallsGenerator(t *testing.T) {
	generator := new(mockGenerator)
	w := NewWeatherTranslator(generator, arbor.NewLogger())

	for _, condition := range []string{"Mây thay đổi, trời nắng", "Trời mưa", "Nhiều mây, không mưa", "Sương mù"} {
		assert.NotEmpty(t, w.TranslateCondition(context.Background(), condition))
	}

	generator.AssertNumberOfCalls(t, "GenerateText", 0)
}

func TestWeatherTranslator_EmptyInput(t *testing.T) {
	generator := new(mockGenerator)
	w := NewWeatherTranslator(generator, arbor.NewLogger())

	assert.Equal(t, "", w.TranslateCondition(context.Background(), ""))
	generator.AssertNumberOfCalls(t, "GenerateText", 0)
}

func TestWeatherTranslator_FallsBackToGenerator(t *testing.T) {
	generator := new(mockGenerator)
	generator.On("GenerateText", mock.Anything, mock.AnythingOfType("string")).Return("“건조함”\n", nil).Once()

	w := NewWeatherTranslator(generator, arbor.NewLogger())

	assert.Equal(t, "건조함", w.TranslateCondition(context.Background(), "Khô hanh"))
	generator.AssertExpectations(t)
}

func TestWeatherTranslator_GeneratorErrorKeepsOriginal(t *testing.T) {
	generator := new(mockGenerator)
	generator.On("GenerateText", mock.Anything, mock.Anything).Return("", errors.New("quota")).Once()

	w := NewWeatherTranslator(generator, arbor.NewLogger())

	assert.Equal(t, "Khô hanh", w.TranslateCondition(context.Background(), "Khô hanh"))
}
