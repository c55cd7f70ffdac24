package content_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techpath/content-pipeline/internal/content"
)

func TestParseCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    content.Category
		wantErr bool
	}{
		{name: "tech news", raw: "tech_news", want: content.CategoryTechNews},
		{name: "job listings", raw: "job_listings", want: content.CategoryJobListings},
		{name: "learning resources", raw: "learning_resources", want: content.CategoryLearningResources},
		{name: "unknown", raw: "sports", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "wrong case", raw: "Tech_News", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := content.ParseCategory(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCategoriesOrder(t *testing.T) {
	t.Parallel()

	want := []content.Category{
		content.CategoryTechNews,
		content.CategoryJobListings,
		content.CategoryLearningResources,
	}
	assert.Equal(t, want, content.Categories())
}

func TestParseDifficulty(t *testing.T) {
	t.Parallel()

	for _, valid := range []string{
		"beginner", "intermediate", "advanced",
		"entry_level", "junior", "mid_level", "senior",
	} {
		got, err := content.ParseDifficulty(valid)
		require.NoError(t, err)
		assert.Equal(t, content.Difficulty(valid), got)
	}

	_, err := content.ParseDifficulty("expert")
	assert.Error(t, err)
}

func TestNormalizeDifficulty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, content.DifficultySenior, content.NormalizeDifficulty("senior"))
	assert.Equal(t, content.DifficultyBeginner, content.NormalizeDifficulty("expert"))
	assert.Equal(t, content.DifficultyBeginner, content.NormalizeDifficulty(""))
}
