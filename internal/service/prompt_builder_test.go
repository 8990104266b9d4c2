package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wildmind/studio-api/internal/model"
)

func TestBuildShotPrompt_ModelShot(t *testing.T) {
	p := BuildShotPrompt(PromptInput{
		Shot:          model.ShotClassic,
		Category:      model.CategoryJewelry,
		ItemType:      "necklace",
		Description:   "  silver chain with pearl  ",
		Dimensions:    "45cm",
		HasModelImage: true,
	})

	assert.True(t, strings.HasPrefix(p, "TECHNICAL SPECIFICATIONS:\n"))
	assert.Contains(t, p, "- Focus on jewelry details")
	assert.Contains(t, p, "- Use model reference for styling")
	assert.Contains(t, p, "Model wearing necklace identical to reference image, natural pose, studio lighting, silver chain with pearl, exact product match, soft lighting, elegant background, professional photo, jewelry detail, close-up shot, elegant styling")
	assert.Contains(t, p, "- Jewelry must match reference image EXACTLY")
	assert.Contains(t, p, "- Model wears item naturally")
	assert.Contains(t, p, "- Dimensions: (45cm)")
	assert.Contains(t, p, "- Style: Studio Portrait")
	assert.True(t, strings.HasSuffix(p, "- CRITICAL: Maintain exact product identity from reference image"))
}

func TestBuildShotPrompt_ProductShot(t *testing.T) {
	p := BuildShotPrompt(PromptInput{
		Shot:           model.ShotArtistic,
		Category:       model.CategoryFashion,
		ItemType:       "jacket",
		Description:    "denim jacket with patches",
		BrandAesthetic: model.AestheticCasual,
		HasModelImage:  true,
	})

	assert.Contains(t, p, "Product photo, denim jacket with patches, artistic background, no model, natural lighting, modern background, no human models, professional photo, fabric detail, clean presentation")
	assert.Contains(t, p, "- Focus on fashion item details")
	assert.Contains(t, p, "- NO HUMAN MODEL - Product only")
	assert.Contains(t, p, "- Style: Creative Display")
	assert.NotContains(t, p, "Use model reference")
	assert.NotContains(t, p, "Dimensions:")
}

func TestBuildShotPrompt_StylePerShot(t *testing.T) {
	want := map[model.ShotType]string{
		model.ShotClassic:   "Studio Portrait",
		model.ShotProfile:   "Artistic Profile",
		model.ShotLifestyle: "Lifestyle Candid",
		model.ShotFestive:   "Professional Showcase",
		model.ShotArtistic:  "Creative Display",
	}
	for shot, style := range want {
		p := BuildShotPrompt(PromptInput{Shot: shot, Category: model.CategoryHome, ItemType: "vase", Description: "ceramic blue vase"})
		assert.Contains(t, p, "- Style: "+style, shot)
		assert.Contains(t, p, "home item", shot)
	}
}

func TestBuildShotPrompt_Deterministic(t *testing.T) {
	in := PromptInput{Shot: model.ShotProfile, Category: model.CategoryJewelry, ItemType: "ring", Description: "emerald ring"}
	assert.Equal(t, BuildShotPrompt(in), BuildShotPrompt(in))
}
