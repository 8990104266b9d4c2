package service

import (
	"fmt"
	"strings"

	"github.com/wildmind/studio-api/internal/model"
)

// photoStyle is one prompt template family
type photoStyle struct {
	id       string
	name     string
	template string
}

var (
	styleStudioPortrait = photoStyle{
		id:       "studio_portrait",
		name:     "Studio Portrait",
		template: "Model wearing {item} identical to reference image, natural pose, studio lighting, {description}, exact product match",
	}
	styleLifestyleCandid = photoStyle{
		id:       "lifestyle_candid",
		name:     "Lifestyle Candid",
		template: "Model wearing {item} identical to reference image, natural setting, {description}, lifestyle photo, exact product match",
	}
	styleArtisticProfile = photoStyle{
		id:       "artistic_profile",
		name:     "Artistic Profile",
		template: "Model wearing {item} identical to reference image, side view, {description}, fashion photo, exact product match",
	}
	styleProfessionalShowcase = photoStyle{
		id:       "professional_showcase",
		name:     "Professional Showcase",
		template: "Product photography, {description}, clean background, no model",
	}
	styleCreativeDisplay = photoStyle{
		id:       "creative_display",
		name:     "Creative Display",
		template: "Product photo, {description}, artistic background, no model",
	}
)

// shotStyles binds every shot to the template that matches its framing.
var shotStyles = map[model.ShotType]photoStyle{
	model.ShotClassic:   styleStudioPortrait,
	model.ShotProfile:   styleArtisticProfile,
	model.ShotLifestyle: styleLifestyleCandid,
	model.ShotFestive:   styleProfessionalShowcase,
	model.ShotArtistic:  styleCreativeDisplay,
}

type aesthetic struct {
	lighting   string
	background string
}

var aesthetics = map[model.BrandAesthetic]aesthetic{
	model.AestheticLuxury: {lighting: "soft lighting", background: "elegant background"},
	model.AestheticCasual: {lighting: "natural lighting", background: "modern background"},
}

type enhancement struct {
	model   string
	product string
}

var categoryEnhancements = map[model.Category]enhancement{
	model.CategoryJewelry: {
		model:   ", jewelry detail, close-up shot, elegant styling",
		product: ", jewelry detail, premium presentation",
	},
	model.CategoryFashion: {
		model:   ", fashion styling, full body pose, natural wear",
		product: ", fabric detail, clean presentation",
	},
}

// PromptInput carries everything a shot prompt depends on
type PromptInput struct {
	Shot           model.ShotType
	Category       model.Category
	ItemType       string
	Description    string
	Dimensions     string
	BrandAesthetic model.BrandAesthetic
	HasModelImage  bool
}

// BuildShotPrompt renders the full prompt for one shot. Output depends only
// on the input.
func BuildShotPrompt(in PromptInput) string {
	style, ok := shotStyles[in.Shot]
	if !ok {
		style = styleProfessionalShowcase
	}
	modelShot := in.Shot.IsModelShot()

	look, ok := aesthetics[in.BrandAesthetic]
	if !ok {
		look = aesthetics[model.AestheticLuxury]
	}

	body := strings.NewReplacer(
		"{item}", in.ItemType,
		"{description}", strings.TrimSpace(in.Description),
	).Replace(style.template)

	if modelShot {
		body = fmt.Sprintf("%s, %s, %s, professional photo", body, look.lighting, look.background)
	} else {
		body = fmt.Sprintf("%s, %s, %s, no human models, professional photo", body, look.lighting, look.background)
	}

	if e, ok := categoryEnhancements[in.Category]; ok {
		if modelShot {
			body += e.model
		} else {
			body += e.product
		}
	}

	subject, subjectTitle := categorySubject(in.Category)

	var b strings.Builder
	b.WriteString("TECHNICAL SPECIFICATIONS:\n")
	b.WriteString("- High resolution photo\n")
	fmt.Fprintf(&b, "- Focus on %s details\n", subject)
	b.WriteString("- Accurate colors\n")
	b.WriteString("- Professional lighting")
	if in.HasModelImage && modelShot {
		b.WriteString("\n- Use model reference for styling")
	}

	b.WriteString("\n\n")
	b.WriteString(body)
	b.WriteString("\n\n")

	b.WriteString("REQUIREMENTS:\n")
	fmt.Fprintf(&b, "- %s must match reference image EXACTLY\n", subjectTitle)
	b.WriteString("- Product identity, colors, materials, and design must be identical to uploaded image\n")
	b.WriteString("- Professional photo quality\n")
	if modelShot {
		b.WriteString("- Model wears item naturally with full body pose for shoes/bags, close-up for jewelry\n")
	} else {
		b.WriteString("- NO HUMAN MODEL - Product only\n")
	}
	if d := strings.TrimSpace(in.Dimensions); d != "" {
		fmt.Fprintf(&b, "- Dimensions: (%s)\n", d)
	}
	fmt.Fprintf(&b, "- Style: %s\n", style.name)
	b.WriteString("- CRITICAL: Maintain exact product identity from reference image")

	return b.String()
}

func categorySubject(c model.Category) (string, string) {
	switch c {
	case model.CategoryJewelry:
		return "jewelry", "Jewelry"
	case model.CategoryHome:
		return "home item", "Home item"
	}
	return "fashion item", "Fashion item"
}
