package testutil

import (
	"time"

	gateway "github.com/latitude36/cvps-gateway/internal"
)

// Float returns a pointer to v, for optional price fields.
func Float(v float64) *float64 { return &v }

// FixtureProducts returns a small catalog exercising tags, categories,
// missing website prices, and an inactive item.
func FixtureProducts() []gateway.ProductSummary {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return []gateway.ProductSummary{
		{
			ID: 1, Name: "Olive Tapenade", Slug: "olive-tapenade",
			ShortDescription: "Savoury olive spread",
			IsActive:         true,
			Tags:             []string{"gift", "gourmet"},
			SearchTerms:      []string{"antipasto", "spread"},
			Category:         gateway.CategoryRef{Name: "Pantry", Slug: "pantry"},
			CategorySlugs:    []string{"pantry"},
			Price:            gateway.Price{Website: Float(12.50), Wholesale: Float(8.00)},
			TagCategories:    gateway.TagMetadata{"Occasion": {"gift"}, "Style": {"gourmet"}},
			Popularity:       40,
			CreatedAt:        base,
		},
		{
			ID: 2, Name: "Gift Hamper", Slug: "gift-hamper",
			ShortDescription: "Curated hamper",
			IsActive:         true,
			Tags:             []string{"gift"},
			Category:         gateway.CategoryRef{Name: "Hampers", Slug: "hampers"},
			CategorySlugs:    []string{"hampers"},
			Price:            gateway.Price{Website: Float(89.00)},
			TagCategories:    gateway.TagMetadata{"Occasion": {"gift"}},
			Popularity:       90,
			CreatedAt:        base.Add(24 * time.Hour),
		},
		{
			ID: 3, Name: "Wholesale Crate", Slug: "wholesale-crate",
			IsActive:      true,
			Tags:          []string{"bulk"},
			Category:      gateway.CategoryRef{Name: "Wholesale", Slug: "wholesale"},
			CategorySlugs: []string{"wholesale"},
			Price:         gateway.Price{Wholesale: Float(200.00)},
			Popularity:    5,
			CreatedAt:     base.Add(48 * time.Hour),
		},
		{
			ID: 4, Name: "Retired Sampler", Slug: "retired-sampler",
			IsActive:      false,
			Tags:          []string{"gift"},
			CategorySlugs: []string{"pantry"},
			Price:         gateway.Price{Website: Float(5.00)},
		},
	}
}

// FixtureCategories returns a two-root category forest.
func FixtureCategories() []gateway.CategoryNode {
	return []gateway.CategoryNode{
		{ID: 10, Name: "Pantry", Slug: "pantry", Level: 0, Parent: -1},
		{ID: 11, Name: "Spreads", Slug: "spreads", Level: 1, Parent: 0},
		{ID: 20, Name: "Hampers", Slug: "hampers", Level: 0, Parent: -1},
	}
}

// FixturePosts returns two published blog posts, newest first.
func FixturePosts() []gateway.BlogSummary {
	return []gateway.BlogSummary{
		{ID: 2, Title: "Harvest Notes", Slug: "harvest-notes", Excerpt: "This season's picks"},
		{ID: 1, Title: "Welcome", Slug: "welcome", Excerpt: "First post"},
	}
}

// FixtureHomepage returns a minimal homepage document.
func FixtureHomepage() *gateway.HomepageData {
	return &gateway.HomepageData{
		Hero: gateway.HeroSection{
			Title:    "Latitude 36 Produce",
			Subtitle: "From our growers to your door",
			BackgroundImage: gateway.MediaImage{
				URL: "/media/hero.jpg", Alt: "Orchard at dawn",
			},
		},
		WelcomeBanner: gateway.WelcomeBanner{Title: "Welcome", Tagline: "Grown here"},
	}
}

// FixtureNewsletter returns newsletter signup content.
func FixtureNewsletter() *gateway.NewsletterContent {
	return &gateway.NewsletterContent{
		Title:       "Stay in the loop",
		Description: "Seasonal offers and new arrivals",
		Placeholder: "you@example.com",
		ButtonText:  "Subscribe",
		PrivacyText: "We never share your address",
		Settings:    gateway.NewsletterSettings{Enabled: true},
	}
}
