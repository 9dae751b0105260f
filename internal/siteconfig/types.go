package siteconfig

import "time"

// ContactInfo is the public contact block shown on the site.
type ContactInfo struct {
	Address      string `json:"address,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
	WorkingHours string `json:"workingHours,omitempty"`
}

type SocialMedia struct {
	Facebook  string `json:"facebook,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
}

type SEO struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Keywords    string `json:"keywords,omitempty"`
	OGImage     string `json:"ogImage,omitempty"`
}

// CustomPage is one editable content page keyed by slug.
type CustomPage struct {
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// SiteConfig is the singleton site configuration document.
type SiteConfig struct {
	VideoURL     string                `json:"videoUrl"`
	HomeHeroText string                `json:"homeHeroText"`
	ContactInfo  ContactInfo           `json:"contactInfo"`
	SocialMedia  SocialMedia           `json:"socialMedia"`
	SEO          SEO                   `json:"seo"`
	CustomPages  map[string]CustomPage `json:"customPages"`
	LastUpdated  time.Time             `json:"lastUpdated"`
}

// UpdateInput carries a partial configuration update; nil sections are left
// untouched.
type UpdateInput struct {
	VideoURL     *string      `json:"videoUrl"`
	HomeHeroText *string      `json:"homeHeroText"`
	ContactInfo  *ContactInfo `json:"contactInfo"`
	SocialMedia  *SocialMedia `json:"socialMedia"`
	SEO          *SEO         `json:"seo"`
}

// Defaults is the single source of default values used when the singleton
// row is created lazily.
func Defaults() SiteConfig {
	return SiteConfig{
		HomeHeroText: "Bienvenue sur notre site",
		ContactInfo: ContactInfo{
			Email:   "contact@example.com",
			Phone:   "+33 1 23 45 67 89",
			Address: "123 Rue Exemple, Paris",
		},
		SocialMedia: SocialMedia{
			Facebook:  "https://facebook.com",
			Instagram: "https://instagram.com",
			Twitter:   "https://twitter.com",
		},
		SEO: SEO{
			Title:       "Vente de véhicules à l'export",
			Description: "Découvrez notre sélection de véhicules de qualité",
			Keywords:    "voiture, automobile, vente, occasion, neuf",
		},
		CustomPages: map[string]CustomPage{
			"about": {
				Title:       "À Propos",
				Content:     "<p>Contenu de la page à propos</p>",
				LastUpdated: time.Now().UTC(),
			},
		},
	}
}
