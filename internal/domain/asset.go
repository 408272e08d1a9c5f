package domain

// Tag kinds attachable to an offer.
const (
	TagKindCategory = "category"
	TagKindStore    = "store"
)

// Media collection names.
const (
	CollectionGallery   = "gallery"
	CollectionThumbnail = "thumbnail"
)

// Asset is a media asset attached to a campaign and copied onto its offers
// by the post-commit media followup.
type Asset struct {
	ID         string `json:"id"`
	Collection string `json:"collection"`
	URL        string `json:"url"`
}
