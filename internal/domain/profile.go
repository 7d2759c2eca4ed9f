package domain

// CreatorProfile describes a creator account on a platform.
type CreatorProfile struct {
	Name          string `json:"name"`
	Handle        string `json:"handle"`
	AvatarURL     string `json:"avatar"`
	Bio           string `json:"bio"`
	FollowerCount int64  `json:"follower_count"`
	LikeCount     int64  `json:"like_count"`
	VideoCount    int64  `json:"video_count"`
}

// PostSummary is one post from a creator's listing. Callers pick a subset
// of these to ingest individually.
type PostSummary struct {
	URL             string `json:"url"`
	Title           string `json:"title"`
	ThumbnailURL    string `json:"thumbnail_url"`
	DurationSeconds int    `json:"duration_seconds"`
	Stats           Stats  `json:"stats"`
	Format          string `json:"format"`
}

// FormatGroup aggregates posts sharing an inferred content format.
type FormatGroup struct {
	Posts         []PostSummary `json:"posts"`
	AvgViews      float64       `json:"avg_views"`
	AvgEngagement float64       `json:"avg_engagement"`
}

// ProfileExtraction is the transient result of a profile listing. It is
// returned directly to the caller and never persisted.
type ProfileExtraction struct {
	Profile      CreatorProfile         `json:"profile"`
	Posts        []PostSummary          `json:"posts"`
	FormatGroups map[string]FormatGroup `json:"format_groups"`
}
