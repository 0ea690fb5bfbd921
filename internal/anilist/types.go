package anilist

// Media is an AniList media object as returned by the GraphQL API.
type Media struct {
	ID    int `json:"id"`
	Title struct {
		Romaji  string `json:"romaji"`
		English string `json:"english"`
		Native  string `json:"native"`
	} `json:"title"`
	Status            string             `json:"status"`
	Episodes          *int               `json:"episodes"`
	NextAiringEpisode *NextAiringEpisode `json:"nextAiringEpisode"`
	AiringSchedule    struct {
		Nodes []AiringNode `json:"nodes"`
	} `json:"airingSchedule"`
	StartDate    FuzzyDate `json:"startDate"`
	EndDate      FuzzyDate `json:"endDate"`
	Season       string    `json:"season"`
	SeasonYear   *int      `json:"seasonYear"`
	Genres       []string  `json:"genres"`
	AverageScore *int      `json:"averageScore"`
	CoverImage   struct {
		Large  string `json:"large"`
		Medium string `json:"medium"`
	} `json:"coverImage"`
	BannerImage string `json:"bannerImage"`
	Studios     struct {
		Nodes []struct {
			Name string `json:"name"`
		} `json:"nodes"`
	} `json:"studios"`
}

// NextAiringEpisode is the next episode known to AniList.
type NextAiringEpisode struct {
	Episode         int   `json:"episode"`
	AiringAt        int64 `json:"airingAt"`
	TimeUntilAiring int64 `json:"timeUntilAiring"`
}

// AiringNode is one entry of the airing schedule.
type AiringNode struct {
	Episode  int   `json:"episode"`
	AiringAt int64 `json:"airingAt"`
}

// FuzzyDate is AniList's partially-known calendar date.
type FuzzyDate struct {
	Year  *int `json:"year"`
	Month *int `json:"month"`
	Day   *int `json:"day"`
}

type pageInfo struct {
	HasNextPage bool `json:"hasNextPage"`
	CurrentPage int  `json:"currentPage"`
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}
