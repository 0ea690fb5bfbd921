package agent

// Tool names.
const (
	ToolSearchAnimeCache = "search_anime_cache"
	ToolSearchAnime      = "search_anime"
	ToolGetSchedule      = "get_anime_schedule"
	ToolPredict          = "predict_completion"
	ToolSeasonAnime      = "get_season_anime"
	ToolBingeable        = "get_bingeable_anime"
	ToolWeeklySchedule   = "get_weekly_schedule"
)

// Definition describes a tool to a function-calling model. Parameters is
// a JSON schema object.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

func prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}

func object(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

var seasonProps = map[string]any{
	"season": prop("string", "Season: Winter, Spring, Summer, Fall"),
	"year":   prop("integer", "Year (e.g., 2025)"),
}

var definitions = []Definition{
	{
		Name:        ToolSearchAnimeCache,
		Description: "Search for anime by title in locally stored data. Fast but may not have the latest airing info. Use for initial lookups.",
		Parameters: object(map[string]any{
			"query": prop("string", "Anime title to search for (partial match supported)"),
		}, "query"),
	},
	{
		Name:        ToolSearchAnime,
		Description: "Search for anime by title using the live AniList API. Use when you need current episode or airing info.",
		Parameters: object(map[string]any{
			"query": prop("string", "Anime title to search for"),
		}, "query"),
	},
	{
		Name:        ToolGetSchedule,
		Description: "Get detailed schedule info for an anime by its AniList ID, with a completion prediction. Use after finding anime via search.",
		Parameters: object(map[string]any{
			"anime_id": prop("integer", "AniList anime ID"),
		}, "anime_id"),
	},
	{
		Name:        ToolPredict,
		Description: "Calculate the predicted completion date for an anime. Use with data from the search or schedule tools.",
		Parameters: object(map[string]any{
			"anime_id":                    prop("integer", "AniList anime ID"),
			"title":                       prop("string", "Anime title"),
			"status":                      prop("string", "Status: FINISHED, RELEASING, NOT_YET_RELEASED, CANCELLED, HIATUS"),
			"current_episode":             prop("integer", "Latest aired episode"),
			"total_episodes":              prop("integer", "Total planned episodes"),
			"end_date":                    prop("string", "Known end date (YYYY-MM-DD)"),
			"next_airing_at":              prop("integer", "Unix time the next episode airs"),
			"predicted_end_from_schedule": prop("string", "Air date of the last scheduled episode (YYYY-MM-DD)"),
		}, "anime_id", "title", "status"),
	},
	{
		Name:        ToolSeasonAnime,
		Description: "Get all anime from a specific season with predictions. Use for seasonal queries.",
		Parameters:  object(seasonProps, "season", "year"),
	},
	{
		Name:        ToolBingeable,
		Description: "Get anime that are finished or will finish by a date. Use to find binge-watchable shows.",
		Parameters: object(map[string]any{
			"season":  seasonProps["season"],
			"year":    seasonProps["year"],
			"by_date": prop("string", "Cutoff date (YYYY-MM-DD). Shows finishing by this date."),
		}, "season", "year"),
	},
	{
		Name:        ToolWeeklySchedule,
		Description: "Get the episodes airing in a week, grouped by day. Use for 'what airs this week' questions.",
		Parameters: object(map[string]any{
			"weeks_offset": prop("integer", "0 for this week, 1 for next week, -1 for last week"),
		}),
	},
}

// Definitions returns the tool definitions in a stable order.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}
