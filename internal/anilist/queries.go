package anilist

const mediaFields = `
    id
    title { romaji english native }
    status
    episodes
    nextAiringEpisode { episode airingAt timeUntilAiring }
    airingSchedule(notYetAired: true, perPage: 25) {
      nodes { episode airingAt }
    }
    startDate { year month day }
    endDate { year month day }
    season
    seasonYear
    genres
    averageScore
    coverImage { large medium }
    bannerImage
    studios(isMain: true) { nodes { name } }
`

const animeQuery = `
query ($id: Int, $search: String) {
  Media(id: $id, search: $search, type: ANIME) {` + mediaFields + `  }
}
`

const seasonalQuery = `
query ($season: MediaSeason, $year: Int, $page: Int, $perPage: Int) {
  Page(page: $page, perPage: $perPage) {
    pageInfo { hasNextPage currentPage }
    media(season: $season, seasonYear: $year, type: ANIME, sort: POPULARITY_DESC) {` + mediaFields + `    }
  }
}
`
