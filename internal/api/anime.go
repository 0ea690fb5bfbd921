package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shapedtime/animeschedule/internal/anime"
	"github.com/shapedtime/animeschedule/internal/predict"
	"github.com/shapedtime/animeschedule/internal/season"
	"github.com/shapedtime/animeschedule/internal/service"
)

// BingeableResponse lists anime finished by a date.
type BingeableResponse struct {
	Season string        `json:"season"`
	ByDate string        `json:"by_date"`
	Anime  []anime.Entry `json:"anime"`
}

// SeasonalResponse lists a season's anime with predictions.
type SeasonalResponse struct {
	Season string        `json:"season"`
	Anime  []anime.Entry `json:"anime"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"agent_ready": s.tools != nil,
	})
}

func (s *Server) getBingeable(c *gin.Context) {
	sn, year, ok := s.seasonQuery(c)
	if !ok {
		return
	}

	var byDate time.Time
	if raw := c.Query("by_date"); raw != "" {
		d, err := predict.ParseDate("by_date", raw)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, "by_date must be YYYY-MM-DD")
			return
		}
		byDate = d
	} else {
		byDate = s.svc.Today().AddDate(0, 0, s.bingeWindowDays)
	}

	list, err := s.svc.Bingeable(c.Request.Context(), sn, year, &byDate)
	if err != nil {
		serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, BingeableResponse{
		Season: season.Label(sn, year),
		ByDate: predict.FormatDate(byDate),
		Anime:  nonNil(list),
	})
}

func (s *Server) getSeasonal(c *gin.Context) {
	sn, year, ok := s.seasonQuery(c)
	if !ok {
		return
	}

	list, err := s.svc.SeasonAnime(c.Request.Context(), sn, year)
	if err != nil {
		serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SeasonalResponse{
		Season: season.Label(sn, year),
		Anime:  nonNil(list),
	})
}

func (s *Server) searchAnime(c *gin.Context) {
	entry, err := s.svc.SearchLive(c.Request.Context(), c.Param("query"))
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) getAnime(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	entry, err := s.svc.GetSchedule(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) predict(c *gin.Context) {
	var req service.PredictInput
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.svc.PredictCompletion(req)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) getWeeklySchedule(c *gin.Context) {
	offset := 0
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, "offset must be an integer")
			return
		}
		offset = n
	}

	week, err := s.svc.WeeklySchedule(c.Request.Context(), offset)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, week)
}

func (s *Server) getEpisodesOn(c *gin.Context) {
	date, err := predict.ParseDate("date", c.Param("date"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	slots, err := s.svc.EpisodesOn(c.Request.Context(), date)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"date":     predict.FormatDate(date),
		"episodes": slots,
	})
}

// Helper functions

func parseID(c *gin.Context, param string) (int, bool) {
	id, err := strconv.Atoi(c.Param(param))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid ID format")
		return 0, false
	}
	if id <= 0 {
		errorResponse(c, http.StatusBadRequest, "ID must be positive")
		return 0, false
	}
	return id, true
}

// seasonQuery reads the season and year query parameters. Both default to
// the current season unless both are given.
func (s *Server) seasonQuery(c *gin.Context) (season.Season, int, bool) {
	rawSeason, rawYear := c.Query("season"), c.Query("year")
	if rawSeason == "" || rawYear == "" {
		sn, year := season.Current(s.svc.Today())
		return sn, year, true
	}

	sn, err := season.Parse(rawSeason)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return "", 0, false
	}
	year, err := strconv.Atoi(rawYear)
	if err != nil || year <= 0 {
		errorResponse(c, http.StatusBadRequest, "year must be a positive integer")
		return "", 0, false
	}
	return sn, year, true
}

func serviceError(c *gin.Context, err error) {
	var malformed *predict.MalformedDateError
	switch {
	case errors.Is(err, service.ErrAnimeNotFound):
		errorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidInput), errors.As(err, &malformed):
		errorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrStoreUnavailable):
		errorResponse(c, http.StatusServiceUnavailable, err.Error())
	default:
		errorResponse(c, http.StatusInternalServerError, err.Error())
	}
}

func nonNil(list []anime.Entry) []anime.Entry {
	if list == nil {
		return []anime.Entry{}
	}
	return list
}
