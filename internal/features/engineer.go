// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package features

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

// Genre is one entry of the fixed genre vocabulary.
type Genre struct {
	ID     int
	Name   string
	Column string
}

// Genres is the catalog genre vocabulary, in flag column order.
var Genres = []Genre{
	{28, "Action", "is_action"},
	{12, "Adventure", "is_adventure"},
	{16, "Animation", "is_animation"},
	{35, "Comedy", "is_comedy"},
	{80, "Crime", "is_crime"},
	{99, "Documentary", "is_documentary"},
	{18, "Drama", "is_drama"},
	{10751, "Family", "is_family"},
	{14, "Fantasy", "is_fantasy"},
	{36, "History", "is_history"},
	{27, "Horror", "is_horror"},
	{10402, "Music", "is_music"},
	{9648, "Mystery", "is_mystery"},
	{10749, "Romance", "is_romance"},
	{878, "Science Fiction", "is_science_fiction"},
	{53, "Thriller", "is_thriller"},
	{10752, "War", "is_war"},
	{37, "Western", "is_western"},
}

// Tier labels.
var (
	RatingTierLabels     = []string{"Low", "Medium", "High", "Excellent"}
	ratingTierEdges      = []float64{0, 5, 6.5, 8, 10}
	PopularityTierLabels = []string{"Very_Low", "Low", "Medium", "High", "Very_High"}
)

// DefaultReferenceYear anchors movie_age.
const DefaultReferenceYear = 2024

// EngineerOptions controls Engineer.
type EngineerOptions struct {
	// ReferenceYear is subtracted from release_year to get movie_age.
	ReferenceYear int

	// PopularityEdges reuses previously fitted quantile edges. When nil the
	// edges are fitted on this frame.
	PopularityEdges []float64
}

var releaseLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	time.DateTime,
	"2006-01",
	"2006",
}

// Engineer derives calendar, genre, language, popularity, tier and text
// columns. It returns a new frame and the popularity tier edges it used.
func Engineer(f *Frame, opts EngineerOptions) (*Frame, []float64, error) {
	if opts.ReferenceYear == 0 {
		opts.ReferenceYear = DefaultReferenceYear
	}
	out := f.Clone()
	n := out.Len()

	if c, ok := out.Column("release_date"); ok {
		engineerCalendar(out, c, opts.ReferenceYear)
	}

	if c, ok := out.Column("genre_ids"); ok {
		engineerGenres(out, c)
	}

	if c, ok := out.Column("original_language"); ok {
		english, korean, nonEnglish := make([]float64, n), make([]float64, n), make([]float64, n)
		for i := 0; i < n; i++ {
			lang := c.Text(i)
			missing := c.IsMissing(i)
			english[i] = flag(!missing && lang == "en")
			korean[i] = flag(!missing && lang == "ko")
			nonEnglish[i] = flag(missing || lang != "en")
		}
		out.Set(NewNumeric("is_english", english))
		out.Set(NewNumeric("is_korean", korean))
		out.Set(NewNumeric("is_non_english", nonEnglish))
	}

	pop, _ := out.Column("popularity")
	votes, _ := out.Column("vote_count")
	logPop, logVotes, efficiency := make([]float64, n), make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		logPop[i] = math.Log1p(pop.Num[i])
		logVotes[i] = math.Log1p(votes.Num[i])
		efficiency[i] = votes.Num[i] / (pop.Num[i] + 1)
	}
	out.Set(NewNumeric("log_popularity", logPop))
	out.Set(NewNumeric("log_vote_count", logVotes))
	out.Set(NewNumeric("vote_efficiency", efficiency))

	rating, _ := out.Column("vote_average")
	out.Set(binColumn("rating_tier", rating.Num, ratingTierEdges, RatingTierLabels, false))

	edges := opts.PopularityEdges
	if edges == nil {
		edges = QuantileEdges(pop.Num, len(PopularityTierLabels))
	}
	out.Set(binColumn("popularity_tier", pop.Num, edges, PopularityTierLabels, true))

	if c, ok := out.Column("adult"); ok {
		adult := make([]float64, n)
		for i := 0; i < n; i++ {
			adult[i] = flag(truthy(c, i))
		}
		out.Set(NewNumeric("is_adult", adult))
	}

	if c, ok := out.Column("title"); ok {
		length, words := nanSlice(n), nanSlice(n)
		for i := 0; i < n; i++ {
			if c.IsMissing(i) {
				continue
			}
			t := c.Text(i)
			length[i] = float64(utf8.RuneCountInString(t))
			words[i] = float64(len(strings.Fields(t)))
		}
		out.Set(NewNumeric("title_length", length))
		out.Set(NewNumeric("title_word_count", words))
	}

	if c, ok := out.Column("overview"); ok {
		length, has := make([]float64, n), make([]float64, n)
		for i := 0; i < n; i++ {
			t := c.Text(i)
			length[i] = float64(utf8.RuneCountInString(t))
			has[i] = flag(!c.IsMissing(i) && t != "")
		}
		out.Set(NewNumeric("overview_length", length))
		out.Set(NewNumeric("has_overview", has))
	}

	for _, p := range []struct{ src, dst string }{
		{"poster_path", "has_poster"},
		{"backdrop_path", "has_backdrop"},
	} {
		c, ok := out.Column(p.src)
		if !ok {
			continue
		}
		has := make([]float64, n)
		for i := 0; i < n; i++ {
			has[i] = flag(!c.IsMissing(i))
		}
		out.Set(NewNumeric(p.dst, has))
	}

	return out, edges, nil
}

func engineerCalendar(out *Frame, c *Column, referenceYear int) {
	n := out.Len()
	dates := make([]time.Time, n)
	valid := make([]bool, n)
	year, month, quarter, age := nanSlice(n), nanSlice(n), nanSlice(n), nanSlice(n)
	summer, holiday, spring := make([]float64, n), make([]float64, n), make([]float64, n)

	for i := 0; i < n; i++ {
		t, ok := parseReleaseDate(c, i)
		if !ok {
			continue
		}
		dates[i], valid[i] = t, true
		m := int(t.Month())
		year[i] = float64(t.Year())
		month[i] = float64(m)
		quarter[i] = float64((m-1)/3 + 1)
		age[i] = float64(referenceYear - t.Year())
		summer[i] = flag(m >= 6 && m <= 8)
		holiday[i] = flag(m == 11 || m == 12)
		spring[i] = flag(m >= 3 && m <= 5)
	}

	out.Set(NewTime("release_date", dates, valid))
	out.Set(NewNumeric("release_year", year))
	out.Set(NewNumeric("release_month", month))
	out.Set(NewNumeric("release_quarter", quarter))
	out.Set(NewNumeric("movie_age", age))
	out.Set(NewNumeric("is_summer_release", summer))
	out.Set(NewNumeric("is_holiday_release", holiday))
	out.Set(NewNumeric("is_spring_release", spring))
}

func parseReleaseDate(c *Column, i int) (time.Time, bool) {
	if c.IsMissing(i) {
		return time.Time{}, false
	}
	if c.Kind == Time {
		return c.Time[i], true
	}
	s := strings.TrimSpace(c.Text(i))
	for _, layout := range releaseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func engineerGenres(out *Frame, c *Column) {
	n := out.Len()
	text := make([]string, n)
	primary, count := make([]float64, n), make([]float64, n)
	flags := make([][]float64, len(Genres))
	for g := range flags {
		flags[g] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		ids := ParseGenreIDs(c, i)
		text[i] = formatGenreList(ids)
		count[i] = float64(len(ids))
		if len(ids) > 0 {
			primary[i] = float64(ids[0])
		}
		for g, genre := range Genres {
			for _, id := range ids {
				if id == genre.ID {
					flags[g][i] = 1
					break
				}
			}
		}
	}

	out.Set(NewCategorical("genre_ids", text, nil))
	out.Set(NewNumeric("primary_genre", primary))
	out.Set(NewNumeric("genre_count", count))
	for g, genre := range Genres {
		out.Set(NewNumeric(genre.Column, flags[g]))
	}
}

// ParseGenreIDs reads row i of a genre column. Array text is accepted with
// either quote style; anything unparseable yields no genres.
func ParseGenreIDs(c *Column, i int) []int {
	if c.IsMissing(i) || c.Kind != Categorical {
		return nil
	}
	s := strings.TrimSpace(c.Str[i])
	if !strings.HasPrefix(s, "[") {
		return nil
	}
	var raw []any
	if err := json.Unmarshal([]byte(strings.ReplaceAll(s, "'", `"`)), &raw); err != nil {
		return nil
	}
	ids := make([]int, 0, len(raw))
	for _, v := range raw {
		switch x := v.(type) {
		case float64:
			ids = append(ids, int(x))
		case string:
			if id, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func formatGenreList(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// QuantileEdges returns the deduplicated bin edges for q equal-frequency
// bins over the non-NaN values.
func QuantileEdges(values []float64, q int) []float64 {
	edges := make([]float64, 0, q+1)
	for k := 0; k <= q; k++ {
		e := quantile(values, float64(k)/float64(q))
		if math.IsNaN(e) {
			return nil
		}
		if len(edges) == 0 || e != edges[len(edges)-1] {
			edges = append(edges, e)
		}
	}
	return edges
}

// binColumn assigns labels to right-closed bins. With includeLowest the
// first bin is closed on the left too. Labels come from the front of the
// list when there are fewer bins than labels; a single edge is one bin.
func binColumn(name string, values, edges []float64, labels []string, includeLowest bool) *Column {
	n := len(values)
	out := make([]string, n)
	valid := make([]bool, n)
	for i, v := range values {
		if b := binIndex(v, edges, includeLowest); b >= 0 && b < len(labels) {
			out[i], valid[i] = labels[b], true
		}
	}
	return NewCategorical(name, out, valid)
}

func binIndex(v float64, edges []float64, includeLowest bool) int {
	if math.IsNaN(v) || len(edges) == 0 {
		return -1
	}
	if len(edges) == 1 {
		if v == edges[0] {
			return 0
		}
		return -1
	}
	if includeLowest && v == edges[0] {
		return 0
	}
	if v <= edges[0] || v > edges[len(edges)-1] {
		return -1
	}
	for b := 0; b < len(edges)-1; b++ {
		if v <= edges[b+1] {
			return b
		}
	}
	return -1
}

func truthy(c *Column, i int) bool {
	if c.IsMissing(i) {
		return false
	}
	switch c.Kind {
	case Boolean:
		return c.Bool[i]
	case Numeric:
		return c.Num[i] != 0
	case Categorical:
		s := strings.ToLower(strings.TrimSpace(c.Str[i]))
		return s == "true" || s == "1"
	}
	return false
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
