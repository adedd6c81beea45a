// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

package models

// TMDBSearchResult is one entry from a TMDB multi search.
type TMDBSearchResult struct {
	ID           int64   `json:"id"`
	MediaType    string  `json:"media_type"`
	Title        string  `json:"title,omitempty"`
	Name         string  `json:"name,omitempty"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	ReleaseDate  string  `json:"release_date,omitempty"`
	FirstAirDate string  `json:"first_air_date,omitempty"`
	VoteAverage  float64 `json:"vote_average"`
	Popularity   float64 `json:"popularity"`
}

// TMDBSearchResponse is the page envelope TMDB returns for search endpoints.
type TMDBSearchResponse struct {
	Page         int                `json:"page"`
	Results      []TMDBSearchResult `json:"results"`
	TotalPages   int                `json:"total_pages"`
	TotalResults int                `json:"total_results"`
}

// TMDBDetail is a movie or TV show detail record. Runtime applies to movies,
// NumberOfSeasons and NumberOfEpisodes to TV.
type TMDBDetail struct {
	ID               int64       `json:"id"`
	Title            string      `json:"title,omitempty"`
	Name             string      `json:"name,omitempty"`
	Overview         string      `json:"overview"`
	PosterPath       string      `json:"poster_path"`
	BackdropPath     string      `json:"backdrop_path"`
	ReleaseDate      string      `json:"release_date,omitempty"`
	FirstAirDate     string      `json:"first_air_date,omitempty"`
	Runtime          int         `json:"runtime,omitempty"`
	NumberOfSeasons  int         `json:"number_of_seasons,omitempty"`
	NumberOfEpisodes int         `json:"number_of_episodes,omitempty"`
	Genres           []TMDBGenre `json:"genres"`
	VoteAverage      float64     `json:"vote_average"`
	Status           string      `json:"status"`
}

// TMDBGenre is a genre tag on a detail record.
type TMDBGenre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
