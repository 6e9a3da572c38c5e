// Package scrape defines the validated request model for scraping sessions.
//
// A request is a closed tagged variant over three modes: plain name search,
// email fast-match, and field-filtered search. Validation happens once at
// construction so the pipeline never re-checks parameter combinations.
package scrape
