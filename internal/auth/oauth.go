// Package auth runs the Strava OAuth2 flow and keeps the stored token fresh.
package auth

import (
	"fmt"
	"net/url"

	"golang.org/x/oauth2"

	"strava-stats/internal/store"
)

const (
	AuthURL  = "https://www.strava.com/oauth/authorize"
	TokenURL = "https://www.strava.com/oauth/token"

	// DefaultRedirectURL is served by the local callback server
	DefaultRedirectURL = "http://localhost:8089/callback"
)

// Strava expects a single comma-separated scope value; activity:read_all is
// needed to see private activities and their streams.
var Scopes = []string{"read,activity:read_all"}

// Config holds the OAuth client credentials
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// NewOAuthConfig creates an oauth2.Config for Strava
func NewOAuthConfig(cfg Config) *oauth2.Config {
	redirect := cfg.RedirectURL
	if redirect == "" {
		redirect = DefaultRedirectURL
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   AuthURL,
			TokenURL:  TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: redirect,
		Scopes:      Scopes,
	}
}

// callbackAddr returns the listen address and path of the redirect URL
func callbackAddr(redirectURL string) (addr, path string, err error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return "", "", fmt.Errorf("parsing redirect URL: %w", err)
	}
	if u.Port() == "" {
		return "", "", fmt.Errorf("redirect URL %q has no port", redirectURL)
	}
	path = u.Path
	if path == "" {
		path = "/"
	}
	return ":" + u.Port(), path, nil
}

// Result is the outcome of a successful authorization
type Result struct {
	Token     *oauth2.Token
	AthleteID int64
}

// StoreAuth converts the result to its persisted form
func (r *Result) StoreAuth() *store.Auth {
	return &store.Auth{
		AthleteID:    r.AthleteID,
		AccessToken:  r.Token.AccessToken,
		RefreshToken: r.Token.RefreshToken,
		ExpiresAt:    r.Token.Expiry,
	}
}

// TokenFromAuth rebuilds an oauth2 token from stored credentials
func TokenFromAuth(a *store.Auth) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  a.AccessToken,
		RefreshToken: a.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       a.ExpiresAt,
	}
}

// ExtractAthleteID reads the athlete id Strava embeds in the token response
func ExtractAthleteID(token *oauth2.Token) int64 {
	if athlete, ok := token.Extra("athlete").(map[string]interface{}); ok {
		if id, ok := athlete["id"].(float64); ok {
			return int64(id)
		}
	}
	return 0
}
