package web

import "embed"

// TemplatesFS embeds the HTML templates for the admin screens.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds static assets.
//
//go:embed static/*
var StaticFS embed.FS
