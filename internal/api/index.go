package api

import (
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

// minifyHTML minifies an HTML page including its inline styles and scripts.
func minifyHTML(raw []byte) ([]byte, error) {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/javascript", js.Minify)

	return m.Bytes("text/html", raw)
}

// indexHandler serves page, minified once up front. The raw page is served if
// minification fails.
func indexHandler(page []byte) http.HandlerFunc {
	body, err := minifyHTML(page)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to minify index page, serving as is")
		body = page
	} else {
		log.Debug().
			Int("raw_bytes", len(page)).
			Int("minified_bytes", len(body)).
			Msg("Index page minified")
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(body)
	}
}
