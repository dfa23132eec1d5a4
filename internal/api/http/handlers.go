package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/signed-url-shortener/internal/database"
	"github.com/vadimbarashkov/signed-url-shortener/internal/token"
	"github.com/vadimbarashkov/signed-url-shortener/pkg/response"
)

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "pong")
}

type urlRequest struct {
	URL string `json:"url" validate:"required"`
}

func handleShortenURL(svc URLService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleShortenURL"

	return func(w http.ResponseWriter, r *http.Request) {
		var req urlRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		tok, err := svc.ShortenURL(r.Context(), req.URL)
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusOK)
			render.JSON(w, r, response.ShortenFailed(req.URL))
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.Shortened(req.URL, tok))
	}
}

func handleListTokens(svc URLService) http.HandlerFunc {
	const op = "api.http.handleListTokens"

	return func(w http.ResponseWriter, r *http.Request) {
		tokens, err := svc.ListTokens(r.Context())
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusOK)
			render.JSON(w, r, response.TokenListFailed())
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.TokenList(tokens))
	}
}

func handleGetURLStats(svc URLService, tokenLength int) http.HandlerFunc {
	const op = "api.http.handleGetURLStats"

	return func(w http.ResponseWriter, r *http.Request) {
		tok := chi.URLParam(r, "token")

		if !token.IsValid(tok, tokenLength) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.ResourceNotFoundResponse)
			return
		}

		stats, err := svc.GetURLStats(r.Context(), tok)
		if err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.StatsResponse{
			Token:  tok,
			Stats:  stats,
			Status: response.StatusSuccess,
		})
	}
}

// handleRedirect answers 404 for every failure: a malformed or missing token,
// an unavailable store and a rejected envelope.
func handleRedirect(svc URLService, tokenLength int) http.HandlerFunc {
	const op = "api.http.handleRedirect"

	return func(w http.ResponseWriter, r *http.Request) {
		tok := chi.URLParam(r, "token")

		if !token.IsValid(tok, tokenLength) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.ResourceNotFoundResponse)
			return
		}

		url, err := svc.Redirect(r.Context(), tok, r.UserAgent())
		if err != nil {
			if !errors.Is(err, database.ErrURLNotFound) {
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})
			}

			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.ResourceNotFoundResponse)
			return
		}

		http.Redirect(w, r, url, http.StatusFound)
	}
}

func handleListRoutes(routes chi.Routes) http.HandlerFunc {
	const op = "api.http.handleListRoutes"

	return func(w http.ResponseWriter, r *http.Request) {
		var list []response.Route

		err := chi.Walk(routes, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
			list = append(list, response.Route{Method: method, Path: route})
			return nil
		})
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		sort.Slice(list, func(i, j int) bool {
			if list[i].Path != list[j].Path {
				return list[i].Path < list[j].Path
			}
			return list[i].Method < list[j].Method
		})

		render.Status(r, http.StatusOK)
		render.JSON(w, r, list)
	}
}
