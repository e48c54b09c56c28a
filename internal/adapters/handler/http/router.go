package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handlers struct {
	Identity *IdentityHandler
	Poll     *PollHandler
	Vote     *VoteHandler
	Live     *LiveHandler
}

func NewHandler(h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Use(h.Identity.Middleware)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("welcome"))
		})
		r.Get("/me", h.Identity.GetMe)
		r.Get("/live", h.Live.GlobalLive)

		r.Route("/polls", func(r chi.Router) {
			r.Post("/", h.Poll.CreatePoll)
			r.Get("/", h.Poll.ListPolls)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Poll.GetPoll)
				r.Patch("/", h.Poll.UpdatePoll)
				r.Delete("/", h.Poll.DeletePoll)
				r.Get("/stats", h.Poll.GetStats)
				r.Post("/votes", h.Vote.VoteOnPoll)
				r.Get("/my-vote", h.Vote.GetMyVote)
				r.Get("/live", h.Live.PollLive)
			})
		})
	})

	return r
}
