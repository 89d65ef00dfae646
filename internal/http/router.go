package http

import (
	"log/slog"
	"net/http"
	"strings"
)

type RouterConfig struct {
	Auth     *AuthHandler
	Events   *EventHandler
	Bookings *BookingHandler
	// Sessions guards the authenticated routes. Catalog reads and login
	// stay public when it is set; without it every route is public.
	Sessions   SessionValidator
	Logger     *slog.Logger
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	protect := func(h http.HandlerFunc) http.Handler {
		if cfg.Sessions == nil {
			return h
		}
		return RequireSession(cfg.Sessions, cfg.Logger)(h)
	}

	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
	})

	if cfg.Auth != nil {
		mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.Login(w, r)
		})
		mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.Logout(w, r)
		})
	}

	if cfg.Events != nil {
		createEvent := protect(cfg.Events.Create)
		updateEvent := protect(cfg.Events.Update)
		deleteEvent := protect(cfg.Events.Delete)
		exportEvent := protect(cfg.Events.Export)
		ownEvents := protect(cfg.Events.ListOwn)

		mux.HandleFunc("/api/events", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Events.List(w, r)
			case http.MethodPost:
				createEvent.ServeHTTP(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/api/events/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/api/events/")
			if rest == "staff" {
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				ownEvents.ServeHTTP(w, r)
				return
			}

			id, action, _ := strings.Cut(rest, "/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithEventID(r.Context(), id))

			switch action {
			case "":
				switch r.Method {
				case http.MethodGet:
					cfg.Events.Get(w, r)
				case http.MethodPut:
					updateEvent.ServeHTTP(w, r)
				case http.MethodDelete:
					deleteEvent.ServeHTTP(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
				}
			case "export":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				exportEvent.ServeHTTP(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Bookings != nil {
		createBooking := protect(cfg.Bookings.Create)
		listBookings := protect(cfg.Bookings.ListMine)
		confirmBooking := protect(cfg.Bookings.Confirm)
		rescheduleBooking := protect(cfg.Bookings.Reschedule)
		positionBooking := protect(cfg.Bookings.Position)
		deleteBooking := protect(cfg.Bookings.Delete)

		mux.HandleFunc("/api/bookings", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			createBooking.ServeHTTP(w, r)
		})
		mux.HandleFunc("/api/bookings/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/api/bookings/")
			if rest == "user" {
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				listBookings.ServeHTTP(w, r)
				return
			}

			id, action, _ := strings.Cut(rest, "/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithBookingID(r.Context(), id))

			switch action {
			case "":
				if r.Method != http.MethodDelete {
					methodNotAllowed(w, http.MethodDelete)
					return
				}
				deleteBooking.ServeHTTP(w, r)
			case "confirm":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				confirmBooking.ServeHTTP(w, r)
			case "reschedule":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				rescheduleBooking.ServeHTTP(w, r)
			case "position":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				positionBooking.ServeHTTP(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
