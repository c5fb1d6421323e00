package httpapi

import (
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"tripdesk/internal/identity"
	"tripdesk/internal/registration"
	"tripdesk/internal/weather"
)

// emailCookie names the signed cookie that remembers a visitor's email.
// The cookie name doubles as the field name bound into the signature.
const emailCookie = "email"

var validate = validator.New()

// Deps carries what the handlers need. Everything is threaded in
// explicitly; no handler reads the environment.
type Deps struct {
	Weather       *weather.Service
	Registrations *registration.Store

	CookieSecret []byte
	CookieMaxAge time.Duration

	City         string
	Units        weather.Units
	ForecastDays int
	RecentLimit  int
}

// RegisterRoutes wires the page and API handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	app.Get("/", deps.landing)
	app.Post("/register", deps.register)

	v1 := app.Group("/api/v1")
	v1.Get("/forecast", deps.forecastJSON)
	v1.Get("/registrations", deps.registrationsJSON)
}

// landing renders the trip page: the forecast for the configured city, the
// visitor's own registration when their cookie checks out, and the latest
// signups. Store and feed trouble degrade sections of the page, never the
// whole request.
func (d Deps) landing(c *fiber.Ctx) error {
	ctx := c.UserContext()

	data := fiber.Map{
		"City":  d.City,
		"Units": d.Units,
	}

	if raw := c.Cookies(emailCookie); raw != "" {
		if email, ok := identity.Verify(emailCookie, raw, d.CookieSecret); ok {
			if rec, found := d.Registrations.FindByEmail(ctx, email); found {
				data["Visitor"] = rec
			}
		}
	}

	days, err := d.Weather.DailyForecast(ctx, d.City, d.Units, d.ForecastDays)
	if err != nil {
		slog.Warn("landing forecast degraded", "city", d.City, "error", err)
		data["ForecastDown"] = true
	} else {
		data["Forecast"] = days
	}

	data["Recent"] = d.Registrations.List(ctx, d.RecentLimit)

	return c.Render("landing", data)
}

// registerForm is the signup form body.
type registerForm struct {
	Name        string `form:"name" validate:"required"`
	Email       string `form:"email" validate:"required,email"`
	Destination string `form:"destination" validate:"required"`
}

func (d Deps) register(c *fiber.Ctx) error {
	var form registerForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid form body")
	}
	if err := validate.Struct(form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "name, a valid email and a destination are required")
	}

	rec, err := d.Registrations.Create(c.UserContext(), form.Name, form.Email, form.Destination)
	if err != nil {
		slog.Error("registration create failed", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "could not save the registration")
	}
	slog.Info("registration created", "id", rec.ID, "destination", rec.Destination)

	c.Cookie(&fiber.Cookie{
		Name:     emailCookie,
		Value:    identity.Sign(emailCookie, rec.Email, d.CookieSecret),
		Path:     "/",
		MaxAge:   int(d.CookieMaxAge.Seconds()),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.Redirect("/", fiber.StatusSeeOther)
}

// forecastQuery holds the optional overrides for the forecast endpoint.
type forecastQuery struct {
	City  string `query:"city"`
	Units string `query:"units"`
	Days  int    `query:"days" validate:"omitempty,min=1,max=16"`
}

func (d Deps) forecastJSON(c *fiber.Ctx) error {
	var q forecastQuery
	if err := c.QueryParser(&q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query parameters")
	}
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "days must be between 1 and 16")
	}

	city := q.City
	if city == "" {
		city = d.City
	}
	units := d.Units
	if q.Units != "" {
		var err error
		if units, err = weather.ParseUnits(q.Units); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "units must be metric or imperial")
		}
	}
	forecastDays := q.Days
	if forecastDays == 0 {
		forecastDays = d.ForecastDays
	}

	days, err := d.Weather.DailyForecast(c.UserContext(), city, units, forecastDays)
	if err != nil {
		slog.Warn("forecast fetch failed", "city", city, "error", err)
		return fiber.NewError(fiber.StatusBadGateway, "forecast upstream unavailable")
	}

	return c.JSON(fiber.Map{
		"city":     city,
		"units":    units,
		"forecast": days,
	})
}

// registrationsQuery bounds the listing endpoint.
type registrationsQuery struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=100"`
}

func (d Deps) registrationsJSON(c *fiber.Ctx) error {
	var q registrationsQuery
	if err := c.QueryParser(&q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query parameters")
	}
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "limit must be between 1 and 100")
	}

	limit := q.Limit
	if limit == 0 {
		limit = d.RecentLimit
	}

	recs := d.Registrations.List(c.UserContext(), limit)
	if recs == nil {
		recs = []registration.Record{}
	}
	return c.JSON(fiber.Map{
		"count":         len(recs),
		"registrations": recs,
	})
}
